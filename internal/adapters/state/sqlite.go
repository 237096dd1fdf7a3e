package state

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/conclave-ai/conclave/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteLaunchStore implements core.LaunchStore with SQLite storage.
// TryTransition serializes concurrent stage writes with a transaction
// plus a stage-guarded UPDATE, so whichever caller observes the
// expected stage first wins and the loser gets a stale error.
type SQLiteLaunchStore struct {
	dbPath string
	db     *sql.DB
	mu     sync.Mutex // serializes TryTransition within this process
}

// NewSQLiteLaunchStore creates a new SQLite launch store.
func NewSQLiteLaunchStore(dbPath string) (*SQLiteLaunchStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	// WAL mode for better concurrency between the supervisor loop and
	// API handlers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteLaunchStore{dbPath: dbPath, db: db}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteLaunchStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteLaunchStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// SaveCouncil upserts a council.
func (s *SQLiteLaunchStore) SaveCouncil(ctx context.Context, c *core.Council) error {
	if err := c.Validate(); err != nil {
		return err
	}
	members, err := json.Marshal(c.MemberAgentIDs)
	if err != nil {
		return fmt.Errorf("marshaling members: %w", err)
	}
	c.UpdatedAt = time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.UpdatedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO councils (id, name, member_agent_ids, chairman_agent_id, discussion_rounds, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			member_agent_ids = excluded.member_agent_ids,
			chairman_agent_id = excluded.chairman_agent_id,
			discussion_rounds = excluded.discussion_rounds,
			updated_at = excluded.updated_at
	`, c.ID, c.Name, string(members), string(c.ChairmanAgentID), c.DiscussionRounds, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting council: %w", err)
	}
	return nil
}

// GetCouncil retrieves a council by ID.
func (s *SQLiteLaunchStore) GetCouncil(ctx context.Context, id core.CouncilID) (*core.Council, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, member_agent_ids, chairman_agent_id, discussion_rounds, created_at, updated_at
		FROM councils WHERE id = ?
	`, id)
	return scanCouncil(row)
}

// ListCouncils returns all councils, newest first.
func (s *SQLiteLaunchStore) ListCouncils(ctx context.Context) ([]*core.Council, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, member_agent_ids, chairman_agent_id, discussion_rounds, created_at, updated_at
		FROM councils ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing councils: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var councils []*core.Council
	for rows.Next() {
		c, err := scanCouncil(rows)
		if err != nil {
			return nil, err
		}
		councils = append(councils, c)
	}
	return councils, rows.Err()
}

// DeleteCouncil removes a council. Existing launches keep their record.
func (s *SQLiteLaunchStore) DeleteCouncil(ctx context.Context, id core.CouncilID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM councils WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting council: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound("council", string(id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCouncil(row rowScanner) (*core.Council, error) {
	var (
		c        core.Council
		members  string
		chairman sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &members, &chairman, &c.DiscussionRounds, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound("council", "")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning council: %w", err)
	}
	if err := json.Unmarshal([]byte(members), &c.MemberAgentIDs); err != nil {
		return nil, core.ErrState(core.CodeStateCorrupted, "unreadable council members").WithCause(err)
	}
	c.ChairmanAgentID = core.AgentID(chairman.String)
	return &c, nil
}

// CreateLaunch persists a new launch with its member session IDs.
func (s *SQLiteLaunchStore) CreateLaunch(ctx context.Context, l *core.CouncilLaunch) error {
	if err := l.Validate(); err != nil {
		return err
	}
	return s.upsertLaunch(ctx, s.db, l, true)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteLaunchStore) upsertLaunch(ctx context.Context, ex execer, l *core.CouncilLaunch, insertOnly bool) error {
	memberIDs, err := json.Marshal(l.MemberSessionIDs)
	if err != nil {
		return fmt.Errorf("marshaling member session IDs: %w", err)
	}
	reviewIDs, err := json.Marshal(l.ReviewSessionIDs)
	if err != nil {
		return fmt.Errorf("marshaling review session IDs: %w", err)
	}
	discussionIDs, err := json.Marshal(l.DiscussionSessionIDs)
	if err != nil {
		return fmt.Errorf("marshaling discussion session IDs: %w", err)
	}
	answers, err := json.Marshal(l.MemberAnswers)
	if err != nil {
		return fmt.Errorf("marshaling member answers: %w", err)
	}
	reviews, err := json.Marshal(l.Reviews)
	if err != nil {
		return fmt.Errorf("marshaling reviews: %w", err)
	}

	if insertOnly {
		_, err = ex.ExecContext(ctx, `
			INSERT INTO launches (
				id, council_id, project_id, prompt, stage,
				member_session_ids, review_session_ids, discussion_session_ids, discussion_round,
				member_answers, reviews, synthesis, error,
				created_at, updated_at, stage_entered_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			l.ID, l.CouncilID, l.ProjectID, l.Prompt, l.Stage,
			string(memberIDs), string(reviewIDs), string(discussionIDs), l.DiscussionRound,
			string(answers), string(reviews), l.Synthesis, l.Error,
			l.CreatedAt, l.UpdatedAt, l.StageEnteredAt,
		)
		if err != nil {
			return fmt.Errorf("inserting launch: %w", err)
		}
		return nil
	}

	_, err = ex.ExecContext(ctx, `
		UPDATE launches SET
			stage = ?,
			member_session_ids = ?, review_session_ids = ?, discussion_session_ids = ?, discussion_round = ?,
			member_answers = ?, reviews = ?, synthesis = ?, error = ?,
			updated_at = ?, stage_entered_at = ?
		WHERE id = ?
	`,
		l.Stage,
		string(memberIDs), string(reviewIDs), string(discussionIDs), l.DiscussionRound,
		string(answers), string(reviews), l.Synthesis, l.Error,
		l.UpdatedAt, l.StageEnteredAt,
		l.ID,
	)
	if err != nil {
		return fmt.Errorf("updating launch: %w", err)
	}
	return nil
}

const launchColumns = `
	id, council_id, project_id, prompt, stage,
	member_session_ids, review_session_ids, discussion_session_ids, discussion_round,
	member_answers, reviews, synthesis, error,
	created_at, updated_at, stage_entered_at
`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetLaunch retrieves a launch by ID.
func (s *SQLiteLaunchStore) GetLaunch(ctx context.Context, id core.LaunchID) (*core.CouncilLaunch, error) {
	return getLaunch(ctx, s.db, id)
}

func getLaunch(ctx context.Context, q querier, id core.LaunchID) (*core.CouncilLaunch, error) {
	row := q.QueryRowContext(ctx, "SELECT"+launchColumns+"FROM launches WHERE id = ?", id)
	l, err := scanLaunch(row)
	if err != nil {
		if core.IsCategory(err, core.ErrCatNotFound) {
			return nil, core.ErrNotFound("launch", string(id))
		}
		return nil, err
	}
	return l, nil
}

func scanLaunch(row rowScanner) (*core.CouncilLaunch, error) {
	var (
		l                                   core.CouncilLaunch
		memberIDs, reviewIDs, discussionIDs sql.NullString
		answers, reviews                    sql.NullString
		synthesis, errMsg, projectID        sql.NullString
	)
	err := row.Scan(
		&l.ID, &l.CouncilID, &projectID, &l.Prompt, &l.Stage,
		&memberIDs, &reviewIDs, &discussionIDs, &l.DiscussionRound,
		&answers, &reviews, &synthesis, &errMsg,
		&l.CreatedAt, &l.UpdatedAt, &l.StageEnteredAt,
	)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound("launch", "")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning launch: %w", err)
	}
	l.ProjectID = projectID.String
	l.Synthesis = synthesis.String
	l.Error = errMsg.String
	if err := unmarshalInto(memberIDs, &l.MemberSessionIDs); err != nil {
		return nil, err
	}
	if err := unmarshalInto(reviewIDs, &l.ReviewSessionIDs); err != nil {
		return nil, err
	}
	if err := unmarshalInto(discussionIDs, &l.DiscussionSessionIDs); err != nil {
		return nil, err
	}
	if err := unmarshalInto(answers, &l.MemberAnswers); err != nil {
		return nil, err
	}
	if err := unmarshalInto(reviews, &l.Reviews); err != nil {
		return nil, err
	}
	return &l, nil
}

func unmarshalInto(src sql.NullString, dst any) error {
	if !src.Valid || src.String == "" || src.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(src.String), dst); err != nil {
		return core.ErrState(core.CodeStateCorrupted, "unreadable launch field").WithCause(err)
	}
	return nil
}

// ListLaunches returns launches, optionally filtered by council.
func (s *SQLiteLaunchStore) ListLaunches(ctx context.Context, councilID core.CouncilID) ([]*core.CouncilLaunch, error) {
	query := "SELECT" + launchColumns + "FROM launches"
	args := []any{}
	if councilID != "" {
		query += " WHERE council_id = ?"
		args = append(args, councilID)
	}
	query += " ORDER BY created_at DESC"
	return s.queryLaunches(ctx, query, args...)
}

// ListActiveLaunches returns all launches in a non-terminal stage.
func (s *SQLiteLaunchStore) ListActiveLaunches(ctx context.Context) ([]*core.CouncilLaunch, error) {
	query := "SELECT" + launchColumns + "FROM launches WHERE stage NOT IN (?, ?) ORDER BY created_at ASC"
	return s.queryLaunches(ctx, query, core.StageComplete, core.StageAborted)
}

func (s *SQLiteLaunchStore) queryLaunches(ctx context.Context, query string, args ...any) ([]*core.CouncilLaunch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing launches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var launches []*core.CouncilLaunch
	for rows.Next() {
		l, err := scanLaunch(rows)
		if err != nil {
			return nil, err
		}
		launches = append(launches, l)
	}
	return launches, rows.Err()
}

// TryTransition atomically applies mutate to the launch iff its stage
// still equals expected. The read, the mutation, and the stage-guarded
// write all happen inside one transaction; a lost race surfaces as a
// stale DomainError and leaves the row untouched.
func (s *SQLiteLaunchStore) TryTransition(ctx context.Context, id core.LaunchID, expected core.Stage, mutate core.LaunchMutator) (*core.CouncilLaunch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, "SELECT"+launchColumns+"FROM launches WHERE id = ?", id)
	l, err := scanLaunch(row)
	if err != nil {
		if core.IsCategory(err, core.ErrCatNotFound) {
			return nil, core.ErrNotFound("launch", string(id))
		}
		return nil, err
	}

	if l.Stage != expected {
		return nil, core.ErrStaleStage(string(id), expected, l.Stage)
	}

	if err := mutate(l); err != nil {
		return nil, err
	}
	if l.Stage != expected && !expected.CanAdvanceTo(l.Stage) {
		return nil, core.ErrState(core.CodeInvalidStage,
			fmt.Sprintf("illegal transition %s -> %s", expected, l.Stage))
	}
	l.UpdatedAt = time.Now()
	if err := l.Validate(); err != nil {
		return nil, err
	}

	memberIDs, _ := json.Marshal(l.MemberSessionIDs)
	reviewIDs, _ := json.Marshal(l.ReviewSessionIDs)
	discussionIDs, _ := json.Marshal(l.DiscussionSessionIDs)
	answers, _ := json.Marshal(l.MemberAnswers)
	reviews, _ := json.Marshal(l.Reviews)

	res, err := tx.ExecContext(ctx, `
		UPDATE launches SET
			stage = ?,
			member_session_ids = ?, review_session_ids = ?, discussion_session_ids = ?, discussion_round = ?,
			member_answers = ?, reviews = ?, synthesis = ?, error = ?,
			updated_at = ?, stage_entered_at = ?
		WHERE id = ? AND stage = ?
	`,
		l.Stage,
		string(memberIDs), string(reviewIDs), string(discussionIDs), l.DiscussionRound,
		string(answers), string(reviews), l.Synthesis, l.Error,
		l.UpdatedAt, l.StageEnteredAt,
		id, expected,
	)
	if err != nil {
		return nil, fmt.Errorf("writing transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// The row moved under us despite the transaction; treat it the
		// same as losing the race at read time.
		return nil, core.ErrStaleStage(string(id), expected, l.Stage)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return l, nil
}

// AppendDiscussionMessage appends a discussion message.
func (s *SQLiteLaunchStore) AppendDiscussionMessage(ctx context.Context, msg *core.DiscussionMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO discussion_messages (id, launch_id, round, agent_id, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.LaunchID, msg.Round, msg.AgentID, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting discussion message: %w", err)
	}
	return nil
}

// ListDiscussionMessages returns a launch's discussion log in order.
func (s *SQLiteLaunchStore) ListDiscussionMessages(ctx context.Context, id core.LaunchID) ([]*core.DiscussionMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, launch_id, round, agent_id, content, created_at
		FROM discussion_messages WHERE launch_id = ? ORDER BY created_at ASC, round ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("listing discussion messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []*core.DiscussionMessage
	for rows.Next() {
		var m core.DiscussionMessage
		if err := rows.Scan(&m.ID, &m.LaunchID, &m.Round, &m.AgentID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning discussion message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// AppendChatMessage appends a post-completion chat message.
func (s *SQLiteLaunchStore) AppendChatMessage(ctx context.Context, msg *core.ChatMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, launch_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.LaunchID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}
	return nil
}

// ListChatMessages returns a launch's chat log in order.
func (s *SQLiteLaunchStore) ListChatMessages(ctx context.Context, id core.LaunchID) ([]*core.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, launch_id, role, content, created_at
		FROM chat_messages WHERE launch_id = ? ORDER BY created_at ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("listing chat messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []*core.ChatMessage
	for rows.Next() {
		var m core.ChatMessage
		if err := rows.Scan(&m.ID, &m.LaunchID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// AppendLog appends a launch log entry.
func (s *SQLiteLaunchStore) AppendLog(ctx context.Context, entry *core.LogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO launch_logs (id, launch_id, level, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, entry.LaunchID, entry.Level, entry.Message, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}
	return nil
}

// ListLogs returns a launch's log entries in order.
func (s *SQLiteLaunchStore) ListLogs(ctx context.Context, id core.LaunchID) ([]*core.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, launch_id, level, message, created_at
		FROM launch_logs WHERE launch_id = ? ORDER BY created_at ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*core.LogEntry
	for rows.Next() {
		var e core.LogEntry
		if err := rows.Scan(&e.ID, &e.LaunchID, &e.Level, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
