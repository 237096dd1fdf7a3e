package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/conclave-ai/conclave/internal/core"
)

// JSONLaunchStore implements core.LaunchStore with a single JSON file.
// A process-wide mutex provides the compare-and-set; writes go through
// atomicWriteFile so a crash never leaves a truncated state file. Meant
// for zero-dependency installs and tests; SQLite is the default.
type JSONLaunchStore struct {
	path string
	mu   sync.Mutex
}

// jsonState is the on-disk envelope.
type jsonState struct {
	Version            int                                `json:"version"`
	Councils           map[string]*core.Council           `json:"councils"`
	Launches           map[string]*core.CouncilLaunch     `json:"launches"`
	DiscussionMessages map[string][]*core.DiscussionMessage `json:"discussion_messages"`
	ChatMessages       map[string][]*core.ChatMessage     `json:"chat_messages"`
	Logs               map[string][]*core.LogEntry        `json:"logs"`
	UpdatedAt          time.Time                          `json:"updated_at"`
}

// NewJSONLaunchStore creates a new JSON launch store.
func NewJSONLaunchStore(path string) *JSONLaunchStore {
	return &JSONLaunchStore{path: path}
}

func newJSONState() *jsonState {
	return &jsonState{
		Version:            1,
		Councils:           make(map[string]*core.Council),
		Launches:           make(map[string]*core.CouncilLaunch),
		DiscussionMessages: make(map[string][]*core.DiscussionMessage),
		ChatMessages:       make(map[string][]*core.ChatMessage),
		Logs:               make(map[string][]*core.LogEntry),
	}
}

// load reads the state file. Missing file yields empty state.
func (s *JSONLaunchStore) load() (*jsonState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return newJSONState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	st := newJSONState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, core.ErrState(core.CodeStateCorrupted, "unreadable state file").WithCause(err)
	}
	return st, nil
}

func (s *JSONLaunchStore) save(st *jsonState) error {
	st.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return atomicWriteFile(s.path, data, 0o600)
}

// SaveCouncil upserts a council.
func (s *JSONLaunchStore) SaveCouncil(_ context.Context, c *core.Council) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.UpdatedAt
	}
	st.Councils[string(c.ID)] = c
	return s.save(st)
}

// GetCouncil retrieves a council by ID.
func (s *JSONLaunchStore) GetCouncil(_ context.Context, id core.CouncilID) (*core.Council, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	c, ok := st.Councils[string(id)]
	if !ok {
		return nil, core.ErrNotFound("council", string(id))
	}
	return c, nil
}

// ListCouncils returns all councils, newest first.
func (s *JSONLaunchStore) ListCouncils(_ context.Context) ([]*core.Council, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	councils := make([]*core.Council, 0, len(st.Councils))
	for _, c := range st.Councils {
		councils = append(councils, c)
	}
	sort.Slice(councils, func(i, j int) bool {
		return councils[i].CreatedAt.After(councils[j].CreatedAt)
	})
	return councils, nil
}

// DeleteCouncil removes a council.
func (s *JSONLaunchStore) DeleteCouncil(_ context.Context, id core.CouncilID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := st.Councils[string(id)]; !ok {
		return core.ErrNotFound("council", string(id))
	}
	delete(st.Councils, string(id))
	return s.save(st)
}

// CreateLaunch persists a new launch.
func (s *JSONLaunchStore) CreateLaunch(_ context.Context, l *core.CouncilLaunch) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	if _, exists := st.Launches[string(l.ID)]; exists {
		return core.ErrState("LAUNCH_EXISTS", "launch already exists: "+string(l.ID))
	}
	st.Launches[string(l.ID)] = l
	return s.save(st)
}

// GetLaunch retrieves a launch by ID.
func (s *JSONLaunchStore) GetLaunch(_ context.Context, id core.LaunchID) (*core.CouncilLaunch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	l, ok := st.Launches[string(id)]
	if !ok {
		return nil, core.ErrNotFound("launch", string(id))
	}
	return l, nil
}

// ListLaunches returns launches, optionally filtered by council.
func (s *JSONLaunchStore) ListLaunches(_ context.Context, councilID core.CouncilID) ([]*core.CouncilLaunch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	launches := make([]*core.CouncilLaunch, 0, len(st.Launches))
	for _, l := range st.Launches {
		if councilID != "" && l.CouncilID != councilID {
			continue
		}
		launches = append(launches, l)
	}
	sort.Slice(launches, func(i, j int) bool {
		return launches[i].CreatedAt.After(launches[j].CreatedAt)
	})
	return launches, nil
}

// ListActiveLaunches returns all launches in a non-terminal stage.
func (s *JSONLaunchStore) ListActiveLaunches(_ context.Context) ([]*core.CouncilLaunch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	var launches []*core.CouncilLaunch
	for _, l := range st.Launches {
		if !l.IsTerminal() {
			launches = append(launches, l)
		}
	}
	sort.Slice(launches, func(i, j int) bool {
		return launches[i].CreatedAt.Before(launches[j].CreatedAt)
	})
	return launches, nil
}

// TryTransition applies mutate iff the launch stage equals expected.
// The mutex makes read-check-mutate-write atomic within the process.
func (s *JSONLaunchStore) TryTransition(_ context.Context, id core.LaunchID, expected core.Stage, mutate core.LaunchMutator) (*core.CouncilLaunch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	stored, ok := st.Launches[string(id)]
	if !ok {
		return nil, core.ErrNotFound("launch", string(id))
	}
	if stored.Stage != expected {
		return nil, core.ErrStaleStage(string(id), expected, stored.Stage)
	}

	// Mutate a copy so a failed mutator leaves the stored state intact.
	working := *stored
	if err := mutate(&working); err != nil {
		return nil, err
	}
	if working.Stage != expected && !expected.CanAdvanceTo(working.Stage) {
		return nil, core.ErrState(core.CodeInvalidStage,
			fmt.Sprintf("illegal transition %s -> %s", expected, working.Stage))
	}
	working.UpdatedAt = time.Now()
	if err := working.Validate(); err != nil {
		return nil, err
	}

	st.Launches[string(id)] = &working
	if err := s.save(st); err != nil {
		return nil, err
	}
	return &working, nil
}

// AppendDiscussionMessage appends a discussion message.
func (s *JSONLaunchStore) AppendDiscussionMessage(_ context.Context, msg *core.DiscussionMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	key := string(msg.LaunchID)
	st.DiscussionMessages[key] = append(st.DiscussionMessages[key], msg)
	return s.save(st)
}

// ListDiscussionMessages returns a launch's discussion log in order.
func (s *JSONLaunchStore) ListDiscussionMessages(_ context.Context, id core.LaunchID) ([]*core.DiscussionMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.DiscussionMessages[string(id)], nil
}

// AppendChatMessage appends a post-completion chat message.
func (s *JSONLaunchStore) AppendChatMessage(_ context.Context, msg *core.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	key := string(msg.LaunchID)
	st.ChatMessages[key] = append(st.ChatMessages[key], msg)
	return s.save(st)
}

// ListChatMessages returns a launch's chat log in order.
func (s *JSONLaunchStore) ListChatMessages(_ context.Context, id core.LaunchID) ([]*core.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.ChatMessages[string(id)], nil
}

// AppendLog appends a launch log entry.
func (s *JSONLaunchStore) AppendLog(_ context.Context, entry *core.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	key := string(entry.LaunchID)
	st.Logs[key] = append(st.Logs[key], entry)
	return s.save(st)
}

// ListLogs returns a launch's log entries in order.
func (s *JSONLaunchStore) ListLogs(_ context.Context, id core.LaunchID) ([]*core.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.Logs[string(id)], nil
}
