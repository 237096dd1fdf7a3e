package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/events"
	"github.com/conclave-ai/conclave/internal/logging"
)

// sessionStopper is implemented by runtimes that can cancel sessions.
// Stopping is best effort; a runtime without it just lets losers of a
// transition race run to completion and be ignored.
type sessionStopper interface {
	StopSession(ctx context.Context, id core.SessionID)
}

// LauncherOptions tunes the launcher service.
type LauncherOptions struct {
	// Policy drives the pure stage-advance decision.
	Policy core.CoordinatorPolicy

	// ChatTimeout bounds one synchronous post-completion chat turn.
	ChatTimeout time.Duration
}

// Launcher orchestrates council launches: it creates them, spawns their
// sessions, evaluates stage advances, and serves the manual triggers.
// All stage mutations go through the store's conditional write, so any
// number of supervisors and API calls can race safely.
type Launcher struct {
	store   core.LaunchStore
	runtime core.SessionRuntime
	invoker core.AgentInvoker
	synth   *Synthesizer
	bus     *events.EventBus
	logger  *logging.Logger
	opts    LauncherOptions

	now func() time.Time
}

// NewLauncher creates the launcher service.
func NewLauncher(store core.LaunchStore, runtime core.SessionRuntime, invoker core.AgentInvoker, synth *Synthesizer, bus *events.EventBus, logger *logging.Logger, opts LauncherOptions) *Launcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Policy.SessionTimeout == 0 {
		opts.Policy = core.DefaultCoordinatorPolicy()
	}
	if opts.ChatTimeout == 0 {
		opts.ChatTimeout = 2 * time.Minute
	}
	return &Launcher{
		store:   store,
		runtime: runtime,
		invoker: invoker,
		synth:   synth,
		bus:     bus,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// =============================================================================
// Councils
// =============================================================================

// CreateCouncil validates and persists a council, assigning an ID when
// absent.
func (l *Launcher) CreateCouncil(ctx context.Context, c *core.Council) (*core.Council, error) {
	if c.ID == "" {
		c.ID = core.CouncilID(uuid.New().String())
	}
	if err := l.store.SaveCouncil(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCouncil retrieves a council.
func (l *Launcher) GetCouncil(ctx context.Context, id core.CouncilID) (*core.Council, error) {
	return l.store.GetCouncil(ctx, id)
}

// ListCouncils lists all councils.
func (l *Launcher) ListCouncils(ctx context.Context) ([]*core.Council, error) {
	return l.store.ListCouncils(ctx)
}

// DeleteCouncil removes a council. Existing launches keep their record.
func (l *Launcher) DeleteCouncil(ctx context.Context, id core.CouncilID) error {
	return l.store.DeleteCouncil(ctx, id)
}

// =============================================================================
// Launches
// =============================================================================

/// CreateLaunch starts a deliberation: it creates the launch in the
// responding stage and spawns one session per council member, all in
// parallel. A member whose session fails to start is recorded as failed
// rather than failing the launch.
func (l *Launcher) CreateLaunch(ctx context.Context, councilID core.CouncilID, projectID, prompt string) (*core.CouncilLaunch, error) {
	council, err := l.store.GetCouncil(ctx, councilID)
	if err != nil {
		return nil, err
	}
	launch, err := core.NewLaunch(council, projectID, prompt)
	if err != nil {
		return nil, err
	}

	memberPrompt := buildMemberPrompt(launch)
	ids := make([]core.SessionID, 0, len(council.MemberAgentIDs))
	for _, agentID := range council.MemberAgentIDs {
		sid, err := l.runtime.StartSession(ctx, agentID, projectID, memberPrompt)
		if err != nil {
			l.logger.Warn("launch: member session failed to start",
				"launch", launch.ID, "agent", agentID, "error", err)
			sid = core.SessionID("unstarted-" + uuid.New().String())
		}
		ids = append(ids, sid)
	}
	launch.MemberSessionIDs = ids

	if err := l.store.CreateLaunch(ctx, launch); err != nil {
		l.stopSessions(ctx, ids)
		return nil, err
	}

	l.publish(events.NewLaunchCreatedEvent(string(launch.ID), string(council.ID), sessionStrings(ids)))
	l.appendLog(ctx, launch.ID, "info",
		fmt.Sprintf("launch created with %d member sessions", len(ids)))
	l.logger.Info("launch: created",
		"launch", launch.ID, "council", council.ID, "members", len(ids))
	return launch, nil
}

// GetLaunch retrieves a launch.
func (l *Launcher) GetLaunch(ctx context.Context, id core.LaunchID) (*core.CouncilLaunch, error) {
	return l.store.GetLaunch(ctx, id)
}

// ListLaunches lists launches, optionally filtered by council.
func (l *Launcher) ListLaunches(ctx context.Context, councilID core.CouncilID) ([]*core.CouncilLaunch, error) {
	return l.store.ListLaunches(ctx, councilID)
}

// ListDiscussion returns a launch's discussion transcript.
func (l *Launcher) ListDiscussion(ctx context.Context, id core.LaunchID) ([]*core.DiscussionMessage, error) {
	if _, err := l.store.GetLaunch(ctx, id); err != nil {
		return nil, err
	}
	return l.store.ListDiscussionMessages(ctx, id)
}

// ListChat returns a launch's chat history.
func (l *Launcher) ListChat(ctx context.Context, id core.LaunchID) ([]*core.ChatMessage, error) {
	if _, err := l.store.GetLaunch(ctx, id); err != nil {
		return nil, err
	}
	return l.store.ListChatMessages(ctx, id)
}

// ListLogs returns a launch's log entries.
func (l *Launcher) ListLogs(ctx context.Context, id core.LaunchID) ([]*core.LogEntry, error) {
	if _, err := l.store.GetLaunch(ctx, id); err != nil {
		return nil, err
	}
	return l.store.ListLogs(ctx, id)
}

// =============================================================================
// Supervisor step
// =============================================================================

// Step evaluates one launch once and applies at most one advance. Lost
// transition races are swallowed: some other actor already moved the
// launch, which is the desired outcome.
func (l *Launcher) Step(ctx context.Context, id core.LaunchID) error {
	launch, err := l.store.GetLaunch(ctx, id)
	if err != nil {
		return err
	}
	if launch.IsTerminal() {
		return nil
	}
	council, err := l.store.GetCouncil(ctx, launch.CouncilID)
	if err != nil {
		return err
	}

	sessions := l.observeSessions(ctx, launch)
	decision := core.Decide(launch, council, sessions, l.now(), l.opts.Policy)

	switch decision.Kind {
	case core.DecisionStay:
		return nil
	case core.DecisionNextRound:
		err = l.nextDiscussionRound(ctx, launch, council, sessions)
	case core.DecisionAdvance:
		err = l.applyAdvance(ctx, launch, council, sessions, decision)
	}
	if core.IsStaleStage(err) {
		l.logger.Debug("step: lost transition race", "launch", id, "stage", launch.Stage)
		return nil
	}
	return err
}

// observeSessions polls the runtime for every session the launch has
// ever spawned.
func (l *Launcher) observeSessions(ctx context.Context, launch *core.CouncilLaunch) map[core.SessionID]core.SessionState {
	all := make([]core.SessionID, 0,
		len(launch.MemberSessionIDs)+len(launch.DiscussionSessionIDs)+len(launch.ReviewSessionIDs))
	all = append(all, launch.MemberSessionIDs...)
	all = append(all, launch.DiscussionSessionIDs...)
	all = append(all, launch.ReviewSessionIDs...)

	states := make(map[core.SessionID]core.SessionState, len(all))
	for _, sid := range all {
		st, err := l.runtime.SessionStatus(ctx, sid)
		if err != nil {
			continue
		}
		states[sid] = st
	}
	return states
}

func (l *Launcher) applyAdvance(ctx context.Context, launch *core.CouncilLaunch, council *core.Council, sessions map[core.SessionID]core.SessionState, decision core.Decision) error {
	l.logger.Info("step: advancing",
		"launch", launch.ID, "from", launch.Stage, "to", decision.Next, "reason", decision.Reason)

	switch decision.Next {
	case core.StageDiscussing:
		return l.enterDiscussing(ctx, launch, council, sessions)
	case core.StageReviewing:
		return l.enterReviewing(ctx, launch, council, sessions)
	case core.StageSynthesizing:
		return l.enterSynthesizing(ctx, launch, council, sessions, decision.Reason)
	case core.StageComplete:
		return l.completeSynthesis(ctx, launch, council)
	default:
		return core.ErrState(core.CodeInvalidStage,
			fmt.Sprintf("coordinator proposed unexpected stage %s", decision.Next))
	}
}

// enterDiscussing moves responding -> discussing and spawns round one.
func (l *Launcher) enterDiscussing(ctx context.Context, launch *core.CouncilLaunch, council *core.Council, sessions map[core.SessionID]core.SessionState) error {
	answers := core.CollectOutputs(council.MemberAgentIDs, launch.MemberSessionIDs, sessions)

	staged := *launch
	staged.MemberAnswers = answers
	ids, err := l.spawnDiscussion(ctx, &staged, council, 1, nil)
	if err != nil {
		return err
	}

	updated, err := l.store.TryTransition(ctx, launch.ID, core.StageResponding, func(cl *core.CouncilLaunch) error {
		cl.MemberAnswers = answers
		cl.DiscussionRound = 1
		cl.DiscussionSessionIDs = ids
		cl.EnterStage(core.StageDiscussing)
		return nil
	})
	if err != nil {
		l.stopSessions(ctx, ids)
		return err
	}

	l.publish(events.NewStageChangedEvent(string(updated.ID), string(updated.Stage)))
	l.publish(events.NewSessionsSpawnedEvent(string(updated.ID), string(core.StageDiscussing), sessionStrings(ids)))
	l.publish(events.NewDiscussionAdvancedEvent(string(updated.ID), 1))
	l.appendLog(ctx, updated.ID, "info", "entered discussing, round 1")
	return nil
}

// nextDiscussionRound spawns another round within the discussing stage.
// The round counter is guarded inside the conditional write so two
// racing evaluations cannot double-advance it.
func (l *Launcher) nextDiscussionRound(ctx context.Context, launch *core.CouncilLaunch, council *core.Council, sessions map[core.SessionID]core.SessionState) error {
	finished := l.roundMessages(launch, council, sessions)

	history, err := l.store.ListDiscussionMessages(ctx, launch.ID)
	if err != nil {
		return err
	}
	history = append(history, finished...)

	round := launch.DiscussionRound + 1
	ids, err := l.spawnDiscussion(ctx, launch, council, round, history)
	if err != nil {
		return err
	}

	expectedRound := launch.DiscussionRound
	updated, err := l.store.TryTransition(ctx, launch.ID, core.StageDiscussing, func(cl *core.CouncilLaunch) error {
		if cl.DiscussionRound != expectedRound {
			return core.ErrStaleStage(string(cl.ID), core.StageDiscussing, cl.Stage)
		}
		cl.DiscussionRound = round
		cl.DiscussionSessionIDs = ids
		return nil
	})
	if err != nil {
		l.stopSessions(ctx, ids)
		return err
	}

	for _, msg := range finished {
		if err := l.store.AppendDiscussionMessage(ctx, msg); err != nil {
			l.logger.Warn("step: recording discussion message failed",
				"launch", launch.ID, "error", err)
		}
	}
	l.publish(events.NewSessionsSpawnedEvent(string(updated.ID), string(core.StageDiscussing), sessionStrings(ids)))
	l.publish(events.NewDiscussionAdvancedEvent(string(updated.ID), round))
	l.appendLog(ctx, updated.ID, "info", fmt.Sprintf("discussion advanced to round %d", round))
	return nil
}

// enterReviewing moves responding|discussing -> reviewing and spawns
// one review session per member.
func (l *Launcher) enterReviewing(ctx context.Context, launch *core.CouncilLaunch, council *core.Council, sessions map[core.SessionID]core.SessionState) error {
	from := launch.Stage

	staged := *launch
	if from == core.StageResponding {
		staged.MemberAnswers = core.CollectOutputs(council.MemberAgentIDs, launch.MemberSessionIDs, sessions)
	}

	reviewPrompt := buildReviewPrompt(&staged)
	ids := make([]core.SessionID, 0, len(council.MemberAgentIDs))
	for _, agentID := range council.MemberAgentIDs {
		sid, err := l.runtime.StartSession(ctx, agentID, launch.ProjectID, reviewPrompt)
		if err != nil {
			l.logger.Warn("step: review session failed to start",
				"launch", launch.ID, "agent", agentID, "error", err)
			sid = core.SessionID("unstarted-" + uuid.New().String())
		}
		ids = append(ids, sid)
	}

	var finished []*core.DiscussionMessage
	if from == core.StageDiscussing {
		finished = l.roundMessages(launch, council, sessions)
	}

	updated, err := l.store.TryTransition(ctx, launch.ID, from, func(cl *core.CouncilLaunch) error {
		if from == core.StageResponding {
			cl.MemberAnswers = staged.MemberAnswers
		}
		cl.ReviewSessionIDs = ids
		cl.EnterStage(core.StageReviewing)
		return nil
	})
	if err != nil {
		l.stopSessions(ctx, ids)
		return err
	}

	for _, msg := range finished {
		if err := l.store.AppendDiscussionMessage(ctx, msg); err != nil {
			l.logger.Warn("step: recording discussion message failed",
				"launch", launch.ID, "error", err)
		}
	}
	l.publish(events.NewStageChangedEvent(string(updated.ID), string(updated.Stage)))
	l.publish(events.NewSessionsSpawnedEvent(string(updated.ID), string(core.StageReviewing), sessionStrings(ids)))
	l.appendLog(ctx, updated.ID, "info", "entered reviewing")
	return nil
}

// enterSynthesizing records the finished stage's outputs and moves into
// synthesizing. No sessions are spawned; the synthesis itself runs on
// the next evaluation.
func (l *Launcher) enterSynthesizing(ctx context.Context, launch *core.CouncilLaunch, council *core.Council, sessions map[core.SessionID]core.SessionState, reason string) error {
	from := launch.Stage

	updated, err := l.store.TryTransition(ctx, launch.ID, from, func(cl *core.CouncilLaunch) error {
		switch from {
		case core.StageResponding:
			// All members failed; record the empty answer set so the
			// synthesizer still has the member roster to report on.
			cl.MemberAnswers = core.CollectOutputs(council.MemberAgentIDs, launch.MemberSessionIDs, sessions)
		case core.StageReviewing:
			cl.Reviews = core.CollectOutputs(council.MemberAgentIDs, launch.ReviewSessionIDs, sessions)
		}
		cl.EnterStage(core.StageSynthesizing)
		return nil
	})
	if err != nil {
		return err
	}

	l.publish(events.NewStageChangedEvent(string(updated.ID), string(updated.Stage)))
	l.appendLog(ctx, updated.ID, "info", "entered synthesizing: "+reason)
	return nil
}

// completeSynthesis runs the synthesizer and commits the final answer.
// Exactly-once comes from the conditional write, not from locking: if
// two evaluations synthesize concurrently, only one commit lands.
func (l *Launcher) completeSynthesis(ctx context.Context, launch *core.CouncilLaunch, council *core.Council) error {
	result, agentID, err := l.synth.Synthesize(ctx, launch, council, func(attempt int, attemptErr error, delay time.Duration) {
		l.publish(events.NewSynthesisRetriedEvent(string(launch.ID), attempt, attemptErr.Error()))
		l.logger.Warn("synthesis: attempt failed, retrying",
			"launch", launch.ID, "attempt", attempt, "delay", delay, "error", attemptErr)
	})
	if err != nil {
		l.publish(events.NewLaunchStuckEvent(string(launch.ID), string(launch.Stage), err.Error(), l.synth.retry.MaxAttempts))
		l.appendLog(ctx, launch.ID, "error", "synthesis failed: "+err.Error())
		l.logger.Error("synthesis: exhausted",
			"launch", launch.ID, "agent", agentID, "error", err)
		// Stay in synthesizing; the next tick or a manual trigger
		// retries from the durable record.
		return nil
	}

	_, chairman := l.synth.SelectAgent(council)
	updated, err := l.store.TryTransition(ctx, launch.ID, core.StageSynthesizing, func(cl *core.CouncilLaunch) error {
		cl.Synthesis = result
		cl.EnterStage(core.StageComplete)
		return nil
	})
	if err != nil {
		return err
	}

	l.publish(events.NewStageChangedEvent(string(updated.ID), string(updated.Stage)))
	l.publishPriority(events.NewLaunchCompletedEvent(string(updated.ID), chairman))
	l.appendLog(ctx, updated.ID, "info",
		fmt.Sprintf("synthesis by %s complete", agentID))
	l.logger.Info("launch: complete", "launch", updated.ID, "agent", agentID, "chairman", chairman)
	return nil
}

// =============================================================================
// Manual triggers
// =============================================================================

// Abort moves a launch into the aborted stage and stops its running
// sessions. Aborting an already aborted launch is a no-op; aborting a
// completed launch is an error.
func (l *Launcher) Abort(ctx context.Context, id core.LaunchID) (*core.CouncilLaunch, error) {
	launch, err := l.store.GetLaunch(ctx, id)
	if err != nil {
		return nil, err
	}
	if launch.Stage == core.StageAborted {
		return launch, nil
	}
	if launch.Stage == core.StageComplete {
		return nil, core.ErrValidation(core.CodeInvalidStage, "cannot abort a completed launch")
	}

	updated, err := l.store.TryTransition(ctx, id, launch.Stage, func(cl *core.CouncilLaunch) error {
		cl.Error = "aborted by user"
		cl.EnterStage(core.StageAborted)
		return nil
	})
	if core.IsStaleStage(err) {
		// The stage moved under us; re-read and retry once from there.
		current, getErr := l.store.GetLaunch(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Stage == core.StageAborted {
			return current, nil
		}
		if current.Stage == core.StageComplete {
			return nil, core.ErrValidation(core.CodeInvalidStage, "cannot abort a completed launch")
		}
		updated, err = l.store.TryTransition(ctx, id, current.Stage, func(cl *core.CouncilLaunch) error {
			cl.Error = "aborted by user"
			cl.EnterStage(core.StageAborted)
			return nil
		})
	}
	if err != nil {
		return nil, err
	}

	l.stopSessions(ctx, updated.MemberSessionIDs)
	l.stopSessions(ctx, updated.DiscussionSessionIDs)
	l.stopSessions(ctx, updated.ReviewSessionIDs)

	l.publishPriority(events.NewLaunchAbortedEvent(string(updated.ID), string(launch.Stage)))
	l.appendLog(ctx, updated.ID, "warn", "launch aborted")
	l.logger.Info("launch: aborted", "launch", updated.ID, "from", launch.Stage)
	return updated, nil
}

// Review forces the launch into reviewing without waiting for the
// current stage's sessions. Members still running are recorded as
// failed and their sessions stopped.
func (l *Launcher) Review(ctx context.Context, id core.LaunchID) (*core.CouncilLaunch, error) {
	launch, err := l.store.GetLaunch(ctx, id)
	if err != nil {
		return nil, err
	}
	if launch.Stage != core.StageResponding && launch.Stage != core.StageDiscussing {
		return nil, core.ErrStaleStage(string(id), core.StageResponding, launch.Stage)
	}
	council, err := l.store.GetCouncil(ctx, launch.CouncilID)
	if err != nil {
		return nil, err
	}

	sessions := l.observeSessions(ctx, launch)
	if launch.Stage == core.StageResponding {
		l.stopSessions(ctx, launch.MemberSessionIDs)
	} else {
		l.stopSessions(ctx, launch.DiscussionSessionIDs)
	}

	if err := l.enterReviewing(ctx, launch, council, sessions); err != nil {
		return nil, err
	}
	l.appendLog(ctx, id, "info", "review forced manually")
	return l.store.GetLaunch(ctx, id)
}

// Synthesize forces the launch out of reviewing and runs synthesis
// immediately. Review sessions still running are recorded as failed.
func (l *Launcher) Synthesize(ctx context.Context, id core.LaunchID) (*core.CouncilLaunch, error) {
	launch, err := l.store.GetLaunch(ctx, id)
	if err != nil {
		return nil, err
	}
	if launch.Stage != core.StageReviewing && launch.Stage != core.StageSynthesizing {
		return nil, core.ErrStaleStage(string(id), core.StageReviewing, launch.Stage)
	}
	council, err := l.store.GetCouncil(ctx, launch.CouncilID)
	if err != nil {
		return nil, err
	}

	if launch.Stage == core.StageReviewing {
		sessions := l.observeSessions(ctx, launch)
		l.stopSessions(ctx, launch.ReviewSessionIDs)
		if err := l.enterSynthesizing(ctx, launch, council, sessions, "synthesis forced manually"); err != nil {
			return nil, err
		}
		launch, err = l.store.GetLaunch(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	if err := l.completeSynthesis(ctx, launch, council); err != nil {
		return nil, err
	}
	return l.store.GetLaunch(ctx, id)
}

// Chat answers one follow-up turn against a completed launch. The turn
// is synchronous and bounded by ChatTimeout; it never mutates stage or
// synthesis.
func (l *Launcher) Chat(ctx context.Context, id core.LaunchID, message string) (*core.ChatMessage, error) {
	if message == "" {
		return nil, core.ErrValidation(core.CodeEmptyPrompt, "chat message cannot be empty")
	}
	launch, err := l.store.GetLaunch(ctx, id)
	if err != nil {
		return nil, err
	}
	if launch.Stage != core.StageComplete {
		return nil, core.ErrValidation(core.CodeInvalidStage,
			fmt.Sprintf("chat requires a completed launch, stage is %s", launch.Stage))
	}
	council, err := l.store.GetCouncil(ctx, launch.CouncilID)
	if err != nil {
		return nil, err
	}
	history, err := l.store.ListChatMessages(ctx, id)
	if err != nil {
		return nil, err
	}

	agentID, _ := l.synth.SelectAgent(council)
	prompt := buildChatPrompt(launch, history, message)

	chatCtx, cancel := context.WithTimeout(ctx, l.opts.ChatTimeout)
	defer cancel()
	reply, err := l.invoker.Invoke(chatCtx, agentID, prompt)
	if err != nil {
		return nil, err
	}

	now := l.now()
	userMsg := &core.ChatMessage{
		ID:        uuid.New().String(),
		LaunchID:  id,
		Role:      "user",
		Content:   message,
		CreatedAt: now,
	}
	councilMsg := &core.ChatMessage{
		ID:        uuid.New().String(),
		LaunchID:  id,
		Role:      "council",
		Content:   reply,
		CreatedAt: now,
	}
	if err := l.store.AppendChatMessage(ctx, userMsg); err != nil {
		return nil, err
	}
	if err := l.store.AppendChatMessage(ctx, councilMsg); err != nil {
		return nil, err
	}

	l.publish(events.NewChatReplyProducedEvent(string(id)))
	return councilMsg, nil
}

// =============================================================================
// Helpers
// =============================================================================

// spawnDiscussion starts one discussion session per member for the
// given round.
func (l *Launcher) spawnDiscussion(ctx context.Context, launch *core.CouncilLaunch, council *core.Council, round int, history []*core.DiscussionMessage) ([]core.SessionID, error) {
	ids := make([]core.SessionID, 0, len(council.MemberAgentIDs))
	for _, agentID := range council.MemberAgentIDs {
		prompt := buildDiscussionPrompt(launch, agentID, round, history)
		sid, err := l.runtime.StartSession(ctx, agentID, launch.ProjectID, prompt)
		if err != nil {
			l.logger.Warn("step: discussion session failed to start",
				"launch", launch.ID, "agent", agentID, "round", round, "error", err)
			sid = core.SessionID("unstarted-" + uuid.New().String())
		}
		ids = append(ids, sid)
	}
	return ids, nil
}

// roundMessages converts the current discussion round's session results
// into transcript messages.
func (l *Launcher) roundMessages(launch *core.CouncilLaunch, council *core.Council, sessions map[core.SessionID]core.SessionState) []*core.DiscussionMessage {
	outputs := core.CollectOutputs(council.MemberAgentIDs, launch.DiscussionSessionIDs, sessions)
	msgs := make([]*core.DiscussionMessage, 0, len(outputs))
	for _, out := range outputs {
		if out.Failed {
			continue
		}
		msgs = append(msgs, &core.DiscussionMessage{
			ID:        uuid.New().String(),
			LaunchID:  launch.ID,
			Round:     launch.DiscussionRound,
			AgentID:   out.AgentID,
			Content:   out.Content,
			CreatedAt: l.now(),
		})
	}
	return msgs
}

func (l *Launcher) stopSessions(ctx context.Context, ids []core.SessionID) {
	stopper, ok := l.runtime.(sessionStopper)
	if !ok {
		return
	}
	for _, sid := range ids {
		stopper.StopSession(ctx, sid)
	}
}

func (l *Launcher) appendLog(ctx context.Context, id core.LaunchID, level, message string) {
	if err := l.store.AppendLog(ctx, core.NewLogEntry(id, level, message)); err != nil {
		l.logger.Warn("step: appending launch log failed", "launch", id, "error", err)
	}
}

func (l *Launcher) publish(event events.Event) {
	if l.bus != nil {
		l.bus.Publish(event)
	}
}

func (l *Launcher) publishPriority(event events.Event) {
	if l.bus != nil {
		l.bus.PublishPriority(event)
	}
}

func sessionStrings(ids []core.SessionID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
