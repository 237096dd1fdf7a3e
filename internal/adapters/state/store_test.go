package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conclave-ai/conclave/internal/core"
)

// storeBackends runs the same suite over both LaunchStore implementations.
func storeBackends(t *testing.T) map[string]core.LaunchStore {
	t.Helper()

	sqlite, err := NewSQLiteLaunchStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]core.LaunchStore{
		"sqlite": sqlite,
		"json":   NewJSONLaunchStore(filepath.Join(t.TempDir(), "state.json")),
	}
}

func storeCouncil() *core.Council {
	return &core.Council{
		ID:              core.CouncilID(uuid.NewString()),
		Name:            "backend review board",
		MemberAgentIDs:  []core.AgentID{"claude", "gemini"},
		ChairmanAgentID: "claude",
	}
}

func mustCreateLaunch(t *testing.T, store core.LaunchStore, council *core.Council) *core.CouncilLaunch {
	t.Helper()
	launch, err := core.NewLaunch(council, "proj-1", "which cache should we use?")
	require.NoError(t, err)
	launch.MemberSessionIDs = []core.SessionID{"s1", "s2"}
	require.NoError(t, store.CreateLaunch(context.Background(), launch))
	return launch
}

func TestLaunchStore_CouncilCRUD(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			council := storeCouncil()

			require.NoError(t, store.SaveCouncil(ctx, council))

			got, err := store.GetCouncil(ctx, council.ID)
			require.NoError(t, err)
			assert.Equal(t, council.Name, got.Name)
			assert.Equal(t, council.MemberAgentIDs, got.MemberAgentIDs)
			assert.Equal(t, council.ChairmanAgentID, got.ChairmanAgentID)
			assert.False(t, got.CreatedAt.IsZero())

			// Upsert updates in place.
			council.Name = "renamed board"
			require.NoError(t, store.SaveCouncil(ctx, council))
			got, err = store.GetCouncil(ctx, council.ID)
			require.NoError(t, err)
			assert.Equal(t, "renamed board", got.Name)

			councils, err := store.ListCouncils(ctx)
			require.NoError(t, err)
			assert.Len(t, councils, 1)

			require.NoError(t, store.DeleteCouncil(ctx, council.ID))
			_, err = store.GetCouncil(ctx, council.ID)
			assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
			err = store.DeleteCouncil(ctx, council.ID)
			assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
		})
	}
}

func TestLaunchStore_CouncilValidation(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			bad := storeCouncil()
			bad.MemberAgentIDs = nil
			err := store.SaveCouncil(context.Background(), bad)
			assert.True(t, core.IsCategory(err, core.ErrCatValidation))
		})
	}
}

func TestLaunchStore_LaunchLifecycle(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			council := storeCouncil()
			require.NoError(t, store.SaveCouncil(ctx, council))
			launch := mustCreateLaunch(t, store, council)

			got, err := store.GetLaunch(ctx, launch.ID)
			require.NoError(t, err)
			assert.Equal(t, core.StageResponding, got.Stage)
			assert.Equal(t, launch.Prompt, got.Prompt)
			assert.Equal(t, []core.SessionID{"s1", "s2"}, got.MemberSessionIDs)

			_, err = store.GetLaunch(ctx, "missing")
			assert.True(t, core.IsCategory(err, core.ErrCatNotFound))

			all, err := store.ListLaunches(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 1)

			filtered, err := store.ListLaunches(ctx, council.ID)
			require.NoError(t, err)
			assert.Len(t, filtered, 1)

			none, err := store.ListLaunches(ctx, "other-council")
			require.NoError(t, err)
			assert.Empty(t, none)

			active, err := store.ListActiveLaunches(ctx)
			require.NoError(t, err)
			assert.Len(t, active, 1)
		})
	}
}

func TestLaunchStore_TryTransition(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			council := storeCouncil()
			require.NoError(t, store.SaveCouncil(ctx, council))
			launch := mustCreateLaunch(t, store, council)

			updated, err := store.TryTransition(ctx, launch.ID, core.StageResponding, func(l *core.CouncilLaunch) error {
				l.MemberAnswers = []core.MemberOutput{
					{AgentID: "claude", SessionID: "s1", Content: "use redis"},
					{AgentID: "gemini", SessionID: "s2", Content: "use memcached"},
				}
				l.ReviewSessionIDs = []core.SessionID{"r1", "r2"}
				l.EnterStage(core.StageReviewing)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, core.StageReviewing, updated.Stage)

			// Persisted, not just returned.
			got, err := store.GetLaunch(ctx, launch.ID)
			require.NoError(t, err)
			assert.Equal(t, core.StageReviewing, got.Stage)
			assert.Len(t, got.MemberAnswers, 2)
			assert.Equal(t, []core.SessionID{"r1", "r2"}, got.ReviewSessionIDs)
		})
	}
}

func TestLaunchStore_TryTransitionStale(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			council := storeCouncil()
			require.NoError(t, store.SaveCouncil(ctx, council))
			launch := mustCreateLaunch(t, store, council)

			// Wrong expected stage loses immediately.
			_, err := store.TryTransition(ctx, launch.ID, core.StageReviewing, func(l *core.CouncilLaunch) error {
				l.EnterStage(core.StageSynthesizing)
				return nil
			})
			assert.True(t, core.IsStaleStage(err))

			// First caller wins, second observes the moved stage.
			advance := func(l *core.CouncilLaunch) error {
				l.EnterStage(core.StageReviewing)
				return nil
			}
			_, err = store.TryTransition(ctx, launch.ID, core.StageResponding, advance)
			require.NoError(t, err)
			_, err = store.TryTransition(ctx, launch.ID, core.StageResponding, advance)
			assert.True(t, core.IsStaleStage(err))

			_, err = store.TryTransition(ctx, "missing", core.StageResponding, advance)
			assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
		})
	}
}

func TestLaunchStore_TryTransitionMutatorError(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			council := storeCouncil()
			require.NoError(t, store.SaveCouncil(ctx, council))
			launch := mustCreateLaunch(t, store, council)

			boom := core.ErrExecution("BOOM", "mutator failed")
			_, err := store.TryTransition(ctx, launch.ID, core.StageResponding, func(l *core.CouncilLaunch) error {
				l.EnterStage(core.StageReviewing)
				return boom
			})
			require.Error(t, err)

			// A failed mutator must not write anything.
			got, err := store.GetLaunch(ctx, launch.ID)
			require.NoError(t, err)
			assert.Equal(t, core.StageResponding, got.Stage)
		})
	}
}

func TestLaunchStore_TryTransitionRejectsBackwardMove(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			council := storeCouncil()
			require.NoError(t, store.SaveCouncil(ctx, council))
			launch := mustCreateLaunch(t, store, council)

			_, err := store.TryTransition(ctx, launch.ID, core.StageResponding, func(l *core.CouncilLaunch) error {
				l.EnterStage(core.StageReviewing)
				return nil
			})
			require.NoError(t, err)

			_, err = store.TryTransition(ctx, launch.ID, core.StageReviewing, func(l *core.CouncilLaunch) error {
				l.EnterStage(core.StageResponding)
				return nil
			})
			require.Error(t, err)
			assert.True(t, core.IsCategory(err, core.ErrCatState))

			got, err := store.GetLaunch(ctx, launch.ID)
			require.NoError(t, err)
			assert.Equal(t, core.StageReviewing, got.Stage)
		})
	}
}

func TestLaunchStore_TryTransitionEnforcesSynthesisInvariant(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			council := storeCouncil()
			require.NoError(t, store.SaveCouncil(ctx, council))
			launch := mustCreateLaunch(t, store, council)

			// Completing without a synthesis is state corruption.
			_, err := store.TryTransition(ctx, launch.ID, core.StageResponding, func(l *core.CouncilLaunch) error {
				l.EnterStage(core.StageComplete)
				return nil
			})
			require.Error(t, err)

			got, err := store.GetLaunch(ctx, launch.ID)
			require.NoError(t, err)
			assert.Equal(t, core.StageResponding, got.Stage)
		})
	}
}

func TestLaunchStore_DiscussionMessages(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			council := storeCouncil()
			require.NoError(t, store.SaveCouncil(ctx, council))
			launch := mustCreateLaunch(t, store, council)

			base := time.Now().Add(-time.Minute)
			for i, agent := range []core.AgentID{"claude", "gemini"} {
				msg := &core.DiscussionMessage{
					ID:        uuid.NewString(),
					LaunchID:  launch.ID,
					Round:     1,
					AgentID:   agent,
					Content:   "point " + string(agent),
					CreatedAt: base.Add(time.Duration(i) * time.Second),
				}
				require.NoError(t, store.AppendDiscussionMessage(ctx, msg))
			}

			msgs, err := store.ListDiscussionMessages(ctx, launch.ID)
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, core.AgentID("claude"), msgs[0].AgentID)
			assert.Equal(t, core.AgentID("gemini"), msgs[1].AgentID)

			empty, err := store.ListDiscussionMessages(ctx, "other-launch")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestLaunchStore_ChatMessages(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			council := storeCouncil()
			require.NoError(t, store.SaveCouncil(ctx, council))
			launch := mustCreateLaunch(t, store, council)

			base := time.Now().Add(-time.Minute)
			require.NoError(t, store.AppendChatMessage(ctx, &core.ChatMessage{
				ID: uuid.NewString(), LaunchID: launch.ID,
				Role: "user", Content: "why redis?", CreatedAt: base,
			}))
			require.NoError(t, store.AppendChatMessage(ctx, &core.ChatMessage{
				ID: uuid.NewString(), LaunchID: launch.ID,
				Role: "council", Content: "persistence story", CreatedAt: base.Add(time.Second),
			}))

			msgs, err := store.ListChatMessages(ctx, launch.ID)
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, "user", msgs[0].Role)
			assert.Equal(t, "council", msgs[1].Role)
		})
	}
}

func TestLaunchStore_Logs(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			council := storeCouncil()
			require.NoError(t, store.SaveCouncil(ctx, council))
			launch := mustCreateLaunch(t, store, council)

			entry := core.NewLogEntry(launch.ID, "info", "launch created")
			require.NoError(t, store.AppendLog(ctx, entry))

			logs, err := store.ListLogs(ctx, launch.ID)
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, "launch created", logs[0].Message)
			assert.Equal(t, "info", logs[0].Level)
		})
	}
}

func TestJSONLaunchStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	store := NewJSONLaunchStore(path)
	council := storeCouncil()
	require.NoError(t, store.SaveCouncil(ctx, council))
	launch := mustCreateLaunch(t, store, council)

	reopened := NewJSONLaunchStore(path)
	got, err := reopened.GetLaunch(ctx, launch.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StageResponding, got.Stage)
}

func TestNewLaunchStore_Factory(t *testing.T) {
	dir := t.TempDir()

	store, err := NewLaunchStore("sqlite", filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	_, ok := store.(*SQLiteLaunchStore)
	assert.True(t, ok)
	require.NoError(t, CloseLaunchStore(store))

	store, err = NewLaunchStore("json", filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	_, ok = store.(*JSONLaunchStore)
	assert.True(t, ok)

	_, err = NewLaunchStore("mongodb", filepath.Join(dir, "state"))
	require.Error(t, err)
}
