package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rostermine/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleRun(id string) model.AnalysisRun {
	return model.AnalysisRun{
		ID:     id,
		Source: "roster.csv",
		Status: model.RunStatusComplete,
		Result: &model.ResultBundle{
			Rules: []model.Rule{
				{
					Subject:     "alice",
					Type:        model.RuleWeeklyLimit,
					Description: "alice works at most 3 days per week",
					Confidence:  0.92,
					Evidence:    map[string]any{"weeks_observed": 8.0},
					Segment:     model.SegmentOverall,
				},
			},
			MachineReadable: model.MachineReadable{
				HardConstraints: []model.ConstraintEntry{
					{
						ID:          "rule-001",
						Type:        string(model.RuleWeeklyLimit),
						Category:    "weekly_limits",
						Description: "alice works at most 3 days per week",
						Priority:    1,
						Confidence:  0.92,
					},
				},
			},
			RuleCount: 1,
		},
		RecordCnt: 120,
		RuleCount: 1,
		CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestSQLite_SaveAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, sampleRun("run-1")))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, "roster.csv", got.Source)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, 120, got.RecordCnt)
	require.NotNil(t, got.Result)
	require.Len(t, got.Result.Rules, 1)
	assert.Equal(t, "alice", got.Result.Rules[0].Subject)
	require.Len(t, got.Result.MachineReadable.HardConstraints, 1)
	assert.InDelta(t, 0.92, got.Result.MachineReadable.HardConstraints[0].Confidence, 1e-9)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_SaveRun_NilResult(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := sampleRun("run-nil")
	run.Result = nil
	run.Status = model.RunStatusFailed
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, "run-nil")
	require.NoError(t, err)
	assert.Nil(t, got.Result)
	assert.Equal(t, model.RunStatusFailed, got.Status)
}

func TestSQLite_ListRuns_FilterAndOrder(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := sampleRun("run-a")
	a.CreatedAt = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	b := sampleRun("run-b")
	b.CreatedAt = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c := sampleRun("run-c")
	c.Source = "other.xlsx"
	c.Status = model.RunStatusFailed
	c.CreatedAt = time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)

	for _, r := range []model.AnalysisRun{a, b, c} {
		require.NoError(t, st.SaveRun(ctx, r))
	}

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "run-c", all[0].ID) // newest first
	assert.Equal(t, "run-b", all[1].ID)
	assert.Equal(t, "run-a", all[2].ID)

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 2)

	bySource, err := st.ListRuns(ctx, RunFilter{Source: "other.xlsx"})
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, "run-c", bySource[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-b", limited[0].ID)
}

func TestSQLite_DeleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, sampleRun("run-del")))
	require.NoError(t, st.DeleteRun(ctx, "run-del"))

	_, err := st.GetRun(ctx, "run-del")
	assert.ErrorIs(t, err, ErrNotFound)

	err = st.DeleteRun(ctx, "run-del")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_SaveRun_DefaultsCreatedAt(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := sampleRun("run-ts")
	run.CreatedAt = time.Time{}
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, "run-ts")
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())
}
