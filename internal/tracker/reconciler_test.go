package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copylog/copylog/internal/cache"
	"github.com/copylog/copylog/internal/types"
)

func TestSameWork(t *testing.T) {
	base := worklog("1", "alice", "debug", 3600, time.Date(2024, 1, 10, 9, 0, 0, 0, manila))

	tests := []struct {
		name  string
		other types.Worklog
		want  bool
	}{
		{"same day later hour", worklog("x", "bob", "debug", 3600, time.Date(2024, 1, 10, 14, 0, 0, 0, manila)), true},
		{"different comment", worklog("x", "bob", "debugging", 3600, time.Date(2024, 1, 10, 9, 0, 0, 0, manila)), false},
		{"different duration", worklog("x", "bob", "debug", 3660, time.Date(2024, 1, 10, 9, 0, 0, 0, manila)), false},
		{"next day", worklog("x", "bob", "debug", 3600, time.Date(2024, 1, 11, 0, 0, 0, 0, manila)), false},
		{"same instant other offset", worklog("x", "bob", "debug", 3600, time.Date(2024, 1, 10, 1, 0, 0, 0, time.UTC)), true},
		{"same id other comment", worklog("1", "bob", "other", 3600, time.Date(2024, 1, 10, 9, 0, 0, 0, manila)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameWork(&base, &tt.other, manila); got != tt.want {
				t.Errorf("SameWork() = %v, want %v", got, tt.want)
			}
			if got := SameWork(&tt.other, &base, manila); got != tt.want {
				t.Errorf("SameWork() not symmetric: reversed = %v", got)
			}
		})
	}
}

func TestSameWorkUsesReferenceZone(t *testing.T) {
	// 23:30 UTC on the 10th is 07:30 on the 11th in UTC+8.
	existing := worklog("1", "bob", "debug", 3600, time.Date(2024, 1, 10, 23, 30, 0, 0, time.UTC))
	candidate := worklog("2", "alice", "debug", 3600, time.Date(2024, 1, 11, 8, 0, 0, 0, manila))

	assert.True(t, SameWork(&existing, &candidate, manila))
	assert.False(t, SameWork(&existing, &candidate, time.UTC))
}

func TestSameWorkAcrossMidnight(t *testing.T) {
	// 23:30+08:00 is January 10 and 16:05+00:00 is 00:05 on January 11 in UTC+8.
	late := worklog("1", "alice", "debug", 3600, time.Date(2024, 1, 10, 23, 30, 0, 0, manila))
	early := worklog("2", "bob", "debug", 3600, time.Date(2024, 1, 10, 16, 5, 0, 0, time.UTC))

	assert.False(t, SameWork(&late, &early, manila))
	assert.False(t, SameWork(&early, &late, manila))
}

func candidateOn(issue *types.Issue, started time.Time) *types.Worklog {
	wl := worklog("1", "alice", "debug", 3600, started)
	wl.Issue = issue
	return &wl
}

func TestReconcileSkipsDuplicate(t *testing.T) {
	ctx := context.Background()
	dst := newFakeTracker("bob")
	target := types.Issue{Key: "AIL-7", Summary: "[SS-12] Fix login"}
	dst.addIssue(target, worklog("900", "bob", "debug", 3600, time.Date(2024, 1, 10, 14, 0, 0, 0, manila)))

	r := NewReconciler(dst, cache.Nop{}, manila, testLogger())
	outcome, err := r.Reconcile(ctx, &target, candidateOn(sourceIssue(), time.Date(2024, 1, 10, 9, 0, 0, 0, manila)), "bob", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Zero(t, dst.calls["CreateWorklog"])
}

func TestReconcileIgnoresOtherAuthors(t *testing.T) {
	ctx := context.Background()
	dst := newFakeTracker("bob")
	target := types.Issue{Key: "AIL-7"}
	dst.addIssue(target, worklog("900", "carol", "debug", 3600, time.Date(2024, 1, 10, 14, 0, 0, 0, manila)))

	r := NewReconciler(dst, cache.Nop{}, manila, testLogger())
	outcome, err := r.Reconcile(ctx, &target, candidateOn(sourceIssue(), time.Date(2024, 1, 10, 9, 0, 0, 0, manila)), "bob", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCopied, outcome)
}

func TestReconcileCopies(t *testing.T) {
	ctx := context.Background()
	dst := newFakeTracker("bob")
	target := types.Issue{Key: "AIL-7"}
	dst.addIssue(target)

	src := sourceIssue()
	src.Progress = types.Progress{Progress: 3600, Total: 9000}
	started := time.Date(2024, 1, 10, 9, 0, 0, 0, manila)

	r := NewReconciler(dst, cache.Nop{}, manila, testLogger())
	outcome, err := r.Reconcile(ctx, &target, candidateOn(src, started), "bob", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCopied, outcome)

	require.Len(t, dst.createdLogs, 1)
	got := dst.createdLogs[0]
	assert.Equal(t, "AIL-7", got.IssueKey)
	assert.Equal(t, "debug", got.Input.Comment)
	assert.Equal(t, 3600, got.Input.TimeSpentSeconds)
	assert.True(t, got.Input.Started.Equal(started))
	require.NotNil(t, got.Adjust)
	assert.Equal(t, "new", got.Adjust.Mode)
	assert.Equal(t, "90m", got.Adjust.NewEstimate)
}

func TestReconcileDryRun(t *testing.T) {
	dst := newFakeTracker("bob")
	target := types.Issue{Key: "AIL-7"}
	dst.addIssue(target)

	r := NewReconciler(dst, cache.Nop{}, manila, testLogger())
	outcome, err := r.Reconcile(context.Background(), &target, candidateOn(sourceIssue(), time.Now()), "bob", true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWouldCopy, outcome)
	assert.Zero(t, dst.calls["CreateWorklog"])
}

func TestReconcileInvalidatesCacheAfterCopy(t *testing.T) {
	ctx := context.Background()
	dst := newFakeTracker("bob")
	target := types.Issue{Key: "AIL-7"}
	dst.addIssue(target)
	c := cache.NewMemory()
	started := time.Date(2024, 1, 10, 9, 0, 0, 0, manila)

	r := NewReconciler(dst, c, manila, testLogger())
	outcome, err := r.Reconcile(ctx, &target, candidateOn(sourceIssue(), started), "bob", false)
	require.NoError(t, err)
	require.Equal(t, OutcomeCopied, outcome)

	// The same work seen again in the same run is recognised.
	outcome, err = r.Reconcile(ctx, &target, candidateOn(sourceIssue(), started), "bob", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, 1, dst.calls["CreateWorklog"])
}

func TestReconcileErrors(t *testing.T) {
	ctx := context.Background()
	target := types.Issue{Key: "AIL-7"}

	t.Run("fetch failure", func(t *testing.T) {
		dst := newFakeTracker("bob")
		dst.worklogErr["AIL-7"] = errors.New("jira API returned 404")
		r := NewReconciler(dst, cache.Nop{}, manila, testLogger())
		_, err := r.Reconcile(ctx, &target, candidateOn(sourceIssue(), time.Now()), "bob", false)

		var rq *RemoteQueryError
		assert.ErrorAs(t, err, &rq)
	})

	t.Run("create failure", func(t *testing.T) {
		dst := newFakeTracker("bob")
		dst.addIssue(target)
		dst.createWorklogErr = errors.New("jira API returned 403")
		r := NewReconciler(dst, cache.Nop{}, manila, testLogger())
		_, err := r.Reconcile(ctx, &target, candidateOn(sourceIssue(), time.Now()), "bob", false)
		assert.ErrorContains(t, err, "create worklog on AIL-7")
	})
}
