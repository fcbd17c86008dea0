package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/metrics"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

func TestMetrics_AssignmentCounters(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	assignedBefore := metrics.Assignments.Value()
	blockedBefore := metrics.BlockedAssignments.Value()
	savesBefore := metrics.StoreSaves.Value()
	checksBefore := metrics.ConflictChecks.Value()

	_, err := coord.AssignPilot(ctx, "M1", "P2")
	require.Error(t, err)
	_, err = coord.AssignPilot(ctx, "M1", "P1")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, metrics.Assignments.Value()-assignedBefore, int64(1))
	assert.GreaterOrEqual(t, metrics.BlockedAssignments.Value()-blockedBefore, int64(1))
	// mission + pilot
	assert.GreaterOrEqual(t, metrics.StoreSaves.Value()-savesBefore, int64(2))
	assert.GreaterOrEqual(t, metrics.ConflictChecks.Value()-checksBefore, int64(2))
}

func TestMetrics_CandidateSearches(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	before := metrics.CandidateSearches.Value()

	_, err := coord.FindReplacementCandidates(context.Background(), "M1", models.UrgencyNormal)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, metrics.CandidateSearches.Value()-before, int64(1))
}
