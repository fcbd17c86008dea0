// Package rank scores and orders replacement pilots for a mission and
// applies the resulting reassignment to in-memory records.
package rank

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/conflict"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/match"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/metrics"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

// MaxCandidates caps how many candidates a search returns.
const MaxCandidates = 3

// Weights controls the relative importance of each ranking factor.
// Lower scores rank first.
type Weights struct {
	Priority         float64 `json:"priority" mapstructure:"priority"`
	Conflict         float64 `json:"conflict" mapstructure:"conflict"`
	LocationMismatch float64 `json:"location_mismatch" mapstructure:"location_mismatch"`
	Experience       float64 `json:"experience" mapstructure:"experience"`
}

// DefaultWeights returns the standard ranking weights.
func DefaultWeights() Weights {
	return Weights{
		Priority:         1,
		Conflict:         5,
		LocationMismatch: 10,
		Experience:       0.01,
	}
}

// Ranker performs greedy weighted ranking of replacement pilots.
type Ranker struct {
	weights  Weights
	limit    int
	detector *conflict.Detector
	logger   *slog.Logger
}

// NewRanker creates a ranker. A limit outside 1..MaxCandidates is clamped to MaxCandidates.
func NewRanker(weights Weights, limit int, detector *conflict.Detector, logger *slog.Logger) *Ranker {
	if limit <= 0 || limit > MaxCandidates {
		limit = MaxCandidates
	}
	return &Ranker{
		weights:  weights,
		limit:    limit,
		detector: detector,
		logger:   logger,
	}
}

// FindReplacementCandidates returns up to the configured limit of pilots
// able to fly mission, best first. Every candidate covers the required
// skills and certifications. Below critical urgency, benched pilots and
// pilots with a critical conflict are excluded.
func (r *Ranker) FindReplacementCandidates(snap *models.Snapshot, mission models.Mission, urgency models.Urgency, pilots []models.Pilot) ([]models.RankedCandidate, error) {
	if err := mission.CheckDates(); err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	metrics.Inc(metrics.CandidateSearches)

	critical := urgency == models.UrgencyCritical
	ranked := make([]models.RankedCandidate, 0, len(pilots))

	for i := range pilots {
		p := pilots[i]
		if !match.HasAll(mission.RequiredSkills, p.Skills) || !match.HasAll(mission.RequiredCertifications, p.Certifications) {
			continue
		}
		if !critical && p.Status.Benched() {
			continue
		}

		conflicts, err := r.detector.Detect(snap, &p, nil, mission)
		if err != nil {
			return nil, fmt.Errorf("find candidates: %w", err)
		}
		if !critical && conflict.HasCritical(conflicts) {
			continue
		}
		if conflicts == nil {
			conflicts = []models.Conflict{}
		}

		locationMatch := match.LocationsMatch(p.Location, mission.Location)
		ranked = append(ranked, models.RankedCandidate{
			Pilot:         p.Clone(),
			Score:         r.score(p, len(conflicts), locationMatch),
			Conflicts:     conflicts,
			LocationMatch: locationMatch,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].Pilot.ID < ranked[j].Pilot.ID
	})

	r.logger.Debug("ranked replacement candidates",
		"mission_id", mission.ID, "urgency", urgency, "eligible", len(ranked), "limit", r.limit)

	if len(ranked) > r.limit {
		ranked = ranked[:r.limit]
	}
	return ranked, nil
}

func (r *Ranker) score(p models.Pilot, conflicts int, locationMatch bool) float64 {
	s := r.weights.Priority*float64(p.Priority) +
		r.weights.Conflict*float64(conflicts) -
		r.weights.Experience*p.ExperienceHours
	if !locationMatch {
		s += r.weights.LocationMismatch
	}
	return s
}
