package reconcile

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"vista-reconciliation-backend/internal/models"
	"vista-reconciliation-backend/internal/services/similarity"
)

// DuplicateCandidate is one unclaimed canonical entity proposed as a match.
type DuplicateCandidate struct {
	CanonicalID  uuid.UUID `json:"canonical_id"`
	Number       string    `json:"number"`
	Name         string    `json:"name"`
	Score        float64   `json:"score"`
	MatchedField string    `json:"matched_field"`
}

// DuplicateGroup holds the ranked candidates for one unmatched record.
type DuplicateGroup struct {
	ExternalID uuid.UUID            `json:"external_id"`
	NaturalKey string               `json:"natural_key"`
	Label      string               `json:"label"`
	BestScore  float64              `json:"best_score"`
	Candidates []DuplicateCandidate `json:"candidates"`
}

// FindDuplicates proposes canonical counterparts for unmatched records of one
// type, for human review. Canonical entities already claimed by any record of
// the type are excluded from candidacy. Purely advisory: nothing is written.
func (s *Service) FindDuplicates(entityType string, tenant uuid.UUID, minSimilarity float64) ([]DuplicateGroup, error) {
	d, err := s.descriptor(entityType)
	if err != nil {
		return nil, err
	}
	if minSimilarity <= 0 {
		minSimilarity = s.tuning.MinSimilarity
	}

	records, err := d.listByStatus(s.db, tenant, models.StatusUnmatched)
	if err != nil {
		return nil, err
	}
	candidates, err := d.candidates(s.db, tenant)
	if err != nil {
		return nil, err
	}

	var groups []DuplicateGroup
	for _, rec := range records {
		prof := d.profile(rec)

		var kept []DuplicateCandidate
		for _, cand := range candidates {
			score, field := s.scoreCandidate(prof, cand)
			if score < minSimilarity {
				continue
			}
			kept = append(kept, DuplicateCandidate{
				CanonicalID:  cand.ID,
				Number:       cand.Number,
				Name:         cand.Name,
				Score:        score,
				MatchedField: field,
			})
		}
		if len(kept) == 0 {
			continue
		}

		sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
		if len(kept) > s.tuning.MaxCandidates {
			kept = kept[:s.tuning.MaxCandidates]
		}

		groups = append(groups, DuplicateGroup{
			ExternalID: rec.RecordID(),
			NaturalKey: rec.NaturalKey(),
			Label:      rec.Label(),
			BestScore:  kept[0].Score,
			Candidates: kept,
		})
	}

	// Most confident, most actionable matches first.
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].BestScore > groups[j].BestScore })
	return groups, nil
}

// scoreCandidate scores a record profile against one candidate: bigram
// similarity over the best-fitting name field, a fixed boost when a
// corroborating secondary field (city) matches exactly, and a floor when a
// strong discriminating field (last name) matches exactly.
func (s *Service) scoreCandidate(prof dupProfile, cand Candidate) (float64, string) {
	best := 0.0
	field := ""
	for _, nv := range prof.Names {
		if nv.Value == "" || cand.Name == "" {
			continue
		}
		if score := similarity.Score(nv.Value, cand.Name); score > best {
			best = score
			field = nv.Field
		}
	}

	if prof.City != "" && cand.City != "" && strings.EqualFold(strings.TrimSpace(prof.City), strings.TrimSpace(cand.City)) {
		best += s.tuning.SecondaryBoost
		if best > 1 {
			best = 1
		}
	}
	if prof.LastName != "" && cand.LastName != "" &&
		strings.EqualFold(strings.TrimSpace(prof.LastName), strings.TrimSpace(cand.LastName)) &&
		best < s.tuning.StrongFieldFloor {
		best = s.tuning.StrongFieldFloor
		field = "last_name"
	}
	return best, field
}

// DuplicateStats buckets the duplicate list by confidence tier for operator
// triage.
type DuplicateStats struct {
	Total  int `json:"total"`
	High   int `json:"high"`   // best score >= 0.8
	Medium int `json:"medium"` // 0.6 <= best score < 0.8
	Low    int `json:"low"`    // below 0.6
}

func (s *Service) DuplicateStatsFor(entityType string, tenant uuid.UUID, minSimilarity float64) (DuplicateStats, error) {
	var stats DuplicateStats
	groups, err := s.FindDuplicates(entityType, tenant, minSimilarity)
	if err != nil {
		return stats, err
	}
	stats.Total = len(groups)
	for _, g := range groups {
		switch {
		case g.BestScore >= 0.8:
			stats.High++
		case g.BestScore >= 0.6:
			stats.Medium++
		default:
			stats.Low++
		}
	}
	return stats, nil
}
