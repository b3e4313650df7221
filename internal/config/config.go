package config

import (
	"os"
	"strconv"
)

// MatchTuning holds the duplicate-detection heuristics. The boost and floor
// values were tuned empirically against real Vista extracts, so they are
// deployment configuration rather than code.
type MatchTuning struct {
	// MinSimilarity is the default score cutoff for duplicate candidates.
	MinSimilarity float64
	// SecondaryBoost is added when a corroborating field (e.g. city)
	// matches exactly. Capped so the final score never exceeds 1.
	SecondaryBoost float64
	// StrongFieldFloor raises the score to at least this value when a
	// strong discriminating field (e.g. last name) matches exactly.
	StrongFieldFloor float64
	// MaxCandidates caps how many candidates are kept per record.
	MaxCandidates int
}

// LoadTuning reads the tuning knobs from the environment, falling back to
// the defaults the matcher shipped with.
func LoadTuning() MatchTuning {
	return MatchTuning{
		MinSimilarity:    envFloat("RECON_MIN_SIMILARITY", 0.5),
		SecondaryBoost:   envFloat("RECON_SECONDARY_BOOST", 0.1),
		StrongFieldFloor: envFloat("RECON_STRONG_FIELD_FLOOR", 0.7),
		MaxCandidates:    envInt("RECON_MAX_CANDIDATES", 5),
	}
}

func envFloat(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
