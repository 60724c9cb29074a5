package config

import (
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Heuristics holds the tunable classification and extraction thresholds. The
// defaults were calibrated against the P3FES English script; a YAML file can
// override any subset of them.
type Heuristics struct {
	// FrenchHigh is the french-indicator/word ratio above which a file counts
	// as fully translated.
	FrenchHigh float64 `yaml:"french_high"`
	// EnglishLow is the english-indicator/word ratio below which residual
	// English is ignored for the Translated verdict.
	EnglishLow float64 `yaml:"english_low"`
	// IndicatorFloor is the minimal ratio for either language to count as
	// present at all.
	IndicatorFloor float64 `yaml:"indicator_floor"`
	// MinRunLength is the minimal printable-run length the heuristic scanner
	// considers a candidate span.
	MinRunLength int `yaml:"min_run_length"`
	// MinScore gates heuristic-scanned spans: candidates scoring below it are
	// dropped (not an error).
	MinScore float64 `yaml:"min_score"`
	// MaxSpecialRatio rejects candidate spans with too many non-text bytes.
	MaxSpecialRatio float64 `yaml:"max_special_ratio"`
}

// DefaultHeuristics returns the built-in thresholds.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		FrenchHigh:      0.6,
		EnglishLow:      0.1,
		IndicatorFloor:  0.05,
		MinRunLength:    4,
		MinScore:        0.3,
		MaxSpecialRatio: 0.3,
	}
}

// LoadHeuristics merges a YAML overrides file over the defaults. A missing or
// empty path yields the defaults.
func LoadHeuristics(path string) Heuristics {
	h := DefaultHeuristics()
	if path == "" {
		return h
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Heuristics file not readable, using defaults")
		return h
	}

	if err := yaml.Unmarshal(data, &h); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Heuristics file not parseable, using defaults")
		return DefaultHeuristics()
	}

	log.Info().Str("path", path).Msg("Loaded heuristics overrides")
	return h
}
