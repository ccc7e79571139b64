package rules

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/diamondsgame/internal/model"
)

// Rules holds every tunable constant of the trial
type Rules struct {
	Rounds   int `yaml:"rounds"`
	HandSize int `yaml:"hand_size"`

	// Phase durations in seconds. Idle and end never time out.
	Durations map[model.Phase]int `yaml:"durations"`

	Specials SpecialCounts `yaml:"specials"`
	Scoring  ScoringRules  `yaml:"scoring"`

	// CureMin and CureMax bound the value of a cured or neutralized zombie
	CureMin int `yaml:"cure_min"`
	CureMax int `yaml:"cure_max"`

	// TransitionLease is how long an election marker blocks other claimants
	TransitionLease time.Duration `yaml:"transition_lease"`
	// PauseNudge is the fixed increment by which a paused phase start is pushed
	PauseNudge time.Duration `yaml:"pause_nudge"`
}

// SpecialCounts is the number of each special card in a session deck
type SpecialCounts struct {
	Zombie    int `yaml:"zombie"`
	Injection int `yaml:"injection"`
	Shotgun   int `yaml:"shotgun"`
}

// Total returns the number of special cards
func (s SpecialCounts) Total() int {
	return s.Zombie + s.Injection + s.Shotgun
}

// ScoringRules holds the score deltas applied after each battle
type ScoringRules struct {
	Win        int `yaml:"win"`
	Loss       int `yaml:"loss"`
	Eliminated int `yaml:"eliminated"`
	TeamWin    int `yaml:"team_win"`
	TeamLoss   int `yaml:"team_loss"`
}

// Default returns the standard Diamonds rules
func Default() Rules {
	return Rules{
		Rounds:   5,
		HandSize: 7,
		Durations: map[model.Phase]int{
			model.PhaseBriefing:   10,
			model.PhaseShuffle:    5,
			model.PhaseDealing:    8,
			model.PhaseSlotting:   80,
			model.PhaseEvaluation: 10,
			model.PhaseScoring:    30,
			model.PhasePicking:    10,
		},
		Specials: SpecialCounts{Zombie: 1, Injection: 2, Shotgun: 2},
		Scoring: ScoringRules{
			Win:        200,
			Loss:       -100,
			Eliminated: -500,
			TeamWin:    300,
			TeamLoss:   -100,
		},
		CureMin:         2,
		CureMax:         9,
		TransitionLease: 15 * time.Second,
		PauseNudge:      time.Second,
	}
}

// Duration returns the configured duration of a phase in seconds
func (r Rules) Duration(p model.Phase) int {
	return r.Durations[p]
}

// Validate checks the rules are internally consistent
func (r Rules) Validate() error {
	if r.Rounds < 1 {
		return errors.New("rounds must be at least 1")
	}
	if r.HandSize < 1 {
		return errors.New("hand_size must be at least 1")
	}
	if r.Specials.Total() > r.HandSize {
		return fmt.Errorf("%d special cards cannot fit in one hand of %d", r.Specials.Total(), r.HandSize)
	}
	if r.CureMin < int(model.RankMin) || r.CureMax > int(model.RankMax) || r.CureMin > r.CureMax {
		return fmt.Errorf("cure range [%d,%d] is not a valid rank range", r.CureMin, r.CureMax)
	}
	for p, secs := range r.Durations {
		if !p.Valid() || p.IsRest() {
			return fmt.Errorf("duration set for non-timed phase %q", p)
		}
		if secs < 0 {
			return fmt.Errorf("duration for %s is negative", p)
		}
	}
	if r.TransitionLease <= 0 {
		return errors.New("transition_lease must be positive")
	}
	return nil
}

// LoadFile reads a YAML rules file. Fields absent from the file keep
// their default values.
func LoadFile(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, err
	}
	return Parse(data)
}

// Parse decodes YAML rules on top of the defaults
func Parse(data []byte) (Rules, error) {
	r := Default()
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules YAML: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid rules: %w", err)
	}
	return r, nil
}
