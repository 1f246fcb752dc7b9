// Package sampling implements tail sampling for wide events: the
// keep/drop decision runs after the operation completes, so it can key
// off outcome and latency.
package sampling

import (
	"math/rand"

	"github.com/caselight/widelog/internal/event"
)

// Config controls the sampling decision.
type Config struct {
	// Rate is the baseline keep probability in [0, 1] for events not
	// matched by any override rule.
	Rate float64 `koanf:"sampling_rate"`

	// TailSampling is recorded for operators but does not change the
	// decision point: the draw always happens at finalization.
	TailSampling bool `koanf:"tail_sampling"`

	// AlwaysSampleErrors keeps every event with an error outcome or a
	// 5xx status code.
	AlwaysSampleErrors bool `koanf:"always_sample_errors"`

	// AlwaysSampleSlow keeps every event slower than SlowThresholdMS.
	AlwaysSampleSlow bool  `koanf:"always_sample_slow"`
	SlowThresholdMS  int64 `koanf:"slow_threshold_ms"`

	// Users and Projects are allowlists of identifiers whose events are
	// always kept.
	Users    []string `koanf:"always_sample_users"`
	Projects []string `koanf:"always_sample_projects"`
}

// DefaultConfig keeps every error and slow operation plus 10% of the
// rest.
func DefaultConfig() Config {
	return Config{
		Rate:               0.1,
		TailSampling:       true,
		AlwaysSampleErrors: true,
		AlwaysSampleSlow:   true,
		SlowThresholdMS:    1000,
	}
}

// Strategy decides which finalized events are kept. Stateless beyond
// its configuration; safe for concurrent use.
type Strategy struct {
	cfg      Config
	users    map[string]bool
	projects map[string]bool

	// draw is the uniform [0,1) source, replaceable in tests.
	draw func() float64
}

// NewStrategy builds a Strategy from cfg. Rates outside [0,1] are
// clamped.
func NewStrategy(cfg Config) *Strategy {
	if cfg.Rate < 0 {
		cfg.Rate = 0
	}
	if cfg.Rate > 1 {
		cfg.Rate = 1
	}

	users := make(map[string]bool, len(cfg.Users))
	for _, u := range cfg.Users {
		users[u] = true
	}
	projects := make(map[string]bool, len(cfg.Projects))
	for _, p := range cfg.Projects {
		projects[p] = true
	}

	return &Strategy{
		cfg:      cfg,
		users:    users,
		projects: projects,
		draw:     rand.Float64,
	}
}

// ShouldSample reports whether e is kept. Rules run in order and the
// first match wins; events matching no rule fall through to the
// baseline rate draw. Missing optional fields never match their rule.
func (s *Strategy) ShouldSample(e *event.Event) bool {
	if s.cfg.AlwaysSampleErrors {
		if e.Outcome() == event.OutcomeError || e.StatusCode >= 500 {
			return true
		}
	}
	if s.cfg.AlwaysSampleSlow && e.DurationMS > s.cfg.SlowThresholdMS {
		return true
	}
	if id, ok := e.UserID(); ok && s.users[id] {
		return true
	}
	if id, ok := e.ProjectID(); ok && s.projects[id] {
		return true
	}
	return s.draw() < s.cfg.Rate
}
