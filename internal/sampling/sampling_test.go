package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/caselight/widelog/internal/event"
)

func errorEvent() *event.Event {
	return &event.Event{
		Service: "svc",
		Err:     &event.ErrorInfo{Code: "E", Message: "boom"},
	}
}

func TestShouldSample_ErrorOverride(t *testing.T) {
	s := NewStrategy(Config{AlwaysSampleErrors: true, Rate: 0})

	// Errors are kept with probability 1 even at rate zero.
	for i := 0; i < 100; i++ {
		assert.True(t, s.ShouldSample(errorEvent()))
	}
}

func TestShouldSample_StatusCode5xx(t *testing.T) {
	s := NewStrategy(Config{AlwaysSampleErrors: true, Rate: 0})

	assert.True(t, s.ShouldSample(&event.Event{StatusCode: 500}))
	assert.True(t, s.ShouldSample(&event.Event{StatusCode: 503}))
	assert.False(t, s.ShouldSample(&event.Event{StatusCode: 404}))
	assert.False(t, s.ShouldSample(&event.Event{StatusCode: 200}))
}

func TestShouldSample_SlowOverride(t *testing.T) {
	s := NewStrategy(Config{
		AlwaysSampleSlow: true,
		SlowThresholdMS:  100,
		Rate:             0,
	})

	assert.True(t, s.ShouldSample(&event.Event{DurationMS: 101}))
	assert.False(t, s.ShouldSample(&event.Event{DurationMS: 100}), "threshold is exclusive")
	assert.False(t, s.ShouldSample(&event.Event{DurationMS: 5}))
}

func TestShouldSample_UserAllowlist(t *testing.T) {
	s := NewStrategy(Config{Users: []string{"vip"}, Rate: 0})

	assert.True(t, s.ShouldSample(&event.Event{User: map[string]any{"id": "vip"}}))
	assert.True(t, s.ShouldSample(&event.Event{User: map[string]any{"user_id": "vip"}}))
	assert.False(t, s.ShouldSample(&event.Event{User: map[string]any{"id": "other"}}))
	assert.False(t, s.ShouldSample(&event.Event{}))
}

func TestShouldSample_ProjectAllowlist(t *testing.T) {
	s := NewStrategy(Config{Projects: []string{"apollo"}, Rate: 0})

	assert.True(t, s.ShouldSample(&event.Event{Extra: map[string]any{"project_id": "apollo"}}))
	assert.True(t, s.ShouldSample(&event.Event{Extra: map[string]any{"project": "apollo"}}))
	assert.False(t, s.ShouldSample(&event.Event{Extra: map[string]any{"project": "zeus"}}))
}

func TestShouldSample_RateBound(t *testing.T) {
	const n = 20000
	for _, rate := range []float64{0.0, 0.25, 0.5, 1.0} {
		s := NewStrategy(Config{Rate: rate})

		kept := 0
		for i := 0; i < n; i++ {
			if s.ShouldSample(&event.Event{}) {
				kept++
			}
		}
		got := float64(kept) / n
		// Three-sigma tolerance for a binomial draw.
		assert.InDelta(t, rate, got, 0.02, "rate %v", rate)
	}
}

func TestShouldSample_RateDrawDeterministic(t *testing.T) {
	s := NewStrategy(Config{Rate: 0.5})

	s.draw = func() float64 { return 0.49 }
	assert.True(t, s.ShouldSample(&event.Event{}))

	s.draw = func() float64 { return 0.5 }
	assert.False(t, s.ShouldSample(&event.Event{}))
}

func TestNewStrategy_ClampsRate(t *testing.T) {
	assert.Equal(t, 0.0, NewStrategy(Config{Rate: -1}).cfg.Rate)
	assert.Equal(t, 1.0, NewStrategy(Config{Rate: 7}).cfg.Rate)
}

func TestShouldSample_RuleOrder(t *testing.T) {
	// An error event is kept by rule 1 even when every other rule would
	// not match.
	s := NewStrategy(Config{
		AlwaysSampleErrors: true,
		AlwaysSampleSlow:   true,
		SlowThresholdMS:    1 << 40,
		Rate:               0,
	})
	assert.True(t, s.ShouldSample(errorEvent()))

	// With the error override off, the same event falls through to the
	// rate draw.
	s = NewStrategy(Config{Rate: 0})
	assert.False(t, s.ShouldSample(errorEvent()))
}
