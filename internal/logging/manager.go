package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/caselight/widelog/internal/config"
	"github.com/caselight/widelog/internal/event"
	"github.com/caselight/widelog/internal/sampling"
	"github.com/caselight/widelog/internal/sanitize"
	"github.com/caselight/widelog/internal/sink"
	"github.com/caselight/widelog/internal/tracing"
)

// Manager assembles the pipeline from configuration: sinks, sampler,
// sanitizer, and tracer. It is the single composition point; callers
// receive it by injection rather than through package-level state, and
// the composition root owns its lifecycle.
type Manager struct {
	cfg       *config.Config
	root      *Logger
	sanitizer *sanitize.Sanitizer
	sampler   *sampling.Strategy
	tracer    *tracing.Tracer
	diag      io.Writer

	mu        sync.Mutex
	sinks     []io.Closer
	closeOnce sync.Once
}

// Option adjusts Manager construction.
type Option func(*managerOptions)

type managerOptions struct {
	diagnostics io.Writer
	console     io.Writer
	registry    prometheus.Registerer
	sanitizer   *sanitize.Sanitizer
}

// WithDiagnostics redirects internal fault notices, which otherwise go
// to os.Stderr. Diagnostics never route through the managed sinks.
func WithDiagnostics(w io.Writer) Option {
	return func(o *managerOptions) { o.diagnostics = w }
}

// WithConsoleWriter overrides the console sink destination, for tests.
func WithConsoleWriter(w io.Writer) Option {
	return func(o *managerOptions) { o.console = w }
}

// WithMetrics registers sink counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *managerOptions) { o.registry = reg }
}

// WithSanitizer replaces the default sanitizer.
func WithSanitizer(s *sanitize.Sanitizer) Option {
	return func(o *managerOptions) { o.sanitizer = s }
}

// NewManager wires the pipeline. Sink construction faults degrade per
// sink: the async file writer falls back to the rotating writer, and a
// sink that cannot be built at all is omitted with a diagnostic, never
// an initialization failure.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &managerOptions{
		diagnostics: os.Stderr,
		console:     os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sanitizer == nil {
		o.sanitizer = sanitize.NewSanitizer(sanitize.Options{})
	}

	m := &Manager{
		cfg:       cfg,
		sanitizer: o.sanitizer,
		tracer:    tracing.NewTracer(),
		diag:      o.diagnostics,
		sampler: sampling.NewStrategy(sampling.Config{
			Rate:               cfg.WideEvent.SamplingRate,
			TailSampling:       cfg.WideEvent.TailSampling,
			AlwaysSampleErrors: cfg.WideEvent.AlwaysSampleErrors,
			AlwaysSampleSlow:   cfg.WideEvent.AlwaysSampleSlow,
			SlowThresholdMS:    cfg.WideEvent.SlowThresholdMS,
			Users:              cfg.WideEvent.AlwaysSampleUsers,
			Projects:           cfg.WideEvent.AlwaysSampleProj,
		}),
	}

	var metrics *sink.Metrics
	if o.registry != nil {
		metrics = sink.NewMetrics(o.registry)
	}

	cores := make([]zapcore.Core, 0, 3)

	// Each sink core gets its own caller-fields wrapper. Wrapping the
	// tee instead would admit any entry one sink accepts and then write
	// it to all of them, defeating per-sink level thresholds.
	if cfg.Console.Enabled {
		cores = append(cores, &callerFieldsCore{Core: zapcore.NewCore(
			newConsoleEncoder(cfg.Console.Color),
			zapcore.Lock(zapcore.AddSync(o.console)),
			effectiveLevel(cfg.Console.Level, cfg.GlobalLevel),
		)})
	}

	if cfg.File.Enabled {
		if w := m.newFileWriter(cfg.File, "file", metrics); w != nil {
			cores = append(cores, &callerFieldsCore{Core: zapcore.NewCore(
				newJSONEncoder(),
				zapcore.AddSync(w),
				effectiveLevel(cfg.File.Level, cfg.GlobalLevel),
			)})
		}
	}

	if cfg.ErrorFile.Enabled {
		if w := m.newFileWriter(cfg.ErrorFile, "error_file", metrics); w != nil {
			level := effectiveLevel(cfg.ErrorFile.Level, cfg.GlobalLevel)
			if level < zapcore.ErrorLevel {
				level = zapcore.ErrorLevel
			}
			cores = append(cores, &callerFieldsCore{Core: zapcore.NewCore(
				newJSONEncoder(),
				zapcore.AddSync(w),
				level,
			)})
		}
	}

	var core zapcore.Core = zapcore.NewNopCore()
	if len(cores) > 0 {
		core = zapcore.NewTee(cores...)
	}

	m.root = &Logger{
		zap:    zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Named("widelog"),
		tracer: m.tracer,
	}
	return m, nil
}

// newFileWriter builds the async writer for fc, falling back to the
// rotating writer when async construction fails, and omitting the sink
// with a diagnostic when both fail.
func (m *Manager) newFileWriter(fc config.FileConfig, name string, metrics *sink.Metrics) sink.Writer {
	aw, err := sink.NewAsyncWriter(fc.Path, sink.AsyncOptions{
		QueueSize:   fc.QueueSize,
		Diagnostics: m.diag,
		Metrics:     metrics,
		Name:        name,
	})
	if err == nil {
		m.addSink(aw)
		return aw
	}
	fmt.Fprintf(m.diag, "widelog: async sink %s unavailable, falling back to rotating writer: %v\n", name, err)

	rw, rerr := sink.NewRotatingWriter(fc.Path, sink.RotateOptions{
		MaxBytes:      fc.MaxBytes,
		BackupCount:   fc.BackupCount,
		RetentionDays: fc.RetentionDays,
		Diagnostics:   m.diag,
	})
	if rerr != nil {
		fmt.Fprintf(m.diag, "widelog: sink %s disabled: %v\n", name, rerr)
		return nil
	}
	m.addSink(rw)
	return rw
}

func (m *Manager) addSink(c io.Closer) {
	m.mu.Lock()
	m.sinks = append(m.sinks, c)
	m.mu.Unlock()
}

// GetLogger returns a named logger backed by the managed sinks.
func (m *Manager) GetLogger(name string) *Logger {
	return m.root.Named(name)
}

// Tracer returns the pipeline's trace-id store.
func (m *Manager) Tracer() *tracing.Tracer {
	return m.tracer
}

// CreateEvent opens a wide-event builder for service. An explicit
// trace id wins over the ambient one; with neither, a fresh id is
// generated. When the wide-event pipeline is disabled the builder
// still works but emits nothing.
func (m *Manager) CreateEvent(ctx context.Context, service string, traceID ...string) *event.Builder {
	id := ""
	if len(traceID) > 0 {
		id = traceID[0]
	}
	var emitter event.Emitter
	if m.cfg.WideEvent.Enabled {
		emitter = m
	}
	return event.Open(ctx, service, id, m.sanitizer, m.sampler, emitter, m.tracer)
}

// EmitEvent writes one kept wide event through the sinks. Implements
// event.Emitter.
func (m *Manager) EmitEvent(e *event.Event) {
	fields := []zap.Field{
		zap.String("operation_id", e.OperationID),
		zap.String("trace_id", e.TraceID),
		zap.String("service", e.Service),
		zap.String("outcome", string(e.Outcome())),
		zap.Int64("duration_ms", e.DurationMS),
		zap.Time("started_at", e.Timestamp),
	}
	if e.StatusCode != 0 {
		fields = append(fields, zap.Int("status_code", e.StatusCode))
	}
	if e.User != nil {
		fields = append(fields, zap.Any("user", e.User))
	}
	if e.Input != nil {
		fields = append(fields, zap.Any("input", e.Input))
	}
	if e.Output != nil {
		fields = append(fields, zap.Any("output", e.Output))
	}
	if e.Dependencies != nil {
		fields = append(fields, zap.Any("dependencies", e.Dependencies))
	}
	if e.Extra != nil {
		fields = append(fields, zap.Any("extra", e.Extra))
	}

	if e.Err != nil {
		fields = append(fields, zap.Any("error", e.Err))
		m.root.zap.Error("wide_event", fields...)
		return
	}
	m.root.zap.Info("wide_event", fields...)
}

// Sync flushes every sink.
func (m *Manager) Sync() error {
	return m.root.Sync()
}

// Close flushes and closes every owned sink exactly once. Individual
// close failures are reported to diagnostics and swallowed so one bad
// sink cannot block shutdown of the rest.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		_ = m.root.Sync()

		m.mu.Lock()
		sinks := m.sinks
		m.sinks = nil
		m.mu.Unlock()

		for _, s := range sinks {
			if err := s.Close(); err != nil {
				fmt.Fprintf(m.diag, "widelog: sink close failed: %v\n", err)
			}
		}
	})
}
