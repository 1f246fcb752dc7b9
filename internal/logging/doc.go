// Package logging assembles the wide-event observability pipeline.
//
// # Overview
//
// A Manager wires the pieces from configuration:
//   - console sink (plain or ANSI-colored line format)
//   - main file sink: async queue-backed writer, falling back to a
//     size-rotating writer when the async one cannot be built
//   - optional error-only file sink
//   - tail sampler, sanitizer, and trace-id store shared by all events
//
// # Usage
//
// Construct once at process start and inject it:
//
//	cfg, _ := config.Load(path)
//	mgr, err := logging.NewManager(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Close()
//
// Structured logs:
//
//	log := mgr.GetLogger("orders")
//	log.Info(ctx, "order placed", zap.String("order_id", id))
//
// Wide events, one record per operation:
//
//	mgr.CreateEvent(ctx, "orders.create").
//	    Input(map[string]any{"order_id": id}).
//	    Success()
//
// Or scoped, with automatic finalization:
//
//	err := mgr.Observe(ctx, "orders.create", input, func(ctx context.Context, b *event.Builder) error {
//	    return svc.Create(ctx, order)
//	})
//
// # Failure behavior
//
// Nothing in this package propagates its own faults into application
// code: sink construction errors degrade to fallbacks or omission,
// queue overflow drops the newest records, and worker write errors are
// reported to stderr while the pipeline keeps running. The only error
// Observe returns is the operation's own.
package logging
