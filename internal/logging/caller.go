package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// callerFieldsCore decomposes the zap caller into the module, function,
// and line keys of the persisted format.
type callerFieldsCore struct {
	zapcore.Core
}

func (c *callerFieldsCore) With(fields []zapcore.Field) zapcore.Core {
	return &callerFieldsCore{Core: c.Core.With(fields)}
}

func (c *callerFieldsCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *callerFieldsCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if ent.Caller.Defined {
		module, function := splitFunction(ent.Caller.Function)
		fields = append(fields,
			zap.String("module", module),
			zap.String("function", function),
			zap.Int("line", ent.Caller.Line),
		)
	}
	return c.Core.Write(ent, fields)
}

// splitFunction separates a fully qualified function name like
// "github.com/acme/app/internal/orders.(*Service).Create" into its
// package path and function parts.
func splitFunction(qualified string) (module, function string) {
	slash := strings.LastIndex(qualified, "/")
	dot := strings.Index(qualified[slash+1:], ".")
	if dot < 0 {
		return qualified, ""
	}
	dot += slash + 1
	return qualified[:dot], qualified[dot+1:]
}
