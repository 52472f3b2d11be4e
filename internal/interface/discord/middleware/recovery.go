package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/dailydraw/streak-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY
// A panicking handler must not take the gateway connection down with it.
// ══════════════════════════════════════════════════════════════════════════════

// PanicError is returned in place of a recovered panic.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover runs fn and converts a panic into a *PanicError. The panic and its
// stack are logged through the logger in ctx.
func Recover(ctx context.Context, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{Value: r, Stack: string(debug.Stack())}
			logger.FromContext(ctx).Error("handler panicked",
				logger.Operation(name),
				logger.Any("panic", r),
				logger.String("stack", pe.Stack),
			)
			err = pe
		}
	}()
	return fn()
}
