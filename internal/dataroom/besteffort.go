package dataroom

import (
	"context"

	"github.com/Laisky/zap"
)

// SideEffect records one storage operation that runs outside the database
// transaction. A failed side effect never fails the request.
type SideEffect struct {
	Op     string
	Target string
	Err    error
}

// SideEffects collects the outcome of best-effort storage operations.
type SideEffects []SideEffect

// OK reports whether every side effect succeeded.
func (s SideEffects) OK() bool {
	return len(s.Failed()) == 0
}

// Failed returns only the failed side effects.
func (s SideEffects) Failed() SideEffects {
	var failed SideEffects
	for _, effect := range s {
		if effect.Err != nil {
			failed = append(failed, effect)
		}
	}
	return failed
}

// bestEffort runs fn, logs a failure, and records the outcome.
func (s *Service) bestEffort(ctx context.Context, effects *SideEffects, op, target string, fn func() error) {
	err := fn()
	s.warnOnError(ctx, err, "best-effort storage operation failed",
		zap.String("op", op), zap.String("target", target))
	*effects = append(*effects, SideEffect{Op: op, Target: target, Err: err})
}
