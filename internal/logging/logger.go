// Package logging is the structured-logging seam for the credential
// server. Components take the Logger interface so the slog backing can
// be swapped or silenced in tests.
package logging

import "context"

// Logger is a context-aware structured logger. The variadic args are
// key-value pairs:
//
//	log.Info(ctx, "server started", "addr", addr)
//
// Components derive their own child via With ("module", name) so every
// line carries its origin.
type Logger interface {
	// Info records normal operation.
	Info(ctx context.Context, msg string, args ...any)

	// Warn records unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error records failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always carries the given
	// key-value pairs.
	With(args ...any) Logger
}
