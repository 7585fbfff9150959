// Package core holds configuration, typed configuration errors, exit codes and
// the startup checklist shared by the studio binary.
package core

import (
	"context"
)

// ShutdownFunc is a cleanup handler run during graceful shutdown.
//
// The context carries the shutdown deadline. Handlers should return promptly
// once it is done and must be safe to call more than once.
//
// Example:
//
//	var stopServer core.ShutdownFunc = func(ctx context.Context) error {
//	    return srv.Shutdown(ctx)
//	}
type ShutdownFunc func(ctx context.Context) error
