package core

import "context"

// ShutdownFunc is a cleanup function executed during graceful shutdown.
// The context carries the shutdown deadline; implementations should honor it.
type ShutdownFunc func(ctx context.Context) error
