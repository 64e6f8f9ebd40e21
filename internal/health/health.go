// Package health reports whether the service can reach its data store.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/product-catalog-api/internal/platform/logger"
)

// DefaultTimeout bounds a readiness check when none is configured.
const DefaultTimeout = 2 * time.Second

// Pinger is implemented by anything whose reachability can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker probes the store within a bounded timeout.
type Checker struct {
	pinger  Pinger
	timeout time.Duration
	logger  *slog.Logger
}

// NewChecker creates a Checker. A non-positive timeout selects DefaultTimeout.
func NewChecker(pinger Pinger, timeout time.Duration, logger *slog.Logger) (*Checker, error) {
	if pinger == nil {
		return nil, fmt.Errorf("pinger cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		pinger:  pinger,
		timeout: timeout,
		logger:  logger.With("component", "health_checker"),
	}, nil
}

// Check returns nil when the store answered within the timeout.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.pinger.Ping(ctx); err != nil {
		logger.FromContextOrDefault(ctx, c.logger).Warn("readiness check failed",
			slog.String("error", err.Error()),
			slog.Duration("timeout", c.timeout))
		return err
	}
	return nil
}
