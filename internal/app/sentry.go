package app

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/teamtask/server/internal/shared/config"
)

// InitSentry configures error reporting. Without a DSN it does nothing.
// The returned function flushes buffered events.
func InitSentry(cfg *config.SentryConfig) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		SampleRate:  cfg.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}
