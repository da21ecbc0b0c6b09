//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/teamtask/server/internal/shared/config"
)

// Initialize creates the application using Wire.
func Initialize(cfg *config.Config, logger *zap.Logger) (*App, func(), error) {
	wire.Build(AppSet)
	return nil, nil, nil
}
