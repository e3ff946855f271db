package main

import (
	"log/slog"

	"github.com/aretw0/otec"
	"github.com/aretw0/otec/internal/cli"
	"github.com/aretw0/otec/internal/config"
	"github.com/aretw0/otec/pkg/domain"
)

type engineEnv struct {
	cfg     config.Config
	logger  *slog.Logger
	backend *cli.Backend
}

func (e *engineEnv) engine(name string, hooks domain.LifecycleHooks) (*otec.Engine, error) {
	return cli.NewEngine(name, e.backend, e.cfg, e.logger, hooks)
}

func (e *engineEnv) Close() {
	if err := e.backend.Close(); err != nil {
		e.logger.Warn("Failed to close store", "err", err)
	}
}
