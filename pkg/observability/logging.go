package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/otec/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that audit every event to logger.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnApply: func(ctx context.Context, e *domain.ApplyEvent) {
			logger.InfoContext(ctx, "apply",
				"entity_id", e.EntityID,
				"op", e.Operation.String(),
				"agent_id", e.Operation.AgentID(),
				"revision", e.Revision,
				"mode", applyMode(e),
				"propagate", e.Propagate,
			)
		},
		OnApplyError: func(ctx context.Context, e *domain.ApplyEvent) {
			logger.ErrorContext(ctx, "apply failed",
				"entity_id", e.EntityID,
				"op", e.Operation.String(),
				"err", e.Err,
			)
		},
		OnTransform: func(ctx context.Context, e *domain.TransformEvent) {
			logger.DebugContext(ctx, "transform",
				"entity_id", e.EntityID,
				"local", e.Local.String(),
				"remote", e.Remote.String(),
				"local_t", e.Result.Local.String(),
				"remote_t", e.Result.Remote.String(),
			)
		},
		OnLineage: func(ctx context.Context, e *domain.LineageEvent) {
			logger.DebugContext(ctx, "lineage",
				"entity_id", e.EntityID,
				"superseded", e.Superseded.ID(),
				"successor", e.Successor.ID(),
			)
		},
	}
}
