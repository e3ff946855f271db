package domain_test

import (
	"context"
	"testing"

	"github.com/aretw0/otec/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestChainHooks(t *testing.T) {
	var calls []string
	first := domain.LifecycleHooks{
		OnApply: func(context.Context, *domain.ApplyEvent) { calls = append(calls, "first") },
	}
	second := domain.LifecycleHooks{
		OnApply:   func(context.Context, *domain.ApplyEvent) { calls = append(calls, "second") },
		OnLineage: func(context.Context, *domain.LineageEvent) { calls = append(calls, "lineage") },
	}

	h := domain.ChainHooks(first, domain.LifecycleHooks{}, second)
	h.OnApply(context.Background(), &domain.ApplyEvent{})
	h.OnLineage(context.Background(), &domain.LineageEvent{})

	assert.Equal(t, []string{"first", "second", "lineage"}, calls)
	assert.Nil(t, h.OnTransform)
}
