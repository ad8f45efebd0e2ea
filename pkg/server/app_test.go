package server

import (
	"context"
	"testing"
	"time"

	"Aktiemotor/internal/handler/ws"
	"Aktiemotor/internal/middleware"
	"Aktiemotor/internal/repository"
	"Aktiemotor/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAndShutdownWithoutInfrastructure(t *testing.T) {
	pipeline := middleware.NewRecommendationPipeline(repository.NoopPublisher{}, nil)
	hub := ws.NewHub(nil)
	app := New(config.Default(), nil, Components{Pipeline: pipeline, Hub: hub})

	require.NoError(t, app.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))
	assert.Zero(t, hub.Clients())
}

func TestShutdownBeforeStart(t *testing.T) {
	app := New(config.Default(), nil, Components{})
	assert.NoError(t, app.Shutdown(context.Background()))
}
