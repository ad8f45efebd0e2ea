//go:build wireinject
// +build wireinject

package di

import (
	"Aktiemotor/pkg/config"
	"Aktiemotor/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application. The
// cleanup releases infrastructure clients and must run after App.Shutdown.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideBytesCache,
		ProvideArchive,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories and collaborators
		ProvideStateStore,
		ProvidePublisher,
		ProvideYahoo,
		ProvideHistory,
		ProvideSentiment,
		ProvideNotifier,
		ProvideTradingHours,

		// Use cases
		ProvideHub,
		ProvidePipeline,
		ProvideSignalSink,
		ProvideStrategies,
		ProvidePortfolio,
		ProvideEvaluator,
		ProvideConfirmation,
		ProvideScanner,
		ProvideBriefing,
		ProvideQueue,
		ProvideScheduler,
		ProvideAuditHandler,

		// Transport
		ProvideEngineHandler,
		ProvideControlHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeEngine builds only what a one-shot CLI command needs: the
// evaluator and scanner over the live state, without servers or consumers.
func InitializeEngine(cfg *config.Config) (*Engine, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideRedisCache,
		ProvideBytesCache,
		ProvideArchive,
		ProvideStateStore,
		ProvideYahoo,
		ProvideHistory,
		ProvideSentiment,
		ProvideNotifier,
		ProvideTradingHours,
		ProvideDiscardSink,
		ProvideStrategies,
		ProvidePortfolio,
		ProvideEvaluator,
		ProvideScanner,
		wire.Struct(new(Engine), "*"),
	)
	return nil, nil, nil
}
