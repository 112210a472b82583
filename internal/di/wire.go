//go:build wireinject
// +build wireinject

package di

import (
	"Sentinel/pkg/config"
	"Sentinel/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideAPIMetrics,

		// Exchange and indicator state
		ProvideMarketData,
		ProvideSnapshotStore,
		ProvidePollerSupervisor,

		// Analysis
		ProvideEngine,
		ProvideAnalysisCycle,

		// Result sinks
		ProvideKafkaProducer,
		ProvideResultStore,
		ProvideStreamHub,
		ProvideSinks,
		ProvideResultPipeline,

		// HTTP
		ProvideHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
