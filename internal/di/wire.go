//go:build wireinject
// +build wireinject

package di

import (
	"github.com/econopulse/optionpulse/pkg/config"
	"github.com/econopulse/optionpulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient services
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Upstream access
		ProvideHTTPClient,
		ProvideChainProvider,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideSnapshotStore,
		ProvideSnapshotPublisher,

		// Use cases
		ProvideScreener,
		ProvideSnapshotRecorder,
		ProvideRefresher,
		ProvideKafkaConsumer,

		// Transport
		ProvideRateLimiter,
		ProvideHub,
		ProvideHandlers,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
