//go:build wireinject
// +build wireinject

package di

import (
	"SignalHub/pkg/config"
	"SignalHub/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideClock,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideHTTPClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvidePriceStore,
		ProvideSignalSink,

		// Services and use cases
		ProvideAggregator,
		ProvideStateStore,
		ProvideBroker,
		ProvideIngestor,
		ProvideOracle,
		ProvideFeed,
		ProvideLimiter,
		ProvideKafkaSignalsHandler,

		// Transport
		ProvideHub,
		ProvideRouter,
		ProvideHTTPServer,
		ProvideScheduler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil, nil
}
