package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "SignalHub/pkg/http"
	pkgkafka "SignalHub/pkg/kafka"
	applogger "SignalHub/pkg/logger"
	"SignalHub/pkg/scheduler"

	"golang.org/x/sync/errgroup"
)

// Broker is the fan-out closed at shutdown so subscribers drain and disconnect.
type Broker interface {
	Close()
}

// App encapsulates the entire application lifecycle.
type App struct {
	log        *applogger.Logger
	httpServer *xhttp.Server
	scheduler  *scheduler.Scheduler
	consumer   *pkgkafka.Consumer
	handlers   []pkgkafka.MessageHandler
	broker     Broker
	closers    []io.Closer
	stopGrace  time.Duration
}

// Option configures App.
type Option func(*App)

// WithConsumer runs a Kafka consumer with the given handlers.
func WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.handlers = handlers
	}
}

// WithClosers registers resources closed last, in order.
func WithClosers(closers ...io.Closer) Option {
	return func(a *App) { a.closers = append(a.closers, closers...) }
}

// WithStopGrace bounds how long background workers get to stop.
func WithStopGrace(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.stopGrace = d
		}
	}
}

// New creates a new App instance with all dependencies.
func New(log *applogger.Logger, httpServer *xhttp.Server, sched *scheduler.Scheduler, broker Broker, opts ...Option) *App {
	if log == nil {
		log = applogger.Nop()
	}
	a := &App{
		log:        log,
		httpServer: httpServer,
		scheduler:  sched,
		broker:     broker,
		stopGrace:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts every component and blocks until interrupted or one of them fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.httpServer.ListenAndServe()
	})

	if a.scheduler != nil {
		a.scheduler.Start(gctx)
		a.log.Info("scheduler started", applogger.Strings("jobs", a.scheduler.Names()))
	}

	if a.consumer != nil {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if err := a.consumer.Start(gctx); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			a.consumer = nil
			_ = a.shutdown()
			_ = g.Wait()
			return err
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutdown signal received")
		return a.shutdown()
	})

	err := g.Wait()
	a.log.Info("shutdown complete")
	return err
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.stopGrace)
	defer cancel()

	if a.broker != nil {
		a.broker.Close()
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}
	return nil
}
