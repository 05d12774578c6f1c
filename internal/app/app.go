// Package app ties the client and its storage into a startable unit with
// graceful shutdown.
package app

import (
	"context"

	"crudkit/internal/client"
	"crudkit/internal/config"
	"crudkit/internal/store"

	"github.com/sirupsen/logrus"
)

// App owns the client's lifecycle: loading persisted state on start and
// releasing resources on stop.
type App struct {
	client *client.Client
	store  store.Store
	cfg    *config.Config

	stoppers []func()
}

// New creates the application.
func New(cfg *config.Config, s store.Store, c *client.Client) *App {
	return &App{
		client: c,
		store:  s,
		cfg:    cfg,
	}
}

// Client exposes the API client.
func (a *App) Client() *client.Client {
	return a.client
}

// OnStop registers a function to run during Stop, before the store
// closes. Queues register their Stop here.
func (a *App) OnStop(stop func()) {
	a.stoppers = append(a.stoppers, stop)
}

// Start loads the persisted response cache and password record, then
// starts the offline mutation queue's drain loop. The context bounds the
// drain loop's lifetime alongside Stop.
func (a *App) Start(ctx context.Context) error {
	a.client.Init()

	mutations := a.client.Mutations()
	mutations.Init(ctx)
	a.OnStop(mutations.Stop)

	logrus.WithField("backend", a.cfg.APIBaseURL).Info("API client ready")
	return nil
}

// Stop runs registered stoppers and closes the store. The context bounds
// how long shutdown may take; current work is brief so it is checked only
// between steps.
func (a *App) Stop(ctx context.Context) {
	for _, stop := range a.stoppers {
		if ctx.Err() != nil {
			logrus.Warn("Shutdown context expired, closing store immediately")
			break
		}
		stop()
	}
	if err := a.store.Close(); err != nil {
		logrus.WithError(err).Warn("Could not close store cleanly")
	}
	logrus.Info("Shutdown complete")
}
