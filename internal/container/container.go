// Package container wires the module's components together with dig, so
// embedders and the CLI construct one graph instead of threading
// collaborators by hand.
package container

import (
	"fmt"

	"crudkit/internal/app"
	"crudkit/internal/client"
	"crudkit/internal/config"
	"crudkit/internal/store"
	"crudkit/internal/translator"

	"go.uber.org/dig"
)

// Build creates the dependency injection container with every provider
// registered.
func Build() (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		config.Load,
		translator.New,
		provideStore,
		provideClient,
		app.New,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, fmt.Errorf("container: register provider: %w", err)
		}
	}

	return container, nil
}

func provideStore(cfg *config.Config) (store.Store, error) {
	return store.NewStore(store.Options{
		RedisDSN: cfg.RedisDSN,
		FilePath: cfg.StorePath,
		Secret:   cfg.StoreSecret,
	})
}

// clientDeps collects the client's dependencies. Prompter and Notifier
// are optional: embedders provide their UI implementations, everything
// else falls back to the client's defaults.
type clientDeps struct {
	dig.In

	Cfg        *config.Config
	Store      store.Store
	Translator *translator.Translator
	Prompter   client.PasswordPrompter `optional:"true"`
	Notifier   client.Notifier         `optional:"true"`
	Online     client.OnlineFunc       `optional:"true"`
}

func provideClient(deps clientDeps) (*client.Client, error) {
	return client.New(client.Config{
		BaseURL:           deps.Cfg.APIBaseURL,
		APIKey:            deps.Cfg.APIKey,
		AppVersion:        deps.Cfg.AppVersion,
		FastCacheMaxAge:   deps.Cfg.FastCacheMaxAge,
		PasswordTTL:       deps.Cfg.PasswordTTL,
		QueueInterval:     deps.Cfg.QueueInterval,
		PasswordInMemory:  deps.Cfg.PasswordCacheInMemory,
		PasswordMemoryTTL: deps.Cfg.PasswordMemoryTTL,
		Store:             deps.Store,
		Translator:        deps.Translator,
		Prompter:          deps.Prompter,
		Notifier:          deps.Notifier,
		Online:            deps.Online,
	})
}
