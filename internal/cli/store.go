package cli

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/confsched/internal/logging"
	"github.com/mesh-intelligence/confsched/internal/notify"
	"github.com/mesh-intelligence/confsched/pkg/sqlite"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// openStore attaches a store that publishes its changes on a notification
// bus. Changes are logged at debug level until the returned close function
// runs; the caller must call it.
func (a *app) openStore(ctx context.Context) (types.Store, func(), error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return nil, nil, err
	}

	bus := notify.NewBus(a.cfg.GetInt(cfgKeyNotifyBuffer))
	changes, err := bus.Subscribe(ctx)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		log := logging.Ctx(ctx)
		for c := range changes {
			log.Debug().Str("uri", c.URI).Bool("sync_to_network", c.SyncToNetwork).Msg("change")
		}
	}()

	store := sqlite.NewBackend(sqlite.WithNotifier(bus))
	if err := store.Attach(cfg); err != nil {
		bus.Close()
		<-drained
		return nil, nil, fmt.Errorf("attaching store: %w", err)
	}

	closeFn := func() {
		if err := store.Detach(); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("detaching store")
		}
		if err := bus.Close(); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("closing notification bus")
		}
		<-drained
	}
	return store, closeFn, nil
}
