package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/lending-server/internal/config"
	"github.com/listenupapp/lending-server/internal/logger"
	"github.com/listenupapp/lending-server/internal/store/sqlstore"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlstore.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured database and applies the schema.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlstore.Open(sqlstore.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN(),
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Driver == sqlstore.DriverPostgres {
		log.Info("Database initialized", "driver", cfg.Database.Driver)
	} else {
		log.Info("Database initialized", "driver", cfg.Database.Driver, "path", cfg.Database.Path)
	}

	return &StoreHandle{Store: db}, nil
}
