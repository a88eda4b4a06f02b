package registryservice

import (
	"log/slog"

	httpadapter "tessera/contexts/naming/registry-service/adapters/http"
	"tessera/contexts/naming/registry-service/adapters/memory"
	"tessera/contexts/naming/registry-service/application"
	"tessera/contexts/naming/registry-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Repository  ports.Repository
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Admin       string
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Repo:   deps.Repository,
		Outbox: deps.Outbox,
		Clock:  deps.Clock,
		IDGen:  deps.IDGenerator,
		Admin:  deps.Admin,
		Logger: deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}

// NewInMemoryModule wires the module entirely on the in-memory store.
// Tests and single-process deployments use this path.
func NewInMemoryModule(admin string, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:  store,
		Outbox:      store,
		Clock:       memory.SystemClock{},
		IDGenerator: memory.UUIDGenerator{},
		Admin:       admin,
		Logger:      logger,
	})
	module.Store = store
	return module
}
