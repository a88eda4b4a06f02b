package splitpolicy

import (
	"log/slog"

	httpadapter "tessera/contexts/policies/split-policy/adapters/http"
	"tessera/contexts/policies/split-policy/adapters/memory"
	"tessera/contexts/policies/split-policy/application"
	"tessera/contexts/policies/split-policy/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Repository  ports.Repository
	Transfer    ports.AssetTransfer
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Repo:     deps.Repository,
		Transfer: deps.Transfer,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGenerator,
		Guard:    application.NewEntryGuard(),
		Logger:   deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}

// NewInMemoryModule wires the module entirely on the in-memory store plus
// the provided transfer capability. Tests and single-process deployments
// use this path.
func NewInMemoryModule(transfer ports.AssetTransfer, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:  store,
		Transfer:    transfer,
		Outbox:      store,
		Clock:       memory.SystemClock{},
		IDGenerator: memory.UUIDGenerator{},
		Logger:      logger,
	})
	module.Store = store
	return module
}
