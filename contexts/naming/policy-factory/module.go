package policyfactory

import (
	"log/slog"

	httpadapter "tessera/contexts/naming/policy-factory/adapters/http"
	"tessera/contexts/naming/policy-factory/adapters/local"
	"tessera/contexts/naming/policy-factory/adapters/memory"
	"tessera/contexts/naming/policy-factory/application"
	"tessera/contexts/naming/policy-factory/domain/entities"
	"tessera/contexts/naming/policy-factory/ports"
	registryapp "tessera/contexts/naming/registry-service/application"
	feeapp "tessera/contexts/policies/fee-policy/application"
	savingsapp "tessera/contexts/policies/savings-policy/application"
	splitapp "tessera/contexts/policies/split-policy/application"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Store   *memory.Store
}

// Dependencies wires the factory against the naming context and the three
// policy engines it can instantiate.
type Dependencies struct {
	Registry    registryapp.Service
	Split       splitapp.Service
	Savings     savingsapp.Service
	Fees        feeapp.Service
	Repository  ports.Repository
	Transfer    ports.AssetTransfer
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	CreationFee map[entities.PolicyType]int64
	FeeAsset    string
	Treasury    string
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Registry: local.RegistryAdapter{Registry: deps.Registry},
		Creators: map[entities.PolicyType]ports.PolicyCreator{
			entities.PolicyTypeSplit:       local.SplitCreator{Split: deps.Split},
			entities.PolicyTypeSimpleSplit: local.SplitCreator{Split: deps.Split, Simple: true},
			entities.PolicyTypeSavings:     local.SavingsCreator{Savings: deps.Savings},
			entities.PolicyTypeFees:        local.FeeCreator{Fees: deps.Fees},
		},
		Repo:     deps.Repository,
		Transfer: deps.Transfer,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGenerator,
		Fees:     deps.CreationFee,
		FeeAsset: deps.FeeAsset,
		Treasury: deps.Treasury,
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
