// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.
package bootstrap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	policyfactory "tessera/contexts/naming/policy-factory"
	factorymemory "tessera/contexts/naming/policy-factory/adapters/memory"
	factoryworkers "tessera/contexts/naming/policy-factory/application/workers"
	factoryentities "tessera/contexts/naming/policy-factory/domain/entities"
	registryservice "tessera/contexts/naming/registry-service"
	registrypostgres "tessera/contexts/naming/registry-service/adapters/postgres"
	registryworkers "tessera/contexts/naming/registry-service/application/workers"
	registryports "tessera/contexts/naming/registry-service/ports"
	feepolicy "tessera/contexts/policies/fee-policy"
	feeworkers "tessera/contexts/policies/fee-policy/application/workers"
	savingspolicy "tessera/contexts/policies/savings-policy"
	savingsworkers "tessera/contexts/policies/savings-policy/application/workers"
	splitpolicy "tessera/contexts/policies/split-policy"
	splitpostgres "tessera/contexts/policies/split-policy/adapters/postgres"
	splitworkers "tessera/contexts/policies/split-policy/application/workers"
	splitports "tessera/contexts/policies/split-policy/ports"
	"tessera/internal/platform/config"
	"tessera/internal/platform/db"
	"tessera/internal/platform/httpserver"
	"tessera/internal/platform/ledger"
	"tessera/internal/platform/messaging"
)

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres *db.Postgres
	logger   *slog.Logger

	registryRelay registryworkers.OutboxRelay
	factoryRelay  factoryworkers.OutboxRelay
	splitRelay    splitworkers.OutboxRelay
	savingsRelay  savingsworkers.OutboxRelay
	feeRelay      feeworkers.OutboxRelay

	autoDepositor savingsworkers.AutoDepositor
	sweeper       feeworkers.LateFeeSweeper

	relayEnabled   bool
	depositEnabled bool
	sweepEnabled   bool
	relayInterval  time.Duration
	sweepInterval  time.Duration
}

// modules bundles the five composed contexts plus the handles the worker
// relays need.
type modules struct {
	registry registryservice.Module
	factory  policyfactory.Module
	split    splitpolicy.Module
	savings  savingspolicy.Module
	fees     feepolicy.Module

	factoryStore *factorymemory.Store
}

// buildModules composes the contexts against one shared bank. Registry and
// split persist to postgres when a DSN is configured; the other contexts
// run on their in-memory stores.
func buildModules(cfg config.Config, pg *db.Postgres, logger *slog.Logger) modules {
	bank := ledger.NewBank(logger)

	var registry registryservice.Module
	if pg != nil {
		repo := registrypostgres.NewRepository(pg.DB, logger)
		registry = registryservice.NewModule(registryservice.Dependencies{
			Repository:  repo,
			Outbox:      repo,
			Clock:       registrypostgres.SystemClock{},
			IDGenerator: registrypostgres.UUIDGenerator{},
			Admin:       cfg.RegistryAdmin,
			Logger:      logger,
		})
	} else {
		registry = registryservice.NewInMemoryModule(cfg.RegistryAdmin, logger)
	}

	var split splitpolicy.Module
	if pg != nil {
		repo := splitpostgres.NewRepository(pg.DB, logger)
		split = splitpolicy.NewModule(splitpolicy.Dependencies{
			Repository:  repo,
			Transfer:    bank,
			Outbox:      repo,
			Clock:       splitpostgres.SystemClock{},
			IDGenerator: splitpostgres.UUIDGenerator{},
			Logger:      logger,
		})
	} else {
		split = splitpolicy.NewInMemoryModule(bank, logger)
	}

	savings := savingspolicy.NewInMemoryModule(bank, logger)
	fees := feepolicy.NewInMemoryModule(bank, logger)

	factoryStore := factorymemory.NewStore()
	factory := policyfactory.NewModule(policyfactory.Dependencies{
		Registry:    registry.Service,
		Split:       split.Service,
		Savings:     savings.Service,
		Fees:        fees.Service,
		Repository:  factoryStore,
		Transfer:    bank,
		Outbox:      factoryStore,
		Clock:       factorymemory.SystemClock{},
		IDGenerator: factorymemory.UUIDGenerator{},
		CreationFee: map[factoryentities.PolicyType]int64{
			factoryentities.PolicyTypeSplit:       cfg.CreationFeeSplit,
			factoryentities.PolicyTypeSimpleSplit: cfg.CreationFeeSplit,
			factoryentities.PolicyTypeSavings:     cfg.CreationFeeSavings,
			factoryentities.PolicyTypeFees:        cfg.CreationFeeFees,
		},
		FeeAsset: cfg.FeeAsset,
		Treasury: cfg.Treasury,
		Logger:   logger,
	})
	factory.Store = factoryStore

	return modules{
		registry:     registry,
		factory:      factory,
		split:        split,
		savings:      savings,
		fees:         fees,
		factoryStore: factoryStore,
	}
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	var pg *db.Postgres
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err = db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
	}

	mods := buildModules(cfg, pg, logger)
	server := httpserver.New(
		mods.registry,
		mods.factory,
		mods.split,
		mods.savings,
		mods.fees,
		logger,
		normalizeAddr(cfg.HTTPPort),
	)
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")

	var pg *db.Postgres
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err = db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
	}

	bus, err := messaging.NewBus(cfg.BusBrokers, logger)
	if err != nil {
		return nil, err
	}

	mods := buildModules(cfg, pg, logger)

	w := &WorkerApp{
		postgres: pg,
		logger:   logger,
		registryRelay: registryworkers.OutboxRelay{
			Outbox:    registryOutboxRepository(mods, pg, logger),
			Publisher: bus,
			Logger:    logger,
		},
		factoryRelay: factoryworkers.OutboxRelay{
			Outbox:    mods.factoryStore,
			Publisher: bus,
			Logger:    logger,
		},
		splitRelay: splitworkers.OutboxRelay{
			Outbox:    splitOutboxRepository(mods, pg, logger),
			Publisher: bus,
			Logger:    logger,
		},
		savingsRelay: savingsworkers.OutboxRelay{
			Outbox:    mods.savings.Store,
			Publisher: bus,
			Logger:    logger,
		},
		feeRelay: feeworkers.OutboxRelay{
			Outbox:    mods.fees.Store,
			Publisher: bus,
			Logger:    logger,
		},
		autoDepositor:  mods.savings.AutoDepositor,
		sweeper:        mods.fees.Sweeper,
		relayEnabled:   cfg.EnableOutboxRelay,
		depositEnabled: cfg.EnableAutoDeposit,
		sweepEnabled:   cfg.EnableLateFeeSweeper,
		relayInterval:  cfg.RelayInterval,
		sweepInterval:  cfg.SweepInterval,
	}
	return w, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	relayTicker := time.NewTicker(w.relayInterval)
	defer relayTicker.Stop()
	sweepTicker := time.NewTicker(w.sweepInterval)
	defer sweepTicker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"relay_interval", w.relayInterval.String(),
		"sweep_interval", w.sweepInterval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-relayTicker.C:
			if !w.relayEnabled {
				continue
			}
			if err := w.registryRelay.RunOnce(ctx); err != nil {
				return err
			}
			if err := w.factoryRelay.RunOnce(ctx); err != nil {
				return err
			}
			if err := w.splitRelay.RunOnce(ctx); err != nil {
				return err
			}
			if err := w.savingsRelay.RunOnce(ctx); err != nil {
				return err
			}
			if err := w.feeRelay.RunOnce(ctx); err != nil {
				return err
			}
		case <-sweepTicker.C:
			if w.depositEnabled {
				if err := w.autoDepositor.RunOnce(ctx); err != nil {
					return err
				}
			}
			if w.sweepEnabled {
				if err := w.sweeper.RunOnce(ctx); err != nil {
					return err
				}
			}
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func registryOutboxRepository(mods modules, pg *db.Postgres, logger *slog.Logger) registryports.OutboxRepository {
	if pg != nil {
		return registrypostgres.NewRepository(pg.DB, logger)
	}
	return mods.registry.Store
}

func splitOutboxRepository(mods modules, pg *db.Postgres, logger *slog.Logger) splitports.OutboxRepository {
	if pg != nil {
		return splitpostgres.NewRepository(pg.DB, logger)
	}
	return mods.split.Store
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
