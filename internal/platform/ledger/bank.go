// Package ledger provides the in-process settlement bank behind every
// context's AssetTransfer port. Accounts are keyed by (holder, asset) and
// transfers settle synchronously; the external execution platform this
// stands in for guarantees one operation runs to completion at a time.
package ledger

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	sharedledger "tessera/internal/shared/ledger"
)

type Bank struct {
	mu       sync.Mutex
	accounts map[string]int64
	logger   *slog.Logger

	// faultOn triggers a host fault when a transfer touches the holder,
	// standing in for platform aborts. Test hook, admin-gated in bootstrap.
	faultOn map[string]bool
	// rejectOn fails transfers to the holder recoverably.
	rejectOn map[string]bool
}

func NewBank(logger *slog.Logger) *Bank {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bank{
		accounts: make(map[string]int64),
		faultOn:  make(map[string]bool),
		rejectOn: make(map[string]bool),
		logger:   logger,
	}
}

// Mint credits an account out of thin air. Bootstrap seeding and tests
// only; real deployments fund accounts through external deposits.
func (b *Bank) Mint(holder string, asset string, amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[accountKey(holder, asset)] += amount
}

// Balance reports the current holdings of (holder, asset).
func (b *Bank) Balance(holder string, asset string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[accountKey(holder, asset)]
}

// Transfer moves amount between accounts. Failure modes follow the shared
// taxonomy: insufficient funds and rejected recipients are recoverable,
// host faults are not.
func (b *Bank) Transfer(_ context.Context, asset string, from string, to string, amount int64) error {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	asset = strings.TrimSpace(asset)
	if from == "" || to == "" || asset == "" || amount <= 0 {
		return sharedledger.ErrTransferFailed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.faultOn[from] || b.faultOn[to] {
		return sharedledger.ErrHostFault
	}
	if b.rejectOn[to] {
		return sharedledger.ErrTransferFailed
	}

	fromKey := accountKey(from, asset)
	if b.accounts[fromKey] < amount {
		return sharedledger.ErrInsufficientFunds
	}
	b.accounts[fromKey] -= amount
	b.accounts[accountKey(to, asset)] += amount

	b.logger.Debug("transfer settled",
		"event", "ledger_transfer_settled",
		"module", "internal/platform/ledger",
		"layer", "platform",
		"asset", asset,
		"from", from,
		"to", to,
		"amount", amount,
	)
	return nil
}

// SetRejectRecipient makes transfers to the holder fail recoverably.
func (b *Bank) SetRejectRecipient(holder string, reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectOn[strings.TrimSpace(holder)] = reject
}

// SetHostFault makes any transfer touching the holder abort with a host
// fault.
func (b *Bank) SetHostFault(holder string, fault bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faultOn[strings.TrimSpace(holder)] = fault
}

func accountKey(holder string, asset string) string {
	return holder + "|" + asset
}
