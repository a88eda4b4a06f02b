// Package ledger defines the error taxonomy of the opaque asset-transfer
// capability. Policy engines classify transfer outcomes against these
// sentinels without knowing which adapter sits behind the port.
package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrTransferFailed marks a recoverable per-leg failure: the transfer
	// did not happen, accounting for other legs may continue.
	ErrTransferFailed = errors.New("asset transfer failed")

	// ErrInsufficientFunds is a transfer failure caused by the source
	// account balance.
	ErrInsufficientFunds = fmt.Errorf("insufficient funds: %w", ErrTransferFailed)

	// ErrUnknownAccount is a transfer failure for a holder with no account
	// in the asset.
	ErrUnknownAccount = fmt.Errorf("unknown account: %w", ErrTransferFailed)

	// ErrHostFault marks an unrecoverable fault of the execution platform
	// itself. The whole surrounding operation must abort and unwind.
	ErrHostFault = errors.New("ledger host aborted the operation")
)

// Recoverable reports whether err fails only the leg in question rather
// than the whole operation.
func Recoverable(err error) bool {
	return err != nil && !errors.Is(err, ErrHostFault)
}
