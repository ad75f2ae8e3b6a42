package ledger

import "errors"

var (
	// ErrTransferFailed indicates a value transfer did not complete. Every
	// other transfer error in this package is wrapped together with it.
	ErrTransferFailed = errors.New("ledger: transfer failed")

	// ErrInsufficientFunds indicates the sender's balance is below the amount.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrBalanceOverflow indicates the recipient's balance would exceed uint64.
	ErrBalanceOverflow = errors.New("ledger: balance overflow")

	// ErrGuardedAccount indicates an external transfer touched a contract account.
	ErrGuardedAccount = errors.New("ledger: contract account does not accept direct transfers")

	// ErrSelfTransfer indicates sender and recipient are the same account.
	ErrSelfTransfer = errors.New("ledger: self transfer")

	// ErrInvalidAssetID indicates an empty or malformed asset identifier.
	ErrInvalidAssetID = errors.New("ledger: invalid asset id")

	// ErrCorruptBalance indicates a stored balance is not 8 bytes.
	ErrCorruptBalance = errors.New("ledger: corrupt balance record")
)
