package splitter

import (
	"errors"

	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/ledger"
	"github.com/bitfsorg/tiersplit-go/revshare"
)

var (
	// ErrUnauthorized indicates the caller does not hold the role the operation requires.
	ErrUnauthorized = errors.New("splitter: unauthorized")

	// ErrIncorrectPaymentAmount indicates the attached value is not exactly the discounted tier price.
	ErrIncorrectPaymentAmount = errors.New("splitter: incorrect payment amount")

	// ErrTransferFailed indicates an inbound or outbound value transfer did not complete.
	ErrTransferFailed = ledger.ErrTransferFailed

	// ErrDirectTransfer indicates value was sent to the contract outside a tier payment.
	ErrDirectTransfer = errors.New("splitter: direct transfers are not accepted")

	// ErrInvalidTier indicates a tier outside the enumerated set.
	ErrInvalidTier = errors.New("splitter: invalid tier")

	// ErrInvalidRole indicates a role outside the enumerated set.
	ErrInvalidRole = errors.New("splitter: invalid role")

	// ErrZeroAddress indicates a role was given the zero address.
	ErrZeroAddress = identity.ErrZeroAddress

	// ErrReservedAddress indicates a role was given the contract's own address.
	ErrReservedAddress = errors.New("splitter: contract address cannot hold a role")

	// ErrDuplicateApprover indicates both release approvers would be the same identity.
	ErrDuplicateApprover = errors.New("splitter: content admin and sub-admin must differ")

	// ErrArithmeticOverflow indicates the retained balance would overflow.
	ErrArithmeticOverflow = revshare.ErrArithmeticOverflow

	// ErrContractNotFound indicates no contract state exists at the address.
	ErrContractNotFound = errors.New("splitter: contract not found")

	// ErrContractExists indicates a contract already exists at the address.
	ErrContractExists = errors.New("splitter: contract already exists")

	// ErrInvalidState indicates stored contract state could not be decoded.
	ErrInvalidState = errors.New("splitter: invalid contract state")
)
