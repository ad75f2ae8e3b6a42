package httpapi

import (
	"errors"
	"net/http"

	"github.com/bitfsorg/tiersplit-go/envelope"
	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/ledger"
	"github.com/bitfsorg/tiersplit-go/revshare"
	"github.com/bitfsorg/tiersplit-go/splitter"
)

// Error codes returned in ErrorInfo.Code.
const (
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeIncorrectPaymentAmount = "INCORRECT_PAYMENT_AMOUNT"
	CodeTransferFailed         = "TRANSFER_FAILED"
	CodeBadRequest             = "BAD_REQUEST"
	CodeBadSignature           = "BAD_SIGNATURE"
	CodeStaleNonce             = "STALE_NONCE"
	CodeNotFound               = "NOT_FOUND"
	CodeInternal               = "INTERNAL"
)

// errBadRequest marks malformed request input.
var errBadRequest = errors.New("httpapi: bad request")

var badInput = []error{
	errBadRequest,
	envelope.ErrInvalidEnvelope,
	envelope.ErrWrongContract,
	identity.ErrInvalidAddress,
	identity.ErrZeroAddress,
	ledger.ErrInvalidAssetID,
	revshare.ErrInvalidCoinAmount,
	splitter.ErrInvalidTier,
	splitter.ErrInvalidRole,
	splitter.ErrReservedAddress,
	splitter.ErrDuplicateApprover,
	splitter.ErrArithmeticOverflow,
}

// classify maps an operation error to an HTTP status and error code.
// ErrTransferFailed is checked before the input errors it may wrap.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, splitter.ErrUnauthorized):
		return http.StatusForbidden, CodeUnauthorized
	case errors.Is(err, splitter.ErrIncorrectPaymentAmount):
		return http.StatusUnprocessableEntity, CodeIncorrectPaymentAmount
	case errors.Is(err, splitter.ErrTransferFailed):
		return http.StatusConflict, CodeTransferFailed
	case errors.Is(err, envelope.ErrBadSignature):
		return http.StatusUnauthorized, CodeBadSignature
	case errors.Is(err, envelope.ErrStaleNonce):
		return http.StatusConflict, CodeStaleNonce
	case errors.Is(err, splitter.ErrContractNotFound):
		return http.StatusNotFound, CodeNotFound
	}
	for _, target := range badInput {
		if errors.Is(err, target) {
			return http.StatusBadRequest, CodeBadRequest
		}
	}
	return http.StatusInternalServerError, CodeInternal
}
