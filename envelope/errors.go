package envelope

import "errors"

var (
	// ErrInvalidEnvelope indicates a malformed public key, signature or call.
	ErrInvalidEnvelope = errors.New("envelope: invalid envelope")

	// ErrBadSignature indicates the signature does not verify against the public key.
	ErrBadSignature = errors.New("envelope: signature verification failed")

	// ErrStaleNonce indicates the nonce is not greater than the caller's last accepted nonce.
	ErrStaleNonce = errors.New("envelope: nonce already used")

	// ErrNonceExhausted indicates the caller has consumed the largest possible nonce.
	ErrNonceExhausted = errors.New("envelope: nonce space exhausted")

	// ErrInvalidKeyFile indicates a key file that is truncated or not a key file.
	ErrInvalidKeyFile = errors.New("envelope: invalid key file")

	// ErrWrongPassword indicates the key file could not be decrypted with the password.
	ErrWrongPassword = errors.New("envelope: wrong key file password")

	// ErrEmptyPassword indicates an empty key file password.
	ErrEmptyPassword = errors.New("envelope: empty password")

	// ErrWrongContract indicates the call targets a different contract than the receiver.
	ErrWrongContract = errors.New("envelope: call addressed to another contract")
)
