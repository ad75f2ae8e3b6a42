package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"golang.org/x/crypto/argon2"
)

// Key file layout:
//
//	magic(4B) || time(4B) || memory(4B) || threads(1B) || salt(16B) || nonce(12B) || AES-GCM(key, nonce, priv)
//
// The key is argon2id(password, salt) under the recorded parameters. The
// header is bound to the ciphertext as GCM additional data.
const (
	keyFileMagic = "TSK1"
	kdfHeaderLen = 4 + 4 + 4 + 1
	SaltLen      = 16
	NonceLen     = 12
	argon2KeyLen = 32
)

// KDFParams are the Argon2id cost parameters recorded in a key file.
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDFParams matches the cost used for wallet seed encryption.
var DefaultKDFParams = KDFParams{Time: 3, Memory: 64 * 1024, Threads: 4}

func (p KDFParams) valid() bool {
	return p.Time > 0 && p.Memory >= 8*uint32(p.Threads) && p.Threads > 0
}

func newGCM(password string, salt []byte, p KDFParams) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, argon2KeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: AES cipher creation failed: %w", err)
	}
	return cipher.NewGCM(block)
}

// EncryptKey seals priv under password.
func EncryptKey(priv *ec.PrivateKey, password string, p KDFParams) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrInvalidEnvelope)
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}
	if !p.valid() {
		return nil, fmt.Errorf("%w: bad KDF parameters %+v", ErrInvalidKeyFile, p)
	}

	header := make([]byte, 0, kdfHeaderLen+SaltLen+NonceLen)
	header = append(header, keyFileMagic...)
	header = binary.BigEndian.AppendUint32(header, p.Time)
	header = binary.BigEndian.AppendUint32(header, p.Memory)
	header = append(header, p.Threads)

	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("envelope: failed to generate salt: %w", err)
	}
	nonce := make([]byte, NonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("envelope: failed to generate nonce: %w", err)
	}
	header = append(header, salt...)
	header = append(header, nonce...)

	gcm, err := newGCM(password, salt, p)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(header, nonce, priv.Serialize(), header), nil
}

// DecryptKey opens a key produced by EncryptKey.
func DecryptKey(data []byte, password string) (*ec.PrivateKey, error) {
	prefix := kdfHeaderLen + SaltLen + NonceLen
	if len(data) < prefix || string(data[:4]) != keyFileMagic {
		return nil, ErrInvalidKeyFile
	}
	p := KDFParams{
		Time:    binary.BigEndian.Uint32(data[4:8]),
		Memory:  binary.BigEndian.Uint32(data[8:12]),
		Threads: data[12],
	}
	if !p.valid() {
		return nil, fmt.Errorf("%w: bad KDF parameters %+v", ErrInvalidKeyFile, p)
	}
	salt := data[kdfHeaderLen : kdfHeaderLen+SaltLen]
	nonce := data[kdfHeaderLen+SaltLen : prefix]

	gcm, err := newGCM(password, salt, p)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, data[prefix:], data[:prefix])
	if err != nil {
		return nil, ErrWrongPassword
	}
	priv, err := privateKeyFromBytes(plain)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyFile, err)
	}
	return priv, nil
}

// WriteKeyFile encrypts priv to a new file at path. An existing file is
// never overwritten.
func WriteKeyFile(path string, priv *ec.PrivateKey, password string, p KDFParams) error {
	data, err := EncryptKey(priv, password, p)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("envelope: create key file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("envelope: write key file: %w", err)
	}
	return f.Close()
}

// ReadKeyFile loads and decrypts the key file at path.
func ReadKeyFile(path, password string) (*ec.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrInvalidKeyFile, path)
		}
		return nil, fmt.Errorf("envelope: read key file: %w", err)
	}
	return DecryptKey(data, password)
}
