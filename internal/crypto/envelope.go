package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Stored blob layout: salt (16) || iv (16) || tag (16) || ciphertext,
// base64-encoded. The fixed-width prefix fields are part of the storage
// contract; changing them breaks every previously stored key.
const (
	saltSize = 16
	ivSize   = 16
	tagSize  = 16

	kdfIterations = 100_000
	kdfKeyLength  = 32
)

// Envelope encryption errors.
var (
	ErrMasterKeyMissing = errors.New("master encryption key is not set")
	ErrBlobMalformed    = errors.New("encrypted blob is malformed")
	ErrBlobTampered     = errors.New("encrypted blob failed authentication")
)

// Envelope encrypts private key material at rest. Each call derives a one-off
// AES-256 key from the master secret and a fresh random salt, so no two
// stored records ever share a symmetric key.
type Envelope struct {
	masterKey []byte
}

// NewEnvelope creates an Envelope keyed by the process-wide master secret.
// An empty secret is a configuration error and must abort startup.
func NewEnvelope(masterKey string) (*Envelope, error) {
	if masterKey == "" {
		return nil, ErrMasterKeyMissing
	}
	return &Envelope{masterKey: []byte(masterKey)}, nil
}

// Encrypt seals plaintext under a key derived from the master secret and a
// fresh random salt, using AES-256-GCM with a fresh random IV.
func (e *Envelope) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	gcm, err := e.newGCM(salt)
	if err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	// Seal appends the auth tag; the stored layout puts it before the ciphertext.
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, saltSize+ivSize+tagSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, iv...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt. It returns ErrBlobMalformed for input that does
// not parse and ErrBlobTampered when GCM authentication fails, so callers can
// tell bad storage apart from an integrity violation.
func (e *Envelope) Decrypt(encoded string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", ErrBlobMalformed)
	}
	if len(blob) < saltSize+ivSize+tagSize {
		return "", fmt.Errorf("%w: %d bytes is too short", ErrBlobMalformed, len(blob))
	}

	salt := blob[:saltSize]
	iv := blob[saltSize : saltSize+ivSize]
	tag := blob[saltSize+ivSize : saltSize+ivSize+tagSize]
	ciphertext := blob[saltSize+ivSize+tagSize:]

	gcm, err := e.newGCM(salt)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrBlobTampered
	}
	return string(plaintext), nil
}

func (e *Envelope) newGCM(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.masterKey, salt, kdfIterations, kdfKeyLength, sha512.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}
	return gcm, nil
}
