// Package envelope encrypts and decrypts single secret strings into a
// self-contained, hex-encoded AES-256-GCM envelope.
//
// Envelope layout before hex encoding:
//
//	salt(32) || iv(16) || tag(16) || ciphertext
//
// The master secret is stretched once into a base key. Every Encrypt call
// derives a second key from the base key and a fresh random salt, which is
// stored in the envelope so Decrypt can derive the same key again.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize = 32
	IVSize   = 16
	TagSize  = 16
	KeySize  = 32

	// MinSize is the smallest decodable envelope (no ciphertext bytes).
	MinSize = SaltSize + IVSize + TagSize

	// MinMasterSecretLength is the minimum accepted master secret length.
	MinMasterSecretLength = 32

	baseIterations    = 100_000
	derivedIterations = 10_000
)

// These values are part of the wire format: envelopes produced by earlier
// deployments only decrypt if both stay byte-for-byte the same.
var (
	applicationSalt = []byte("cyberpro-encryption-salt-2024")
	additionalData  = []byte("cyberpro-password-v2")
)

// Codec holds the stretched base key for one master secret. It is safe for
// concurrent use.
type Codec struct {
	baseKey []byte
	random  io.Reader
}

// Option configures a Codec.
type Option func(*Codec)

// WithRandom replaces the source of salts and IVs. Intended for tests.
func WithRandom(r io.Reader) Option {
	return func(c *Codec) {
		c.random = r
	}
}

// New validates the master secret and derives the base key. A secret
// shorter than MinMasterSecretLength fails with ErrConfiguration.
func New(masterSecret string, opts ...Option) (*Codec, error) {
	if len(masterSecret) < MinMasterSecretLength {
		return nil, fmt.Errorf("%w: master secret must have at least %d characters", ErrConfiguration, MinMasterSecretLength)
	}

	c := &Codec{
		baseKey: pbkdf2.Key([]byte(masterSecret), applicationSalt, baseIterations, KeySize, sha512.New),
		random:  rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Encrypt seals plaintext into a lowercase hex envelope.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: plaintext must not be empty", ErrEncryption)
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(c.random, salt); err != nil {
		return "", fmt.Errorf("%w: read salt: %v", ErrEncryption, err)
	}
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return "", fmt.Errorf("%w: read iv: %v", ErrEncryption, err)
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	// Seal returns ciphertext || tag; the envelope stores the tag first.
	sealed := gcm.Seal(nil, iv, []byte(plaintext), additionalData)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	out := make([]byte, 0, MinSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ciphertext...)

	return hex.EncodeToString(out), nil
}

// Decrypt opens a hex envelope. Any malformed, truncated or tampered input
// fails with ErrDecryption and no plaintext.
func (c *Codec) Decrypt(envelopeHex string) (string, error) {
	raw, err := hex.DecodeString(envelopeHex)
	if err != nil {
		return "", fmt.Errorf("%w: invalid hex: %v", ErrDecryption, err)
	}
	if len(raw) < MinSize {
		return "", fmt.Errorf("%w: envelope has %d bytes, need at least %d", ErrDecryption, len(raw), MinSize)
	}

	salt := raw[:SaltSize]
	iv := raw[SaltSize : SaltSize+IVSize]
	tag := raw[SaltSize+IVSize : MinSize]
	ciphertext := raw[MinSize:]

	gcm, err := c.aead(salt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, additionalData)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryption)
	}

	return string(plaintext), nil
}

func (c *Codec) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.baseKey, salt, derivedIterations, KeySize, sha512.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCMWithNonceSize: %w", err)
	}
	return gcm, nil
}

// Encrypt is a one-shot helper that builds a Codec for masterSecret.
func Encrypt(plaintext, masterSecret string) (string, error) {
	c, err := New(masterSecret)
	if err != nil {
		return "", err
	}
	return c.Encrypt(plaintext)
}

// Decrypt is a one-shot helper that builds a Codec for masterSecret.
func Decrypt(envelopeHex, masterSecret string) (string, error) {
	c, err := New(masterSecret)
	if err != nil {
		return "", err
	}
	return c.Decrypt(envelopeHex)
}

// IsEncrypted reports whether data looks like an envelope: even-length
// valid hex carrying at least one ciphertext byte. It says nothing about
// whether the envelope authenticates.
func IsEncrypted(data string) bool {
	if data == "" || len(data)%2 != 0 {
		return false
	}
	raw, err := hex.DecodeString(data)
	if err != nil {
		return false
	}
	return len(raw) >= MinSize+1
}

// GenerateKey returns 64 random bytes, hex encoded, suitable as a master
// secret.
func GenerateKey() (string, error) {
	buf := make([]byte, 64)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
