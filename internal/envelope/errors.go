package envelope

import "errors"

var (
	// ErrConfiguration reports an unusable master secret.
	ErrConfiguration = errors.New("invalid encryption configuration")

	ErrEncryption = errors.New("failed to encrypt secret")
	ErrDecryption = errors.New("failed to decrypt secret")
)
