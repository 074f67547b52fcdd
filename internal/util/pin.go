package util

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for token PIN hashing. PINs are verified on every
// token login, so the interactive profile is used rather than a slower one.
const (
	pinTime        = 1
	pinMemoryKiB   = 64 * 1024
	pinParallelism = 4
	pinKeyLen      = 32
	pinSaltLen     = 16
)

// PinHash is an argon2id digest of a token PIN together with its salt.
type PinHash struct {
	Salt []byte
	Key  []byte
}

// HashPin derives an argon2id hash for a token PIN with a fresh random salt.
func HashPin(pin string) (PinHash, error) {
	salt := make([]byte, pinSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return PinHash{}, fmt.Errorf("generating PIN salt: %w", err)
	}
	key := argon2.IDKey([]byte(pin), salt, pinTime, pinMemoryKiB, pinParallelism, pinKeyLen)
	return PinHash{Salt: salt, Key: key}, nil
}

// VerifyPin reports whether pin matches the stored hash, in constant time.
func VerifyPin(pin string, h PinHash) bool {
	key := argon2.IDKey([]byte(pin), h.Salt, pinTime, pinMemoryKiB, pinParallelism, pinKeyLen)
	return subtle.ConstantTimeCompare(key, h.Key) == 1
}
