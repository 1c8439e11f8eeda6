package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned when revealing a value after Destroy.
var ErrDestroyed = errors.New("sealed value destroyed")

// Value is a secret sealed in a memguard enclave.
//
// The zero Value is not usable; create one with Seal.
type Value struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	empty     bool
	destroyed bool
}

// Seal copies data into an encrypted enclave and wipes data.
func Seal(data []byte) *Value {
	if len(data) == 0 {
		// memguard refuses zero-length enclaves.
		return &Value{empty: true}
	}
	return &Value{enclave: memguard.NewEnclave(data)}
}

// SealString seals a string value.
func SealString(s string) *Value {
	return Seal([]byte(s))
}

// Reveal decrypts the value into a fresh string. The decrypted buffer is
// wiped before returning.
func (v *Value) Reveal() (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.destroyed {
		return "", ErrDestroyed
	}
	if v.empty {
		return "", nil
	}

	locked, err := v.enclave.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()

	return string(locked.Bytes()), nil
}

// Empty reports whether the sealed value has zero length.
func (v *Value) Empty() bool {
	return v.empty
}

// Destroy drops the enclave. It is safe to call more than once.
func (v *Value) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.enclave = nil
	v.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (v *Value) Destroyed() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.destroyed
}

// String never prints the secret.
func (v *Value) String() string {
	return "[REDACTED]"
}

// Purge wipes memguard's session key and all sealed values. Call once at
// process exit.
func Purge() {
	memguard.Purge()
}
