package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// SecureBuffer holds one secret encrypted at rest in memory.
type SecureBuffer struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	empty     bool
	destroyed bool
}

// NewSecureBuffer seals data. memguard wipes data after copying it, so callers
// must not reuse the slice.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	if len(data) == 0 {
		// memguard has no representation for an empty enclave.
		return &SecureBuffer{empty: true}, nil
	}
	return &SecureBuffer{enclave: memguard.NewEnclave(data)}, nil
}

// NewSecureBufferFromString seals a copy of s.
func NewSecureBufferFromString(s string) (*SecureBuffer, error) {
	return NewSecureBuffer([]byte(s))
}

// Open decrypts the value into a locked buffer. The caller must Destroy it.
// A destroyed or empty buffer opens to an empty value.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed || s.empty {
		return memguard.NewBuffer(0), nil
	}
	return s.enclave.Open()
}

// Reveal returns the plaintext as a string.
func (s *SecureBuffer) Reveal() (string, error) {
	locked, err := s.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()
	return string(locked.Bytes()), nil
}

// Destroy drops the enclave. Later calls are no-ops.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enclave = nil
	s.destroyed = true
}
