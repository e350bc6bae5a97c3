package vault

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the OS keyring service under which tokens are stored. The
// account is the Vault address, so one token is kept per server.
const KeyringService = "chamber"

// LoadToken returns the token stored for addr, or "" when there is none.
func LoadToken(addr string) (string, error) {
	token, err := keyring.Get(KeyringService, addr)
	switch {
	case errors.Is(err, keyring.ErrNotFound), errors.Is(err, keyring.ErrUnsupportedPlatform):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("failed to read token from keyring: %w", err)
	}
	return token, nil
}

// SaveToken stores token for addr.
func SaveToken(addr, token string) error {
	if err := keyring.Set(KeyringService, addr, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// DeleteToken removes the token stored for addr. It reports whether a token
// was present.
func DeleteToken(addr string) (bool, error) {
	err := keyring.Delete(KeyringService, addr)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to remove token from keyring: %w", err)
	}
	return true, nil
}
