package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/vault/api"
)

// DefaultMount is the KV v2 mount used when none is configured.
const DefaultMount = "chamber"

// Config selects and authenticates the Vault server.
type Config struct {
	// Address overrides VAULT_ADDR and the client library default.
	Address string

	// Token overrides VAULT_TOKEN. When both are empty the token stored by
	// 'chamber login' for Address is used.
	Token string

	// Mount is the KV v2 mount point. Defaults to DefaultMount.
	Mount string
}

// ResolveAddress returns addr, or the address the client library would use
// (VAULT_ADDR or its built-in default) when addr is empty.
func ResolveAddress(addr string) (string, error) {
	if addr != "" {
		return addr, nil
	}
	apiCfg := api.DefaultConfig()
	if apiCfg.Error != nil {
		return "", fmt.Errorf("failed to read vault environment: %w", apiCfg.Error)
	}
	return apiCfg.Address, nil
}

// APIKV implements KV with the official Vault client.
type APIKV struct {
	client *api.Client
	mount  string
}

var _ KV = (*APIKV)(nil)

// NewAPIKV creates a client from cfg and the standard VAULT_* environment.
func NewAPIKV(cfg Config) (*APIKV, error) {
	apiCfg := api.DefaultConfig()
	if apiCfg.Error != nil {
		return nil, fmt.Errorf("failed to read vault environment: %w", apiCfg.Error)
	}
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	token := cfg.Token
	if token == "" {
		token = client.Token()
	}
	if token == "" {
		// A locked or missing keyring is the same as no stored token.
		if stored, err := LoadToken(client.Address()); err == nil {
			token = stored
		}
	}
	if token != "" {
		client.SetToken(token)
	}

	mount := strings.Trim(cfg.Mount, "/")
	if mount == "" {
		mount = DefaultMount
	}
	return &APIKV{client: client, mount: mount}, nil
}

// Address returns the server the client talks to.
func (k *APIKV) Address() string {
	return k.client.Address()
}

// List reads the metadata tree at path.
func (k *APIKV) List(ctx context.Context, path string) ([]string, error) {
	secret, err := k.client.Logical().ListWithContext(ctx, k.mount+"/metadata/"+path)
	if err != nil {
		return nil, err
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}
	raw, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		if s, ok := k.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys, nil
}

// Put writes a new version at path.
func (k *APIKV) Put(ctx context.Context, path, key, value string) error {
	_, err := k.client.KVv2(k.mount).Put(ctx, path, map[string]interface{}{key: value})
	return err
}

// Get reads the latest version at path.
func (k *APIKV) Get(ctx context.Context, path, key string) (Entry, error) {
	secret, err := k.client.KVv2(k.mount).Get(ctx, path)
	if errors.Is(err, api.ErrSecretNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	raw, ok := secret.Data[key]
	if !ok || raw == nil {
		return Entry{}, ErrNotFound
	}

	entry := Entry{Value: fmt.Sprint(raw), Version: 1}
	if s, ok := raw.(string); ok {
		entry.Value = s
	}
	if vm := secret.VersionMetadata; vm != nil {
		entry.Version = vm.Version
		entry.Created = vm.CreatedTime
	}
	return entry, nil
}

// DeleteAll removes every version and the metadata at path.
func (k *APIKV) DeleteAll(ctx context.Context, path string) error {
	return k.client.KVv2(k.mount).DeleteMetadata(ctx, path)
}
