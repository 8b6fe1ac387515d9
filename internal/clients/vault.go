package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// ErrSecretNotFound is returned when the secret path does not exist
var ErrSecretNotFound = errors.New("secret not found")

const defaultVaultTimeout = 10 * time.Second

// VaultClient reads secrets from a HashiCorp Vault KV v2 mount
type VaultClient struct {
	kv     *vault.KVv2
	prefix string
}

// NewVaultClient creates a new Vault client. Retries are disabled: a
// failed lookup falls back to the default recipient straight away.
func NewVaultClient(cfg models.VaultConfig) (*VaultClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("vault address not configured")
	}

	vc := vault.DefaultConfig()
	vc.Address = strings.TrimRight(cfg.Address, "/")
	vc.Timeout = cfg.Timeout
	if vc.Timeout <= 0 {
		vc.Timeout = defaultVaultTimeout
	}
	vc.MaxRetries = 0

	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	mount := strings.Trim(cfg.Mount, "/")
	if mount == "" {
		mount = "secret"
	}
	return &VaultClient{
		kv:     client.KVv2(mount),
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Read fetches the latest version of the secret at path
func (c *VaultClient) Read(ctx context.Context, path string) (map[string]any, error) {
	secret, err := c.kv.Get(ctx, c.secretPath(path))
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return nil, fmt.Errorf("%s: %w", path, ErrSecretNotFound)
		}
		return nil, fmt.Errorf("failed to read %s from vault: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrSecretNotFound)
	}
	return secret.Data, nil
}

func (c *VaultClient) secretPath(path string) string {
	path = strings.Trim(path, "/")
	if c.prefix == "" {
		return path
	}
	return c.prefix + "/" + path
}
