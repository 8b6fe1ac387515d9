package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

func newTestVault(t *testing.T, cfg models.VaultConfig) *VaultClient {
	t.Helper()
	c, err := NewVaultClient(cfg)
	require.NoError(t, err)
	return c
}

func TestVaultRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/kv/data/compliance/prod/notification", r.URL.Path)
		assert.Equal(t, "s.token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"data":{"to":"team@example.com","cc":["a@example.com"]},"metadata":{"version":3}}}`))
	}))
	defer srv.Close()

	c, err := NewVaultClient(models.VaultConfig{Address: srv.URL + "/", Token: "s.token", Mount: "/kv/", Prefix: "compliance"})
	require.NoError(t, err)
	data, err := c.Read(context.Background(), "/prod/notification")
	require.NoError(t, err)
	assert.Equal(t, "team@example.com", data["to"])
	assert.Equal(t, []any{"a@example.com"}, data["cc"])
}

func TestVaultReadNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[]}`))
	}))
	defer srv.Close()

	c := newTestVault(t, models.VaultConfig{Address: srv.URL})
	_, err := c.Read(context.Background(), "dev/notification")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestVaultReadForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
	}))
	defer srv.Close()

	c := newTestVault(t, models.VaultConfig{Address: srv.URL})
	_, err := c.Read(context.Background(), "dev/notification")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.False(t, errors.Is(err, ErrSecretNotFound))
}

func TestVaultReadMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestVault(t, models.VaultConfig{Address: srv.URL}).Read(context.Background(), "dev/notification")
	assert.Error(t, err)
}

func TestVaultReadTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestVault(t, models.VaultConfig{Address: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Read(context.Background(), "dev/notification")
	assert.Error(t, err)
}

func TestVaultReadDeletedVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"data":null,"metadata":{"version":2,"deletion_time":"2024-05-01T00:00:00Z"}}}`))
	}))
	defer srv.Close()

	_, err := newTestVault(t, models.VaultConfig{Address: srv.URL}).Read(context.Background(), "dev/notification")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestNewVaultClientUnconfigured(t *testing.T) {
	_, err := NewVaultClient(models.VaultConfig{})
	assert.Error(t, err)
}
