// Package recipient decides who receives each app code's notification.
//
// Resolution has two terminal states: the address read from the secret store
// (source vault), or the configured default address (source
// default-fallback). Any problem with the primary lookup selects the
// fallback; Resolve never fails.
package recipient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// SecretStore is a keyed, read-only lookup of environment secrets
type SecretStore interface {
	Read(ctx context.Context, path string) (map[string]any, error)
}

var errNoStore = errors.New("no secret store configured")

// Resolver resolves recipients with a static fallback
type Resolver struct {
	store     SecretStore
	subKey    string
	defaultTo string
	defaultCC []string
	logger    *zap.Logger
}

// NewResolver creates a Resolver. store may be nil, in which case every
// lookup falls back. The default address must be set.
func NewResolver(store SecretStore, cfg models.RecipientConfig, logger *zap.Logger) (*Resolver, error) {
	if strings.TrimSpace(cfg.DefaultTo) == "" {
		return nil, fmt.Errorf("recipients.default_to must be set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	subKey := strings.Trim(cfg.SubKey, "/")
	if subKey == "" {
		subKey = "notification"
	}
	return &Resolver{
		store:     store,
		subKey:    subKey,
		defaultTo: strings.TrimSpace(cfg.DefaultTo),
		defaultCC: cfg.DefaultCC,
		logger:    logger.Named("recipient"),
	}, nil
}

// Resolve returns the recipient for appCode in environment
func (r *Resolver) Resolve(ctx context.Context, appCode, environment string) models.Recipient {
	rcpt, err := r.lookup(ctx, appCode, environment)
	if err != nil {
		r.logger.Warn("Recipient lookup failed, using default address",
			zap.String("app_code", appCode),
			zap.String("environment", environment),
			zap.Error(err))
		return r.fallback(appCode)
	}
	return rcpt
}

func (r *Resolver) fallback(appCode string) models.Recipient {
	return models.Recipient{
		AppCode: appCode,
		Address: r.defaultTo,
		CC:      append([]string(nil), r.defaultCC...),
		Source:  models.SourceFallback,
	}
}

// lookup is the primary branch. A panicking store is treated like a failing
// one.
func (r *Resolver) lookup(ctx context.Context, appCode, environment string) (rcpt models.Recipient, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("secret store panicked: %v", p)
		}
	}()

	if r.store == nil {
		return models.Recipient{}, errNoStore
	}
	path := strings.Trim(environment, "/") + "/" + r.subKey
	data, err := r.store.Read(ctx, path)
	if err != nil {
		return models.Recipient{}, fmt.Errorf("read %s: %w", path, err)
	}

	address, err := addressFor(data["to"], appCode)
	if err != nil {
		return models.Recipient{}, fmt.Errorf("%s: %w", path, err)
	}
	cc, err := ccList(data["cc"])
	if err != nil {
		return models.Recipient{}, fmt.Errorf("%s: %w", path, err)
	}

	return models.Recipient{
		AppCode: appCode,
		Address: address,
		CC:      cc,
		Source:  models.SourceVault,
	}, nil
}

// addressFor reads "to" as either a single address or a table keyed by app
// code with an optional "default" entry
func addressFor(v any, appCode string) (string, error) {
	switch to := v.(type) {
	case nil:
		return "", errors.New("key \"to\" missing")
	case string:
		if strings.TrimSpace(to) == "" {
			return "", errors.New("key \"to\" is empty")
		}
		return strings.TrimSpace(to), nil
	case map[string]any:
		for _, key := range []string{appCode, strings.ToLower(appCode), "default"} {
			if s, ok := to[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), nil
			}
		}
		return "", fmt.Errorf("no address for %s and no default", appCode)
	default:
		return "", fmt.Errorf("key \"to\" has unsupported type %T", v)
	}
}

func ccList(v any) ([]string, error) {
	switch cc := v.(type) {
	case nil:
		return nil, nil
	case string:
		var out []string
		for _, part := range strings.Split(cc, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case []string:
		return cc, nil
	case []any:
		out := make([]string, 0, len(cc))
		for _, item := range cc {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("key \"cc\" has non-string entry %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("key \"cc\" has unsupported type %T", v)
	}
}
