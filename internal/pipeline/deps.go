package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ethanolivertroy/compliance-notifier/internal/archive"
	"github.com/ethanolivertroy/compliance-notifier/internal/clients"
	"github.com/ethanolivertroy/compliance-notifier/internal/mail"
	"github.com/ethanolivertroy/compliance-notifier/internal/models"
	"github.com/ethanolivertroy/compliance-notifier/internal/notify"
	"github.com/ethanolivertroy/compliance-notifier/internal/recipient"
)

// Deps are the external collaborators of a run
type Deps struct {
	Archive  archive.Archive
	Resolver notify.RecipientResolver
	Sender   mail.Sender

	// ArchiveErr is set when the configured archive could not be opened and
	// Archive was replaced by archive.Nop
	ArchiveErr error
}

// Wire builds the collaborators selected by cfg. The returned cleanup is
// never nil. An unreachable archive or recipient store does not stop the
// run: the archive degrades to a no-op and recipients fall back to the
// default address. Only config errors are returned.
func Wire(ctx context.Context, cfg *models.Config, logger *zap.Logger) (Deps, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var deps Deps

	arch, cleanup, err := archive.New(ctx, cfg.Archive, logger)
	switch {
	case errors.Is(err, archive.ErrUnknownBackend):
		return deps, cleanup, fmt.Errorf("failed to initialize archive: %w", err)
	case err != nil:
		logger.Error("Archive unavailable, reports will not be archived",
			zap.String("backend", cfg.Archive.Backend), zap.Error(err))
		deps.Archive = archive.Nop{}
		deps.ArchiveErr = err
	default:
		deps.Archive = arch
	}

	if cfg.Notify.ReportOnly {
		return deps, cleanup, nil
	}

	deps.Resolver, err = recipient.NewResolver(secretStore(cfg.Recipients, logger), cfg.Recipients, logger)
	if err != nil {
		return deps, cleanup, err
	}

	deps.Sender, err = mail.NewSender(cfg.Mail)
	if err != nil {
		return deps, cleanup, fmt.Errorf("failed to initialize mail transport: %w", err)
	}
	return deps, cleanup, nil
}

// secretStore opens the configured recipient store. A store that cannot be
// opened is logged and left nil so every lookup takes the fallback.
func secretStore(cfg models.RecipientConfig, logger *zap.Logger) recipient.SecretStore {
	switch cfg.Backend {
	case "vault":
		vc, err := clients.NewVaultClient(cfg.Vault)
		if err != nil {
			logger.Warn("Vault unavailable, recipients will use the default address", zap.Error(err))
			return nil
		}
		return vc
	case "file":
		fs, err := recipient.LoadFileStore(cfg.File)
		if err != nil {
			logger.Warn("Recipients file unavailable, recipients will use the default address",
				zap.String("file", cfg.File), zap.Error(err))
			return nil
		}
		return fs
	default:
		return nil
	}
}
