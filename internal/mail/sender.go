package mail

import (
	"fmt"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// NewSender returns the transport selected by cfg.Transport
func NewSender(cfg models.MailConfig) (Sender, error) {
	switch cfg.Transport {
	case "smtp":
		return NewSMTPSender(cfg)
	case "spool", "":
		return NewSpoolSender(cfg.SpoolDir)
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}
