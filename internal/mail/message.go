// Package mail hands rendered notifications to a mail transport.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// ErrNoRecipients is returned for a message without a To address
var ErrNoRecipients = errors.New("message has no recipients")

// Sender delivers one message. Implementations must be safe for concurrent
// use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a plain-text email with optional file attachments
type Message struct {
	From        string
	To          []string
	CC          []string
	Subject     string
	Body        string
	Attachments []string
	Date        time.Time
}

// Recipients returns To followed by CC
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.CC))
	out = append(out, m.To...)
	return append(out, m.CC...)
}

// Validate checks what the address parser does not: a To address must be
// present and the subject must be a single line
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return fmt.Errorf("subject contains a line break")
	}
	return nil
}

// build converts m into a go-mail message. Attachments are checked up front
// so a missing report fails here rather than halfway through a write.
func (m Message) build() (*gomail.Msg, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", m.From, err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	if len(m.CC) > 0 {
		if err := msg.Cc(m.CC...); err != nil {
			return nil, fmt.Errorf("invalid cc address: %w", err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)

	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	msg.SetDateWithValue(date)
	msg.SetMessageID()

	for _, path := range m.Attachments {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read attachment: %w", err)
		}
		msg.AttachFile(path)
	}
	return msg, nil
}

// Compose renders the message as RFC 5322 bytes. A message with attachments
// is multipart/mixed; otherwise a single text/plain part.
func Compose(m Message) ([]byte, error) {
	msg, err := m.build()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write message: %w", err)
	}
	return buf.Bytes(), nil
}
