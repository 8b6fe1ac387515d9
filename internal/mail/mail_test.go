package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

func sampleMessage() Message {
	return Message{
		From:    "compliance@example.com",
		To:      []string{"team@example.com"},
		CC:      []string{"audit@example.com"},
		Subject: "Compliance report for ATU0",
		Body:    "Dear Team,\n\nTotal findings: 2\n",
		Date:    time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC),
	}
}

func TestComposePlain(t *testing.T) {
	data, err := Compose(sampleMessage())
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"team@example.com"}, addresses(t, msg.Header, "To"))
	assert.Equal(t, []string{"audit@example.com"}, addresses(t, msg.Header, "Cc"))
	assert.Equal(t, []string{"compliance@example.com"}, addresses(t, msg.Header, "From"))

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Compliance report for ATU0", subject)

	body, err := io.ReadAll(quotedprintable.NewReader(msg.Body))
	require.NoError(t, err)
	assert.Equal(t, "Dear Team,\n\nTotal findings: 2", strings.TrimSpace(strings.ReplaceAll(string(body), "\r\n", "\n")))
}

func addresses(t *testing.T, h mail.Header, key string) []string {
	t.Helper()
	list, err := h.AddressList(key)
	require.NoError(t, err)
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Address)
	}
	return out
}

func TestComposeWithAttachment(t *testing.T) {
	report := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(report, []byte(`{"summary":{}}`), 0o600))

	m := sampleMessage()
	m.Attachments = []string{report}
	data, err := Compose(m)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(data))
	require.NoError(t, err)
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	body, err := mr.NextPart()
	require.NoError(t, err)
	text, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Total findings: 2")

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "report.json", att.FileName())
	content, err := io.ReadAll(base64.NewDecoder(base64.StdEncoding, att))
	require.NoError(t, err)
	assert.Equal(t, `{"summary":{}}`, string(content))

	_, err = mr.NextPart()
	assert.Equal(t, io.EOF, err)
}

func TestComposeMissingAttachment(t *testing.T) {
	m := sampleMessage()
	m.Attachments = []string{filepath.Join(t.TempDir(), "missing.json")}
	_, err := Compose(m)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	m := sampleMessage()
	m.To = nil
	assert.ErrorIs(t, m.Validate(), ErrNoRecipients)

	m = sampleMessage()
	m.Subject = "line\nbreak"
	assert.Error(t, m.Validate())
}

func TestComposeRejectsBadAddresses(t *testing.T) {
	m := sampleMessage()
	m.To = []string{"not-an-address"}
	_, err := Compose(m)
	assert.Error(t, err)

	m = sampleMessage()
	m.CC = []string{"a@example.com\r\nBcc: evil@example.com"}
	_, err = Compose(m)
	assert.Error(t, err)

	m = sampleMessage()
	m.From = ""
	_, err = Compose(m)
	assert.Error(t, err)
}

func TestSMTPSender(t *testing.T) {
	s, err := NewSMTPSender(models.MailConfig{Host: "mail.example.com", Port: 587, Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com:587", s.addr)

	var sent []*gomail.Msg
	s.send = func(ctx context.Context, msgs ...*gomail.Msg) error {
		require.NoError(t, ctx.Err())
		sent = append(sent, msgs...)
		return nil
	}

	require.NoError(t, s.Send(context.Background(), sampleMessage()))
	require.Len(t, sent, 1)
	rcpts, err := sent[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"team@example.com", "audit@example.com"}, rcpts)
	assert.Equal(t, []string{"Compliance report for ATU0"}, sent[0].GetGenHeader(gomail.HeaderSubject))
}

func TestSMTPSenderRejects(t *testing.T) {
	s, err := NewSMTPSender(models.MailConfig{Host: "mail.example.com"})
	require.NoError(t, err)
	s.send = func(context.Context, ...*gomail.Msg) error {
		return errors.New("550 mailbox unavailable")
	}

	err = s.Send(context.Background(), sampleMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "550")
	assert.Contains(t, err.Error(), "mail.example.com:25")
}

func TestSMTPSenderCancelled(t *testing.T) {
	s, err := NewSMTPSender(models.MailConfig{Host: "mail.example.com"})
	require.NoError(t, err)
	called := false
	s.send = func(context.Context, ...*gomail.Msg) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, sampleMessage()), context.Canceled)
	assert.False(t, called)
}

func TestSMTPSenderRequiresHost(t *testing.T) {
	_, err := NewSMTPSender(models.MailConfig{})
	assert.Error(t, err)
}

func TestSpoolSender(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outbox")
	s, err := NewSpoolSender(dir)
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), sampleMessage()))
	files := s.Files()
	require.Len(t, files, 1)
	assert.True(t, strings.HasPrefix(filepath.Base(files[0]), "team_example.com-"))

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()
	msg, err := mail.ReadMessage(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"team@example.com"}, addresses(t, msg.Header, "To"))
}

func TestSpoolSenderCancelled(t *testing.T) {
	s, err := NewSpoolSender(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, sampleMessage()), context.Canceled)
	assert.Empty(t, s.Files())
}

func TestNewSender(t *testing.T) {
	s, err := NewSender(models.MailConfig{Transport: "spool", SpoolDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &SpoolSender{}, s)

	s, err = NewSender(models.MailConfig{Transport: "smtp", Host: "localhost"})
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	_, err = NewSender(models.MailConfig{Transport: "pigeon"})
	assert.Error(t, err)
}
