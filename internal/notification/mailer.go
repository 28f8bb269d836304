package notification

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers an HTML mail to a list of recipients.
type Mailer interface {
	SendMail(ctx context.Context, to []string, subject, html string) error
}

// SendGridMailer sends mail through the SendGrid v3 API.  Each recipient
// gets its own personalization so addresses are not disclosed to each
// other.
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(apiKey, senderEmail, senderName string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(senderName, senderEmail),
	}
}

func (m *SendGridMailer) SendMail(ctx context.Context, to []string, subject, html string) error {
	if len(to) == 0 {
		return fmt.Errorf("sendgrid: no recipients")
	}
	msg := mail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.Subject = subject
	for _, addr := range to {
		p := mail.NewPersonalization()
		p.AddTos(mail.NewEmail("", addr))
		msg.AddPersonalizations(p)
	}
	msg.AddContent(mail.NewContent("text/html", html))

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// FileMailer appends a one-line record of every mail to a log file.  It is
// used when no SendGrid key is configured.
type FileMailer struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFileMailer(path string) *FileMailer {
	return &FileMailer{path: path, now: time.Now}
}

func (m *FileMailer) SendMail(_ context.Context, to []string, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(m.path), err)
	}
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mail log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Ticket confirmation | to=%s | subject=%q | html_bytes=%d\n",
		m.now().UTC().Format(time.RFC3339), strings.Join(to, ","), subject, len(html))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write mail log: %w", err)
	}
	return nil
}
