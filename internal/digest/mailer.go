package digest

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

const (
	// PasswordEnv overrides the keyring lookup for the SMTP password.
	PasswordEnv = "LEADSCOUT_DIGEST_SMTP_PASSWORD"

	// KeyringService groups lead-scout secrets in the OS keychain.
	KeyringService = "lead-scout"

	// DefaultSMTPPort is the submission port used with STARTTLS.
	DefaultSMTPPort = 587
)

// MailerConfig holds SMTP settings for the digest.
type MailerConfig struct {
	Host           string
	Port           int
	Sender         string
	Recipient      string
	KeyringAccount string
}

// Validate reports the first missing setting.
func (c MailerConfig) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "digest.smtp_host")
	}
	if c.Sender == "" {
		missing = append(missing, "digest.sender")
	}
	if c.Recipient == "" {
		missing = append(missing, "digest.recipient")
	}
	if len(missing) > 0 {
		return eris.Errorf("digest: missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c MailerConfig) addr() string {
	port := c.Port
	if port <= 0 {
		port = DefaultSMTPPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Password returns the SMTP password from PasswordEnv, falling back to the
// OS keyring entry for account.
func Password(account string) (string, error) {
	if pw := strings.TrimSpace(os.Getenv(PasswordEnv)); pw != "" {
		return pw, nil
	}
	if strings.TrimSpace(account) != "" {
		pw, err := keyring.Get(KeyringService, account)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}
	return "", eris.Errorf("digest: SMTP password not found (set %s or store it in the keyring)", PasswordEnv)
}

// SetPassword stores the SMTP password for account in the OS keyring.
func SetPassword(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return eris.New("digest: keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return eris.New("digest: password is empty")
	}
	return eris.Wrap(keyring.Set(KeyringService, account, password), "digest: keyring set")
}

// sendFunc delivers a prepared message. It matches the shape of smtp.SendMail.
type sendFunc func(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends digests over SMTP with STARTTLS.
type Mailer struct {
	cfg  MailerConfig
	send sendFunc
	now  func() time.Time
}

// NewMailer creates a Mailer. cfg must validate.
func NewMailer(cfg MailerConfig) (*Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Mailer{cfg: cfg, send: sendSTARTTLS, now: time.Now}, nil
}

// Send mails an HTML body to the configured recipient.
func (m *Mailer) Send(ctx context.Context, subject, html string) error {
	pw, err := Password(m.cfg.KeyringAccount)
	if err != nil {
		return err
	}
	auth := smtp.PlainAuth("", m.cfg.Sender, pw, m.cfg.Host)
	msg := buildMessage(m.cfg.Sender, m.cfg.Recipient, subject, html, m.now())

	if err := m.send(ctx, m.cfg.addr(), auth, m.cfg.Sender, []string{m.cfg.Recipient}, msg); err != nil {
		return eris.Wrapf(err, "digest: send to %s", m.cfg.Recipient)
	}
	zap.L().Info("digest: sent",
		zap.String("component", "digest"),
		zap.String("recipient", m.cfg.Recipient),
		zap.String("subject", subject),
	)
	return nil
}

// buildMessage assembles a single-part HTML message with CRLF line endings.
func buildMessage(from, to, subject, html string, now time.Time) []byte {
	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", from)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", now.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(html, "\r\n", "\n"), "\n", "\r\n"))
	return b.Bytes()
}

// sendSTARTTLS dials addr, upgrades with STARTTLS and delivers msg. The
// server must offer STARTTLS.
func sendSTARTTLS(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return eris.Wrapf(err, "digest: bad smtp address %s", addr)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return eris.Wrapf(err, "digest: dial %s", addr)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return eris.Wrap(err, "digest: smtp handshake")
	}
	defer c.Close() //nolint:errcheck

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return eris.Errorf("digest: %s does not offer STARTTLS", addr)
	}
	if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
		return eris.Wrap(err, "digest: starttls")
	}
	if err := c.Auth(auth); err != nil {
		return eris.Wrap(err, "digest: auth")
	}
	if err := c.Mail(from); err != nil {
		return eris.Wrap(err, "digest: MAIL FROM")
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return eris.Wrapf(err, "digest: RCPT TO %s", rcpt)
		}
	}
	w, err := c.Data()
	if err != nil {
		return eris.Wrap(err, "digest: DATA")
	}
	if _, err := w.Write(msg); err != nil {
		return eris.Wrap(err, "digest: write body")
	}
	if err := w.Close(); err != nil {
		return eris.Wrap(err, "digest: end DATA")
	}
	return eris.Wrap(c.Quit(), "digest: quit")
}
