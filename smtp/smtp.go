// Package smtp sends notification email over plain SMTP.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
)

// Mailer sends mail through a single SMTP server. A Mailer with no
// host configured silently drops everything, so deployments without a
// mail server need no special casing.
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Logger   *slog.Logger
}

// Notify sends an email and reports whether it was delivered to the
// server. The context deadline bounds the whole SMTP session, dial
// included. Delivery failures are logged, never returned; notification
// mail is best effort.
func (m *Mailer) Notify(ctx context.Context, toEmail, subject, body string) bool {
	if m.Host == "" {
		return false
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", m.From),
		fmt.Sprintf("To: %s", toEmail),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := m.send(ctx, toEmail, []byte(msg)); err != nil {
		m.Logger.InfoContext(ctx, "Could not send notification email", "error", err.Error(), "to", toEmail)
		return false
	}
	return true
}

// send runs one SMTP session. smtp.SendMail ignores deadlines, so the
// session is run on a connection whose deadline follows the context.
func (m *Mailer) send(ctx context.Context, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return fmt.Errorf("set deadline: %w", err)
		}
	}

	c, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if m.Username != "" {
		auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(m.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return c.Quit()
}
