package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// sendMail is a seam for testing smtp.SendMail.
var sendMail = smtp.SendMail

// SMTPNotifier sends verification codes by email over SMTP.
type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	timeout  time.Duration
}

// NewSMTPNotifier constructs a notifier for the given SMTP endpoint.
// When username is empty the connection is unauthenticated. A positive
// timeout bounds each SMTP exchange independently of the caller's
// context.
func NewSMTPNotifier(host string, port int, username, password, from string, timeout time.Duration) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, username: username, password: password, from: from, timeout: timeout}
}

// Send delivers the code to toAddress. The SMTP exchange runs in its own
// goroutine so a stalled server cannot outlive the configured timeout or
// the caller's context, whichever ends first.
func (n *SMTPNotifier) Send(ctx context.Context, toAddress, code string) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	msg := buildMessage(n.from, toAddress, code)

	done := make(chan error, 1)
	go func() {
		done <- sendMail(addr, auth, n.from, []string{toAddress}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(from, to, code string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Communication LTD - Reset your password\r\n")
	b.WriteString("\r\n")
	b.WriteString("Your verification code is:\r\n\r\n")
	b.WriteString(code + "\r\n\r\n")
	b.WriteString("Please enter it in the app.\r\n")
	return []byte(b.String())
}
