// Package smtp keeps one authenticated submission connection per account
// and composes outgoing messages.
package smtp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/vdavid/mailcore/internal/mailerr"
	"github.com/vdavid/mailcore/internal/provider"
)

// DefaultTimeout is used for the dial, for each command and for DATA.
const DefaultTimeout = 15 * time.Second

// ConnectToSMTP dials the endpoint and upgrades to TLS when the endpoint
// asks for it. Any failure is reported as a NetworkError.
func ConnectToSMTP(endpoint provider.Endpoint, timeout time.Duration) (*smtp.Client, error) {
	dialer := &net.Dialer{
		Timeout: timeout,
	}
	addr := endpoint.Addr()
	tlsConfig := &tls.Config{ServerName: endpoint.Host}

	var (
		conn net.Conn
		err  error
	)
	switch endpoint.Security {
	case provider.SecurityTLS:
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	case provider.SecurityStartTLS, provider.SecurityPlain:
		conn, err = dialer.Dial("tcp", addr)
	default:
		err = fmt.Errorf("unsupported security mode %q", endpoint.Security)
	}
	if err != nil {
		return nil, &mailerr.NetworkError{Host: addr, Err: fmt.Errorf("failed to dial: %w", err)}
	}

	var c *smtp.Client
	if endpoint.Security == provider.SecurityStartTLS {
		// The greeting, EHLO and handshake run before the command timeouts apply.
		_ = conn.SetDeadline(time.Now().Add(timeout))
		c, err = smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			_ = conn.Close()
			return nil, &mailerr.NetworkError{Host: addr, Err: fmt.Errorf("failed to start TLS: %w", err)}
		}
		_ = conn.SetDeadline(time.Time{})
	} else {
		c = smtp.NewClient(conn)
	}
	c.CommandTimeout = timeout
	c.SubmissionTimeout = timeout

	return c, nil
}

// Authenticate logs in with SASL PLAIN. A server rejection is an AuthError;
// an I/O failure is a NetworkError.
func Authenticate(c *smtp.Client, host, username, password string) error {
	if err := c.Auth(sasl.NewPlainClient("", username, password)); err != nil {
		var smtpErr *smtp.SMTPError
		if errors.As(err, &smtpErr) {
			return &mailerr.AuthError{Host: host, Username: username, Err: err}
		}
		return &mailerr.NetworkError{Host: host, Err: fmt.Errorf("failed to authenticate: %w", err)}
	}

	return nil
}
