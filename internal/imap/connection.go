package imap

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/vdavid/mailcore/internal/mailerr"
	"github.com/vdavid/mailcore/internal/provider"
)

// DefaultTimeout bounds the TCP connect, the TLS handshake and the wait
// for each command response.
const DefaultTimeout = 15 * time.Second

// ConnectToIMAP dials the endpoint using the endpoint's security mode. The
// returned client uses timeout for every command as well. Any failure is
// reported as a NetworkError.
func ConnectToIMAP(endpoint provider.Endpoint, timeout time.Duration) (*client.Client, error) {
	dialer := &net.Dialer{
		Timeout: timeout,
	}
	addr := endpoint.Addr()
	tlsConfig := &tls.Config{ServerName: endpoint.Host}

	var (
		c   *client.Client
		err error
	)
	switch endpoint.Security {
	case provider.SecurityTLS:
		c, err = client.DialWithDialerTLS(dialer, addr, tlsConfig)
	case provider.SecurityStartTLS:
		c, err = client.DialWithDialer(dialer, addr)
		if err == nil {
			if tlsErr := c.StartTLS(tlsConfig); tlsErr != nil {
				_ = c.Logout()
				c, err = nil, fmt.Errorf("failed to start TLS: %w", tlsErr)
			}
		}
	case provider.SecurityPlain:
		c, err = client.DialWithDialer(dialer, addr)
	default:
		err = fmt.Errorf("unsupported security mode %q", endpoint.Security)
	}
	if err != nil {
		return nil, &mailerr.NetworkError{Host: addr, Err: fmt.Errorf("failed to dial: %w", err)}
	}
	c.Timeout = timeout

	return c, nil
}

// Login authenticates with the IMAP server. A rejected login is an AuthError;
// a connection that dies during login is a NetworkError.
func Login(c *client.Client, host, username, password string) error {
	if err := c.Login(username, password); err != nil {
		if c.State() == imap.LogoutState {
			return &mailerr.NetworkError{Host: host, Err: fmt.Errorf("connection lost during login: %w", err)}
		}
		return &mailerr.AuthError{Host: host, Username: username, Err: err}
	}

	return nil
}

// usable reports whether the client is logged in and can run commands.
func usable(c *client.Client) bool {
	if c == nil {
		return false
	}
	state := c.State()
	return state == imap.AuthenticatedState || state == imap.SelectedState
}
