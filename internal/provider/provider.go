package provider

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Security is the transport protection used for an endpoint.
type Security string

const (
	// SecurityTLS is implicit TLS from the first byte (IMAPS on 993).
	SecurityTLS Security = "tls"
	// SecurityStartTLS upgrades a plaintext connection after the greeting.
	SecurityStartTLS Security = "starttls"
	// SecurityPlain never negotiates TLS. Only meant for local test servers.
	SecurityPlain Security = "plain"
)

const (
	imapsPort      = 993
	submissionPort = 587
)

// ParseSecurity converts a config value into a Security.
func ParseSecurity(s string) (Security, error) {
	switch Security(strings.ToLower(strings.TrimSpace(s))) {
	case SecurityTLS:
		return SecurityTLS, nil
	case SecurityStartTLS:
		return SecurityStartTLS, nil
	case SecurityPlain:
		return SecurityPlain, nil
	default:
		return "", fmt.Errorf("unknown security mode %q (want tls, starttls or plain)", s)
	}
}

// Endpoint is one server a session connects to.
type Endpoint struct {
	Host     string
	Port     int
	Security Security
}

// Addr returns host:port.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseEndpoint builds an Endpoint from a host:port string.
func ParseEndpoint(addr string, security Security) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("invalid port in address %q", addr)
	}
	return Endpoint{Host: host, Port: port, Security: security}, nil
}

// Provider groups the inbound and outbound endpoints of a mail service.
type Provider struct {
	Name string
	IMAP Endpoint
	SMTP Endpoint
}

var (
	gmail = Provider{
		Name: "gmail",
		IMAP: Endpoint{Host: "imap.gmail.com", Port: imapsPort, Security: SecurityTLS},
		SMTP: Endpoint{Host: "smtp.gmail.com", Port: submissionPort, Security: SecurityStartTLS},
	}
	yahoo = Provider{
		Name: "yahoo",
		IMAP: Endpoint{Host: "imap.mail.yahoo.com", Port: imapsPort, Security: SecurityTLS},
		SMTP: Endpoint{Host: "smtp.mail.yahoo.com", Port: submissionPort, Security: SecurityStartTLS},
	}
	office365 = Provider{
		Name: "office365",
		IMAP: Endpoint{Host: "outlook.office365.com", Port: imapsPort, Security: SecurityTLS},
		SMTP: Endpoint{Host: "smtp.office365.com", Port: submissionPort, Security: SecurityStartTLS},
	}
)

// Resolve picks the provider for an account address by substring match.
// This is a heuristic, not an MX lookup: anything mentioning "yahoo" goes to
// Yahoo, then "outlook"/"hotmail" to Office365, and everything else to Gmail.
func Resolve(address string) Provider {
	a := strings.ToLower(address)
	switch {
	case strings.Contains(a, "yahoo"):
		return yahoo
	case strings.Contains(a, "outlook"), strings.Contains(a, "hotmail"):
		return office365
	default:
		return gmail
	}
}
