package testutil

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// DeliverFunc receives every message the SMTP server accepts.
type DeliverFunc func(from string, to []string, data []byte) error

// MemoryBackend is a simple in-memory SMTP backend for testing.
// It accepts only the configured username and password.
type MemoryBackend struct {
	username  string
	password  string
	deliver   DeliverFunc
	tlsConfig *tls.Config

	mu       sync.Mutex
	messages []*Message822
	logins   int
}

// Message822 is one message received by the memory backend.
type Message822 struct {
	From string
	To   []string
	Data []byte
}

// NewMemoryBackend creates a new in-memory SMTP backend.
func NewMemoryBackend(username, password string) *MemoryBackend {
	return &MemoryBackend{
		username: username,
		password: password,
		messages: make([]*Message822, 0),
	}
}

// NewSession creates a new SMTP session.
func (b *MemoryBackend) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &memorySession{backend: b}, nil
}

// GetMessages returns all received messages.
func (b *MemoryBackend) GetMessages() []*Message822 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Message822(nil), b.messages...)
}

// ClearMessages clears all stored messages.
func (b *MemoryBackend) ClearMessages() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = make([]*Message822, 0)
}

// Logins returns the number of successful authentications.
func (b *MemoryBackend) Logins() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logins
}

var (
	errAuthFailed = &smtp.SMTPError{
		Code:         535,
		EnhancedCode: smtp.EnhancedCode{5, 7, 8},
		Message:      "Authentication failed",
	}
	errAuthRequired = &smtp.SMTPError{
		Code:         530,
		EnhancedCode: smtp.EnhancedCode{5, 7, 0},
		Message:      "Authentication required",
	}
)

type memorySession struct {
	backend *MemoryBackend
	authed  bool
	from    string
	to      []string
}

func (s *memorySession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *memorySession) Auth(string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		if username != s.backend.username || password != s.backend.password {
			return errAuthFailed
		}
		s.authed = true

		s.backend.mu.Lock()
		s.backend.logins++
		s.backend.mu.Unlock()
		return nil
	}), nil
}

func (s *memorySession) Mail(from string, _ *smtp.MailOptions) error {
	if !s.authed {
		return errAuthRequired
	}
	s.from = from
	return nil
}

func (s *memorySession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.to = append(s.to, to)
	return nil
}

func (s *memorySession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	if s.backend.deliver != nil {
		if err := s.backend.deliver(s.from, s.to, data); err != nil {
			return fmt.Errorf("failed to deliver message: %w", err)
		}
	}

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	s.backend.messages = append(s.backend.messages, &Message822{
		From: s.from,
		To:   s.to,
		Data: data,
	})

	return nil
}

func (s *memorySession) Reset() {
	s.from = ""
	s.to = nil
}

func (s *memorySession) Logout() error {
	return nil
}

// TestSMTPServer represents a test SMTP server instance.
type TestSMTPServer struct {
	Server  *smtp.Server
	Address string
	Backend *MemoryBackend
	cleanup func()
}

// SMTPOption configures a test SMTP server.
type SMTPOption func(*MemoryBackend)

// WithSMTPCredentials sets the only accepted login.
func WithSMTPCredentials(username, password string) SMTPOption {
	return func(b *MemoryBackend) {
		b.username = username
		b.password = password
	}
}

// WithSMTPTLS makes the server advertise STARTTLS with cfg.
func WithSMTPTLS(cfg *tls.Config) SMTPOption {
	return func(b *MemoryBackend) {
		b.tlsConfig = cfg
	}
}

// WithDelivery hands every accepted message to fn.
func WithDelivery(fn DeliverFunc) SMTPOption {
	return func(b *MemoryBackend) {
		b.deliver = fn
	}
}

// DeliverToIMAP returns an option that appends accepted messages to the
// folder on the given IMAP server, so sent mail can be read back.
func DeliverToIMAP(s *TestIMAPServer, folderName string) SMTPOption {
	return WithDelivery(func(_ string, _ []string, data []byte) error {
		return s.Append(folderName, data)
	})
}

// StartSMTPServer starts an in-memory SMTP server listening on addr.
// By default it accepts the same login as the memory IMAP backend.
func StartSMTPServer(addr string, opts ...SMTPOption) (*TestSMTPServer, error) {
	be := NewMemoryBackend(memoryUsername, memoryPassword)
	for _, opt := range opts {
		opt(be)
	}

	s := smtp.NewServer(be)
	s.AllowInsecureAuth = true
	s.Domain = "localhost"
	s.TLSConfig = be.tlsConfig

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	s.Addr = listener.Addr().String()

	go func() {
		// Serve returns once the server is closed.
		_ = s.Serve(listener)
	}()

	return &TestSMTPServer{
		Server:  s,
		Address: s.Addr,
		Backend: be,
		cleanup: func() {
			_ = s.Close()
			_ = listener.Close()
		},
	}, nil
}

// NewTestSMTPServer creates a new test SMTP server with an in-memory backend
// on a random port. The server is closed when the test ends.
func NewTestSMTPServer(t *testing.T, opts ...SMTPOption) *TestSMTPServer {
	t.Helper()

	s, err := StartSMTPServer("127.0.0.1:0", opts...)
	if err != nil {
		t.Fatalf("Failed to start SMTP server: %v", err)
	}
	t.Cleanup(s.Close)

	return s
}

// Close shuts down the test SMTP server.
func (s *TestSMTPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Username returns the accepted username.
func (s *TestSMTPServer) Username() string {
	return s.Backend.username
}

// Password returns the accepted password.
func (s *TestSMTPServer) Password() string {
	return s.Backend.password
}

// GetMessages returns all messages received by the server.
func (s *TestSMTPServer) GetMessages() []*Message822 {
	return s.Backend.GetMessages()
}

// ClearMessages clears all stored messages.
func (s *TestSMTPServer) ClearMessages() {
	s.Backend.ClearMessages()
}
