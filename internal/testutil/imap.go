package testutil

import (
	"bytes"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
	"github.com/vdavid/mailcore/internal/models"
	"github.com/vdavid/mailcore/internal/provider"
)

// The memory backend creates a default user with these credentials.
const (
	memoryUsername = "username"
	memoryPassword = "password"
)

// TestIMAPServer represents a test IMAP server instance.
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Backend  *memory.Backend
	cleanup  func()
	username string
	password string
}

// StartIMAPServer starts an in-memory IMAP server listening on addr.
// Use "127.0.0.1:0" for a random port.
func StartIMAPServer(addr string) (*TestIMAPServer, error) {
	be := memory.New()

	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		// Serve returns once the server is closed.
		_ = s.Serve(listener)
	}()

	return &TestIMAPServer{
		Server:  s,
		Address: listener.Addr().String(),
		Backend: be,
		cleanup: func() {
			// Close only knows listeners Serve has registered, which may not
			// have happened yet.
			_ = s.Close()
			_ = listener.Close()
		},
		username: memoryUsername,
		password: memoryPassword,
	}, nil
}

// NewTestIMAPServer creates a new test IMAP server with an in-memory backend
// on a random port. The server is closed when the test ends.
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	s, err := StartIMAPServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start IMAP server: %v", err)
	}
	t.Cleanup(s.Close)

	return s
}

// Close shuts down the test IMAP server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Username returns the default test username.
func (s *TestIMAPServer) Username() string {
	return s.username
}

// Password returns the default test password.
func (s *TestIMAPServer) Password() string {
	return s.password
}

// Credentials returns credentials that log in to this server.
func (s *TestIMAPServer) Credentials() models.Credentials {
	return models.Credentials{
		Address:  "username@example.com",
		Username: s.username,
		Secret:   s.password,
	}
}

// Endpoint returns the server's plain-text endpoint.
func (s *TestIMAPServer) Endpoint() provider.Endpoint {
	endpoint, err := provider.ParseEndpoint(s.Address, provider.SecurityPlain)
	if err != nil {
		// Address comes from net.Listen, so it always parses.
		panic(err)
	}
	return endpoint
}

// Dial opens a logged-in client connection to the server.
func (s *TestIMAPServer) Dial() (*imapclient.Client, error) {
	c, err := imapclient.Dial(s.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test server: %w", err)
	}

	if err := c.Login(s.username, s.password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	return c, nil
}

// Connect creates a new IMAP client connection to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	c, err := s.Dial()
	if err != nil {
		t.Fatalf("%v", err)
	}

	cleanup := func() {
		_ = c.Logout()
	}

	return c, cleanup
}

// CreateFolder creates a mailbox.
func (s *TestIMAPServer) CreateFolder(name string) error {
	c, err := s.Dial()
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Logout()
	}()

	if err := c.Create(name); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", name, err)
	}
	return nil
}

// Append stores a raw RFC 822 message at the end of the folder.
func (s *TestIMAPServer) Append(folderName string, raw []byte) error {
	c, err := s.Dial()
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Logout()
	}()

	if err := c.Append(folderName, []string{imap.SeenFlag}, time.Now(), bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// MustCreateFolder creates a mailbox or fails the test.
func (s *TestIMAPServer) MustCreateFolder(t *testing.T, name string) {
	t.Helper()

	if err := s.CreateFolder(name); err != nil {
		t.Fatalf("%v", err)
	}
}

// AddMessage appends a generated message to the folder.
func (s *TestIMAPServer) AddMessage(t *testing.T, folderName string, msg Message) {
	t.Helper()

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Failed to build message: %v", err)
	}
	if err := s.Append(folderName, raw); err != nil {
		t.Fatalf("%v", err)
	}
}

// Count returns the number of messages in the folder.
func (s *TestIMAPServer) Count(t *testing.T, folderName string) int {
	t.Helper()

	c, cleanup := s.Connect(t)
	defer cleanup()

	status, err := c.Status(folderName, []imap.StatusItem{imap.StatusMessages})
	if err != nil {
		t.Fatalf("Failed to get folder status: %v", err)
	}
	return int(status.Messages)
}
