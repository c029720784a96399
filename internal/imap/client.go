package imap

import (
	"fmt"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/rs/zerolog"
	"github.com/vdavid/mailcore/internal/models"
	"github.com/vdavid/mailcore/internal/provider"
)

// healthCheckThreshold is how long a client may sit idle before it is
// probed with NOOP instead of trusting its state.
const healthCheckThreshold = 1 * time.Minute

// Session owns the single inbound connection of an account. The connection
// is opened lazily on first use and reopened when it is found dead.
// All access is serialized by the session mutex.
type Session struct {
	endpoint provider.Endpoint
	creds    models.Credentials
	timeout  time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	client   *client.Client
	lastUsed time.Time
	connects int
}

// NewSession creates a disconnected session. A non-positive timeout
// means DefaultTimeout.
func NewSession(endpoint provider.Endpoint, creds models.Credentials, timeout time.Duration, logger zerolog.Logger) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		endpoint: endpoint,
		creds:    creds,
		timeout:  timeout,
		log:      logger.With().Str("module", "imap").Str("host", endpoint.Addr()).Logger(),
	}
}

// Connect ensures a live, authenticated connection exists.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.current()
	return err
}

// Do runs fn with a live, authenticated client while holding the session
// lock. If fn fails and leaves the connection unusable, the connection is
// dropped so the next call reconnects.
func (s *Session) Do(fn func(c *client.Client) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.current()
	if err != nil {
		return err
	}

	err = fn(c)
	s.lastUsed = time.Now()
	if err != nil && !usable(c) {
		s.log.Debug().Err(err).Msg("Dropping broken connection")
		s.drop()
	}
	return err
}

// Logout closes the connection. The session can be reused afterwards.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Logout()
	s.client = nil
	if err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// GetClient returns the cached client, or nil if there is none.
// The caller must not use it concurrently with Do.
func (s *Session) GetClient() *client.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Connects returns how many connections the session has opened.
func (s *Session) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

// current returns the cached client if it is still healthy, otherwise it
// reconnects. Caller must hold the lock.
func (s *Session) current() (*client.Client, error) {
	if s.client != nil {
		if s.healthy() {
			return s.client, nil
		}
		s.log.Info().Msg("Connection is dead, reconnecting")
		s.drop()
	}
	return s.connect()
}

// healthy checks the client state, and sends NOOP if the client has been
// idle for longer than healthCheckThreshold.
func (s *Session) healthy() bool {
	if !usable(s.client) {
		return false
	}
	if time.Since(s.lastUsed) < healthCheckThreshold {
		return true
	}
	if err := s.client.Noop(); err != nil {
		s.log.Debug().Err(err).Msg("Health check failed")
		return false
	}
	s.lastUsed = time.Now()
	return true
}

func (s *Session) connect() (*client.Client, error) {
	c, err := ConnectToIMAP(s.endpoint, s.timeout)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to connect")
		return nil, err
	}

	if err := Login(c, s.endpoint.Addr(), s.creds.LoginName(), s.creds.Secret); err != nil {
		_ = c.Logout()
		s.log.Warn().Err(err).Str("username", s.creds.LoginName()).Msg("Failed to log in")
		return nil, err
	}

	s.client = c
	s.lastUsed = time.Now()
	s.connects++
	s.log.Debug().Int("connects", s.connects).Msg("Connected")
	return c, nil
}

// drop forgets the client, closing it on a best-effort basis.
func (s *Session) drop() {
	if s.client == nil {
		return
	}
	_ = s.client.Logout()
	s.client = nil
}
