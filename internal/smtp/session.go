package smtp

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/rs/zerolog"
	"github.com/vdavid/mailcore/internal/models"
	"github.com/vdavid/mailcore/internal/provider"
)

// Session owns the single outbound connection of an account. The connection
// is opened lazily, checked with NOOP before each use and reopened when it
// is dead. All access is serialized by the session mutex.
type Session struct {
	endpoint provider.Endpoint
	creds    models.Credentials
	timeout  time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	client   *smtp.Client
	connects int
}

// NewSession creates a disconnected session. A non-positive timeout means
// DefaultTimeout.
func NewSession(endpoint provider.Endpoint, creds models.Credentials, timeout time.Duration, logger zerolog.Logger) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		endpoint: endpoint,
		creds:    creds,
		timeout:  timeout,
		log:      logger.With().Str("module", "smtp").Str("host", endpoint.Addr()).Logger(),
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
// lock. A server rejection leaves the connection in place after RSET; any
// other failure drops it so the next call reconnects.
func (s *Session) Do(fn func(c *smtp.Client) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.current()
	if err != nil {
		return err
	}

	if err := fn(c); err != nil {
		var smtpErr *smtp.SMTPError
		if !errors.As(err, &smtpErr) || c.Reset() != nil {
			s.log.Debug().Err(err).Msg("Dropping broken connection")
			s.drop()
		}
		return err
	}
	return nil
}

// Send submits msg for the given envelope.
func (s *Session) Send(from string, recipients []string, msg []byte) error {
	return s.Do(func(c *smtp.Client) error {
		if err := c.SendMail(from, recipients, bytes.NewReader(msg)); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		return nil
	})
}

// Close sends QUIT and closes the connection. The session can be reused
// afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Quit()
	_ = s.client.Close()
	s.client = nil
	if err != nil {
		return fmt.Errorf("failed to quit: %w", err)
	}
	return nil
}

// GetClient returns the cached client, or nil if there is none.
// The caller must not use it concurrently with Do.
func (s *Session) GetClient() *smtp.Client {
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

// current returns the cached client if it answers NOOP, otherwise it
// reconnects. Caller must hold the lock.
func (s *Session) current() (*smtp.Client, error) {
	if s.client != nil {
		if err := s.client.Noop(); err == nil {
			return s.client, nil
		}
		s.log.Info().Msg("Connection is dead, reconnecting")
		s.drop()
	}
	return s.connect()
}

func (s *Session) connect() (*smtp.Client, error) {
	c, err := ConnectToSMTP(s.endpoint, s.timeout)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to connect")
		return nil, err
	}

	if err := Authenticate(c, s.endpoint.Addr(), s.creds.LoginName(), s.creds.Secret); err != nil {
		_ = c.Close()
		s.log.Warn().Err(err).Str("username", s.creds.LoginName()).Msg("Failed to log in")
		return nil, err
	}

	s.client = c
	s.connects++
	s.log.Debug().Int("connects", s.connects).Msg("Connected")
	return c, nil
}

// drop forgets the client, closing it without QUIT.
func (s *Session) drop() {
	if s.client == nil {
		return
	}
	_ = s.client.Close()
	s.client = nil
}
