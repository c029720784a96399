// Package mail is the account-level engine: it owns one inbound and one
// outbound session and exposes the operations a front end calls.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vdavid/mailcore/internal/content"
	"github.com/vdavid/mailcore/internal/imap"
	"github.com/vdavid/mailcore/internal/models"
	"github.com/vdavid/mailcore/internal/provider"
	"github.com/vdavid/mailcore/internal/sanitize"
	"github.com/vdavid/mailcore/internal/smtp"
)

// Client is the set of operations a front end drives.
type Client interface {
	Validate(ctx context.Context) error
	ListFolders(ctx context.Context) ([]string, error)
	ListRecentSubjects(ctx context.Context, folder string) ([]string, error)
	ReadMessage(ctx context.Context, folder string, displayIndex int) (*models.MessageContent, error)
	Download(ctx context.Context, folder string, displayIndex int, filename string) (string, error)
	Send(ctx context.Context, to, subject, htmlBody string, attachments []string) error
	Close() error
}

var _ Client = (*Engine)(nil)

// Engine serves one account. It is safe for concurrent use; each session
// serializes its own traffic.
type Engine struct {
	creds       models.Credentials
	provider    provider.Provider
	downloadDir string
	log         zerolog.Logger

	inbound  *imap.Session
	outbound *smtp.Session
}

type options struct {
	provider    *provider.Provider
	downloadDir string
	timeout     time.Duration
	logger      *zerolog.Logger
}

// Option configures an Engine.
type Option func(*options)

// WithProvider replaces the provider picked from the account address.
func WithProvider(p provider.Provider) Option {
	return func(o *options) {
		o.provider = &p
	}
}

// WithDownloadDir sets where attachments are written. The default is
// ~/Downloads.
func WithDownloadDir(dir string) Option {
	return func(o *options) {
		o.downloadDir = dir
	}
}

// WithTimeout sets the dial and command timeout of both sessions.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLogger sets the logger. The default is the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// New creates an engine for the account. No connection is opened until the
// first operation needs one.
func New(creds models.Credentials, opts ...Option) (*Engine, error) {
	if creds.Address == "" {
		return nil, errors.New("account address is required")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	p := provider.Resolve(creds.Address)
	if o.provider != nil {
		p = *o.provider
	}

	downloadDir := o.downloadDir
	if downloadDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to find home directory: %w", err)
		}
		downloadDir = filepath.Join(home, "Downloads")
	}

	logger := log.Logger
	if o.logger != nil {
		logger = *o.logger
	}
	logger = logger.With().Str("account", creds.Address).Logger()

	e := &Engine{
		creds:       creds,
		provider:    p,
		downloadDir: downloadDir,
		log:         logger.With().Str("module", "mail").Logger(),
		inbound:     imap.NewSession(p.IMAP, creds, o.timeout, logger),
		outbound:    smtp.NewSession(p.SMTP, creds, o.timeout, logger),
	}
	e.log.Debug().Str("provider", p.Name).Str("imap", p.IMAP.Addr()).Str("smtp", p.SMTP.Addr()).Msg("Engine created")

	return e, nil
}

// Provider returns the provider the engine talks to.
func (e *Engine) Provider() provider.Provider {
	return e.provider
}

// DownloadDir returns where attachments are written.
func (e *Engine) DownloadDir() string {
	return e.downloadDir
}

// Validate connects and logs in to the inbound server. It returns nil, an
// *mailerr.AuthError or an *mailerr.NetworkError.
func (e *Engine) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.inbound.Connect(); err != nil {
		return err
	}
	e.log.Info().Msg("Credentials validated")
	return nil
}

// ListFolders returns the selectable folders in server order.
func (e *Engine) ListFolders(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var folders []string
	err := e.inbound.Do(func(c *client.Client) error {
		var err error
		folders, err = imap.ListFolders(c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// ListRecentSubjects returns up to ten "<subject> (From: <sender>)" lines,
// newest first. Entry i has display index i.
func (e *Engine) ListRecentSubjects(ctx context.Context, folder string) ([]string, error) {
	summaries, err := e.ListRecent(ctx, folder)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(summaries))
	for _, s := range summaries {
		lines = append(lines, s.String())
	}
	return lines, nil
}

// ListRecent is ListRecentSubjects with structured entries.
func (e *Engine) ListRecent(ctx context.Context, folder string) ([]models.MessageSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var summaries []models.MessageSummary
	err := e.inbound.Do(func(c *client.Client) error {
		var err error
		summaries, err = imap.ListRecent(c, folder, imap.RecentLimit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// ReadMessage fetches and decodes the message at displayIndex. The body is
// a header block followed by every text part of the message in order.
func (e *Engine) ReadMessage(ctx context.Context, folder string, displayIndex int) (*models.MessageContent, error) {
	fetched, _, decoded, err := e.fetchDecoded(ctx, folder, displayIndex)
	if err != nil {
		return nil, err
	}

	htmlBody := headerBlock(fetched.Subject, fetched.From) + decoded.Body
	safeHTML, err := sanitize.HTML(htmlBody)
	if err != nil {
		return nil, fmt.Errorf("failed to sanitize message body: %w", err)
	}

	return &models.MessageContent{
		Subject:         fetched.Subject,
		From:            fetched.From,
		HTMLBody:        htmlBody,
		SafeHTML:        safeHTML,
		AttachmentNames: decoded.Attachments,
		Malformed:       decoded.Malformed,
	}, nil
}

// fetchDecoded fetches a message in full and runs it through the decoder.
// Malformed parts are logged and skipped.
func (e *Engine) fetchDecoded(ctx context.Context, folder string, displayIndex int) (*imap.FetchedMessage, content.Node, content.Decoded, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, content.Decoded{}, err
	}

	var fetched *imap.FetchedMessage
	err := e.inbound.Do(func(c *client.Client) error {
		var err error
		fetched, err = imap.FetchAt(c, folder, displayIndex)
		return err
	})
	if err != nil {
		return nil, nil, content.Decoded{}, err
	}

	root, decoded := content.DecodeMessage(bytes.NewReader(fetched.Raw))
	for _, problem := range decoded.Malformed {
		e.log.Warn().
			Str("folder", folder).
			Int("index", displayIndex).
			Str("part", problem.PartID).
			Str("type", problem.MediaType).
			Msg(problem.Detail)
	}
	return fetched, root, decoded, nil
}

// Close logs out of both servers. The engine reconnects if used again.
func (e *Engine) Close() error {
	return errors.Join(e.inbound.Logout(), e.outbound.Close())
}
