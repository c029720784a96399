package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/vdavid/mailcore/internal/models"
	"github.com/vdavid/mailcore/internal/provider"
)

const (
	prefix      = "mailcore"
	tableFormat = `mailcore is configured via the environment. The following environment
variables can be used:

KEY	DEFAULT	REQUIRED	DESCRIPTION
{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_required .}}	{{usage_description .}}
{{end}}`
)

// Config wraps all other configurations.
type Config struct {
	Env         string        `default:"development" desc:"development loads a .env file first"`
	LogLevel    string        `split_words:"true" default:"info" desc:"debug, info, warn or error"`
	LogFile     string        `split_words:"true" default:"stderr" desc:"stderr, stdout or a file path"`
	LogJSON     bool          `split_words:"true" default:"false" desc:"Log JSON instead of console text"`
	Account     Account       `desc:"Mail account"`
	DownloadDir string        `split_words:"true" desc:"Attachment download dir (default ~/Downloads)"`
	Workers     int           `default:"3" desc:"Operations run at once"`
	Timeout     time.Duration `default:"15s" desc:"Dial and command timeout"`
	IMAP        Server        `desc:"Inbound server override"`
	SMTP        Server        `desc:"Outbound server override"`
}

// Account holds the credentials of the mail account.
type Account struct {
	Address  string `desc:"Email address, also picks the provider"`
	Username string `desc:"Login name (default: the address)"`
	Secret   string `desc:"Password or app password"`
}

// Server overrides the endpoint the provider heuristic picks.
type Server struct {
	Addr     string `desc:"host:port, empty to use the provider default"`
	Security string `desc:"tls, starttls or plain"`
}

// NewConfig loads the configuration from the environment. In development a
// .env file in the working directory is loaded first.
func NewConfig() (*Config, error) {
	env := os.Getenv("MAILCORE_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		// A missing .env file is normal outside a checkout.
		_ = godotenv.Load()
	}

	c := &Config{}
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks fields envconfig cannot check by itself.
func (c *Config) Validate() error {
	if c.Account.Address == "" {
		return fmt.Errorf("MAILCORE_ACCOUNT_ADDRESS is required")
	}

	if c.Account.Secret == "" {
		return fmt.Errorf("MAILCORE_ACCOUNT_SECRET is required")
	}

	if c.Workers <= 0 {
		return fmt.Errorf("MAILCORE_WORKERS must be positive")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("MAILCORE_TIMEOUT must be positive")
	}

	if _, err := c.Provider(); err != nil {
		return err
	}

	return nil
}

// Credentials returns the account credentials.
func (c *Config) Credentials() models.Credentials {
	return models.Credentials{
		Address:  c.Account.Address,
		Username: c.Account.Username,
		Secret:   c.Account.Secret,
	}
}

// Provider resolves the provider from the account address and applies the
// endpoint overrides.
func (c *Config) Provider() (provider.Provider, error) {
	p := provider.Resolve(c.Account.Address)

	imapEndpoint, err := c.IMAP.endpoint(p.IMAP)
	if err != nil {
		return provider.Provider{}, fmt.Errorf("invalid IMAP server: %w", err)
	}
	smtpEndpoint, err := c.SMTP.endpoint(p.SMTP)
	if err != nil {
		return provider.Provider{}, fmt.Errorf("invalid SMTP server: %w", err)
	}
	if imapEndpoint != p.IMAP || smtpEndpoint != p.SMTP {
		p.Name = "custom"
	}
	p.IMAP = imapEndpoint
	p.SMTP = smtpEndpoint

	return p, nil
}

// GetDownloadDir returns the configured download dir or ~/Downloads.
func (c *Config) GetDownloadDir() (string, error) {
	if c.DownloadDir != "" {
		return c.DownloadDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, "Downloads"), nil
}

func (s Server) endpoint(fallback provider.Endpoint) (provider.Endpoint, error) {
	security := fallback.Security
	if s.Security != "" {
		parsed, err := provider.ParseSecurity(s.Security)
		if err != nil {
			return provider.Endpoint{}, err
		}
		security = parsed
	}

	if s.Addr == "" {
		fallback.Security = security
		return fallback, nil
	}
	return provider.ParseEndpoint(s.Addr, security)
}

// Usage writes the envconfig usage table to w.
func Usage(w io.Writer) error {
	tabs := tabwriter.NewWriter(w, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(prefix, &Config{}, tabs, tableFormat); err != nil {
		return fmt.Errorf("failed to render usage: %w", err)
	}
	return tabs.Flush()
}
