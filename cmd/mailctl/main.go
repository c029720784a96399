// Package main implements a command line front end for the mail engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/vdavid/mailcore/internal/config"
	"github.com/vdavid/mailcore/internal/logging"
	"github.com/vdavid/mailcore/internal/mail"
	"github.com/vdavid/mailcore/internal/mailerr"
	"github.com/vdavid/mailcore/internal/worker"
)

var logLevel = flag.String("log-level", "", "overrides MAILCORE_LOG_LEVEL")

// listFlag collects a flag given more than once.
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// listFlag must implement flag.Value
var _ flag.Value = &listFlag{}

func main() {
	subcommands.ImportantFlag("log-level")

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&envCmd{}, "")

	subcommands.Register(&validateCmd{}, "mail")
	subcommands.Register(&foldersCmd{}, "mail")
	subcommands.Register(&recentCmd{}, "mail")
	subcommands.Register(&readCmd{}, "mail")
	subcommands.Register(&downloadCmd{}, "mail")
	subcommands.Register(&sendCmd{}, "mail")

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	status := subcommands.Execute(ctx)
	stop()
	os.Exit(int(status))
}

// session is everything a command needs to talk to the account.
type session struct {
	async  *mail.Async
	log    zerolog.Logger
	engine *mail.Engine
	pool   *worker.Pool
	done   func()
}

// openSession loads the config and builds the engine behind a worker pool.
// No connection is made until the first operation.
func openSession() (*session, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger, closeLog, err := logging.Open(cfg.LogLevel, cfg.LogFile, cfg.LogJSON)
	if err != nil {
		return nil, err
	}

	p, err := cfg.Provider()
	if err != nil {
		closeLog()
		return nil, err
	}
	downloadDir, err := cfg.GetDownloadDir()
	if err != nil {
		closeLog()
		return nil, err
	}

	engine, err := mail.New(cfg.Credentials(),
		mail.WithProvider(p),
		mail.WithDownloadDir(downloadDir),
		mail.WithTimeout(cfg.Timeout),
		mail.WithLogger(logger),
	)
	if err != nil {
		closeLog()
		return nil, err
	}

	pool := worker.NewPool(cfg.Workers, logger)
	return &session{
		async:  mail.NewAsync(engine, pool),
		log:    logger,
		engine: engine,
		pool:   pool,
		done:   closeLog,
	}, nil
}

func (s *session) Close() {
	s.pool.Close()
	if err := s.engine.Close(); err != nil {
		s.log.Debug().Err(err).Msg("Failed to close engine cleanly")
	}
	s.done()
}

// parseIndex reads a display index argument.
func parseIndex(arg string) (int, error) {
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("invalid message index %q", arg)
	}
	return idx, nil
}

// describe turns an engine error into a short line for the terminal.
func describe(err error) string {
	var notFound *mailerr.AttachmentNotFoundError
	var outOfRange *mailerr.IndexOutOfRangeError
	switch {
	case mailerr.IsAuthError(err):
		return "Login rejected, check the address and secret"
	case mailerr.IsNetworkError(err):
		return "Server unreachable"
	case errors.As(err, &notFound):
		return fmt.Sprintf("No attachment named %q", notFound.Filename)
	case errors.As(err, &outOfRange):
		return "No such message"
	case errors.Is(err, context.Canceled):
		return "Interrupted"
	default:
		return "Failed"
	}
}

func fatal(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "%s: %v\n", describe(err), err)
	return subcommands.ExitFailure
}

func usage(msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, msg)
	return subcommands.ExitUsageError
}
