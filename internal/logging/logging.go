// Package logging configures the process-wide zerolog logger.
package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a config value to a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch level {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("log level %q not one of: debug, info, warn, error", level)
	}
}

// Setup points the global logger at w, as JSON or as human readable console
// output, and returns it.
func Setup(level string, json bool, w io.Writer) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	zerolog.SetGlobalLevel(lvl)

	color := isTerminal(w)
	w = zerolog.SyncWriter(w)
	if json {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:     w,
			NoColor: !color,
		}).With().Timestamp().Logger()
	}
	return log.Logger, nil
}

// Open is Setup for a named destination: "stderr", "stdout" or a file path
// that is appended to. The returned close func flushes and closes the file.
func Open(level, logfile string, json bool) (zerolog.Logger, func(), error) {
	closeLog := func() {}
	var w io.Writer
	switch logfile {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		logf, err := os.OpenFile(logfile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o666)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		bw := bufio.NewWriter(logf)
		w = bw
		closeLog = func() {
			_ = bw.Flush()
			_ = logf.Close()
		}
	}

	logger, err := Setup(level, json, w)
	if err != nil {
		closeLog()
		return zerolog.Nop(), nil, err
	}
	return logger, closeLog, nil
}

// isTerminal reports whether colored output makes sense for w.
func isTerminal(w io.Writer) bool {
	if runtime.GOOS == "windows" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
