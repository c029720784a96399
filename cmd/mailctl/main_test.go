package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/mailcore/internal/mailerr"
	"github.com/vdavid/mailcore/internal/testutil"
)

func TestParseIndex(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"9", 9, false},
		{"-1", 0, true},
		{"two", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseIndex(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"auth", &mailerr.AuthError{Host: "h", Err: errors.New("no")}, "Login rejected, check the address and secret"},
		{"network", &mailerr.NetworkError{Host: "h", Err: errors.New("refused")}, "Server unreachable"},
		{"attachment", &mailerr.AttachmentNotFoundError{Filename: "a.pdf"}, `No attachment named "a.pdf"`},
		{"index", &mailerr.IndexOutOfRangeError{Folder: "INBOX", DisplayIndex: 4}, "No such message"},
		{"cancelled", context.Canceled, "Interrupted"},
		{"other", errors.New("boom"), "Failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(tt.err))
		})
	}
}

func TestListFlag(t *testing.T) {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	var l listFlag
	fs.Var(&l, "attach", "")

	require.NoError(t, fs.Parse([]string{"-attach", "a.pdf", "-attach", "b.png"}))
	assert.Equal(t, listFlag{"a.pdf", "b.png"}, l)
	assert.Equal(t, "a.pdf,b.png", l.String())
}

// setupAccount points the config environment at local test servers.
func setupAccount(t *testing.T) (*testutil.TestIMAPServer, *testutil.TestSMTPServer) {
	t.Helper()

	imapServer := testutil.NewTestIMAPServer(t)
	smtpServer := testutil.NewTestSMTPServer(t, testutil.DeliverToIMAP(imapServer, "INBOX"))

	t.Setenv("MAILCORE_ENV", "test")
	t.Setenv("MAILCORE_LOG_LEVEL", "error")
	t.Setenv("MAILCORE_ACCOUNT_ADDRESS", imapServer.Credentials().Address)
	t.Setenv("MAILCORE_ACCOUNT_USERNAME", imapServer.Username())
	t.Setenv("MAILCORE_ACCOUNT_SECRET", imapServer.Password())
	t.Setenv("MAILCORE_IMAP_ADDR", imapServer.Address)
	t.Setenv("MAILCORE_IMAP_SECURITY", "plain")
	t.Setenv("MAILCORE_SMTP_ADDR", smtpServer.Address)
	t.Setenv("MAILCORE_SMTP_SECURITY", "plain")
	t.Setenv("MAILCORE_DOWNLOAD_DIR", t.TempDir())

	return imapServer, smtpServer
}

func execute(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	require.NoError(t, fs.Parse(args))
	return cmd.Execute(context.Background(), fs)
}

func TestCommands(t *testing.T) {
	imapServer, smtpServer := setupAccount(t)
	imapServer.MustCreateFolder(t, "Work")
	imapServer.AddMessage(t, "Work", testutil.Message{
		Subject:     "Invoice",
		Text:        "see attached",
		Attachments: []testutil.Attachment{{Filename: "invoice.pdf", ContentType: "application/pdf", Data: []byte("pdf")}},
	})

	assert.Equal(t, subcommands.ExitSuccess, execute(t, &validateCmd{}))
	assert.Equal(t, subcommands.ExitSuccess, execute(t, &foldersCmd{}))
	assert.Equal(t, subcommands.ExitSuccess, execute(t, &recentCmd{}, "Work"))
	assert.Equal(t, subcommands.ExitSuccess, execute(t, &readCmd{}, "-output", "json", "Work", "0"))
	assert.Equal(t, subcommands.ExitSuccess, execute(t, &downloadCmd{}, "Work", "0", "INVOICE.pdf"))

	data, err := os.ReadFile(filepath.Join(os.Getenv("MAILCORE_DOWNLOAD_DIR"), "INVOICE.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(data))

	assert.Equal(t, subcommands.ExitFailure, execute(t, &downloadCmd{}, "Work", "0", "missing.pdf"))
	assert.Equal(t, subcommands.ExitFailure, execute(t, &readCmd{}, "Work", "7"))

	assert.Equal(t, subcommands.ExitSuccess, execute(t, &sendCmd{}, "-to", "friend@example.com", "-subject", "Hi", "-body", "<p>hi</p>"))
	assert.Len(t, smtpServer.GetMessages(), 1)
}

func TestCommands_Usage(t *testing.T) {
	setupAccount(t)

	assert.Equal(t, subcommands.ExitUsageError, execute(t, &recentCmd{}))
	assert.Equal(t, subcommands.ExitUsageError, execute(t, &readCmd{}, "Work"))
	assert.Equal(t, subcommands.ExitUsageError, execute(t, &readCmd{}, "-output", "pdf", "Work", "0"))
	assert.Equal(t, subcommands.ExitUsageError, execute(t, &downloadCmd{}, "Work", "x", "a.pdf"))
	assert.Equal(t, subcommands.ExitUsageError, execute(t, &sendCmd{}, "-subject", "Hi"))
	assert.Equal(t, subcommands.ExitUsageError, execute(t, &sendCmd{}, "-to", "a@example.com", "-body", "x", "-body-file", "y"))
}

func TestCommands_WrongSecret(t *testing.T) {
	setupAccount(t)
	t.Setenv("MAILCORE_ACCOUNT_SECRET", "wrong")

	assert.Equal(t, subcommands.ExitFailure, execute(t, &validateCmd{}))
}
