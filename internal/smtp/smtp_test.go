package smtp

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/mailcore/internal/mailerr"
	"github.com/vdavid/mailcore/internal/models"
	"github.com/vdavid/mailcore/internal/provider"
	"github.com/vdavid/mailcore/internal/testutil"
)

func testEndpoint(t *testing.T, addr string) provider.Endpoint {
	t.Helper()

	endpoint, err := provider.ParseEndpoint(addr, provider.SecurityPlain)
	require.NoError(t, err)
	return endpoint
}

func testCredentials(server *testutil.TestSMTPServer) models.Credentials {
	return models.Credentials{
		Address:  "me@example.com",
		Username: server.Username(),
		Secret:   server.Password(),
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestCompose(t *testing.T) {
	t.Run("builds html body with attachments", func(t *testing.T) {
		pdf := writeFile(t, "report.pdf", []byte("%PDF-1.4\n"))

		out, err := Compose(Draft{
			From:        "me@example.com",
			To:          "ann@example.com, Bob <bob@example.com>",
			Subject:     "Quarterly",
			HTMLBody:    "<p>See attached.</p>",
			Attachments: []string{pdf},
		})
		require.NoError(t, err)
		assert.Equal(t, "me@example.com", out.From)
		assert.Equal(t, []string{"ann@example.com", "bob@example.com"}, out.Recipients)

		env, err := enmime.ReadEnvelope(bytes.NewReader(out.Data))
		require.NoError(t, err)
		assert.Equal(t, "Quarterly", env.GetHeader("Subject"))
		assert.Contains(t, env.HTML, "<p>See attached.</p>")
		require.Len(t, env.Attachments, 1)
		assert.Equal(t, "report.pdf", env.Attachments[0].FileName)
		assert.Equal(t, []byte("%PDF-1.4\n"), env.Attachments[0].Content)
	})

	t.Run("empty subject and no attachments", func(t *testing.T) {
		out, err := Compose(Draft{
			From:     "me@example.com",
			To:       "ann@example.com",
			HTMLBody: "<p>No subject.</p>",
		})
		require.NoError(t, err)

		env, err := enmime.ReadEnvelope(bytes.NewReader(out.Data))
		require.NoError(t, err)
		assert.Equal(t, "", env.GetHeader("Subject"))
		assert.Contains(t, env.HTML, "<p>No subject.</p>")
		assert.Empty(t, env.Attachments)
		assert.Equal(t, "text/html", env.Root.ContentType)
	})

	tests := []struct {
		name    string
		draft   Draft
		wantErr string
	}{
		{
			name:    "no recipients",
			draft:   Draft{From: "me@example.com", Subject: "s"},
			wantErr: "no recipients",
		},
		{
			name:    "invalid recipient list",
			draft:   Draft{From: "me@example.com", To: "not an address", Subject: "s"},
			wantErr: "invalid recipient list",
		},
		{
			name: "missing attachment file",
			draft: Draft{
				From:        "me@example.com",
				To:          "ann@example.com",
				Subject:     "s",
				Attachments: []string{filepath.Join(os.TempDir(), "does-not-exist.pdf")},
			},
			wantErr: "failed to build message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compose(tt.draft)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSession(t *testing.T) {
	t.Run("sends over one reused connection", func(t *testing.T) {
		server := testutil.NewTestSMTPServer(t)
		s := NewSession(testEndpoint(t, server.Address), testCredentials(server), 0, zerolog.Nop())
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Send("me@example.com", []string{"ann@example.com"}, []byte("Subject: one\r\n\r\nbody\r\n")))
		require.NoError(t, s.Send("me@example.com", []string{"bob@example.com"}, []byte("Subject: two\r\n\r\nbody\r\n")))

		messages := server.GetMessages()
		require.Len(t, messages, 2)
		assert.Equal(t, "me@example.com", messages[0].From)
		assert.Equal(t, []string{"ann@example.com"}, messages[0].To)
		assert.Contains(t, string(messages[1].Data), "Subject: two")
		assert.Equal(t, 1, s.Connects())
		assert.Equal(t, 1, server.Backend.Logins())
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		server := testutil.NewTestSMTPServer(t)
		creds := testCredentials(server)
		creds.Secret = "wrong"
		s := NewSession(testEndpoint(t, server.Address), creds, 0, zerolog.Nop())

		err := s.Connect()
		require.Error(t, err)
		assert.True(t, mailerr.IsAuthError(err))
		assert.Nil(t, s.GetClient())
	})

	t.Run("reports unreachable server as network error", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := listener.Addr().String()
		require.NoError(t, listener.Close())

		s := NewSession(testEndpoint(t, addr), models.Credentials{Address: "me@example.com"}, 0, zerolog.Nop())
		err = s.Connect()
		require.Error(t, err)
		assert.True(t, mailerr.IsNetworkError(err))
	})

	t.Run("reconnects after the connection broke", func(t *testing.T) {
		server := testutil.NewTestSMTPServer(t)
		s := NewSession(testEndpoint(t, server.Address), testCredentials(server), 0, zerolog.Nop())
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Connect())
		require.NoError(t, s.GetClient().Close())

		require.NoError(t, s.Send("me@example.com", []string{"ann@example.com"}, []byte("Subject: again\r\n\r\nbody\r\n")))
		assert.Equal(t, 2, s.Connects())
		assert.Len(t, server.GetMessages(), 1)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		server := testutil.NewTestSMTPServer(t)
		s := NewSession(testEndpoint(t, server.Address), testCredentials(server), 0, zerolog.Nop())

		require.NoError(t, s.Connect())
		require.NoError(t, s.Close())
		assert.NoError(t, s.Close())
	})
}

func TestConnectToSMTP(t *testing.T) {
	t.Run("plain connection gets the timeouts", func(t *testing.T) {
		server := testutil.NewTestSMTPServer(t)

		c, err := ConnectToSMTP(testEndpoint(t, server.Address), 3*time.Second)
		require.NoError(t, err)
		defer func() { _ = c.Close() }()

		assert.Equal(t, 3*time.Second, c.CommandTimeout)
		assert.Equal(t, 3*time.Second, c.SubmissionTimeout)
		assert.NoError(t, c.Noop())
	})

	t.Run("starttls without server support", func(t *testing.T) {
		server := testutil.NewTestSMTPServer(t)
		endpoint := testEndpoint(t, server.Address)
		endpoint.Security = provider.SecurityStartTLS

		_, err := ConnectToSMTP(endpoint, 3*time.Second)
		require.Error(t, err)
		assert.True(t, mailerr.IsNetworkError(err))
		assert.Contains(t, err.Error(), "failed to start TLS")
	})

	t.Run("starttls verifies the server certificate", func(t *testing.T) {
		server := testutil.NewTestSMTPServer(t, testutil.WithSMTPTLS(testutil.SelfSignedTLSConfig(t)))
		endpoint := testEndpoint(t, server.Address)
		endpoint.Security = provider.SecurityStartTLS

		s := NewSession(endpoint, testCredentials(server), 3*time.Second, zerolog.Nop())
		err := s.Connect()
		require.Error(t, err)
		assert.True(t, mailerr.IsNetworkError(err))
		assert.Contains(t, err.Error(), "certificate")
		assert.Equal(t, 0, server.Backend.Logins())
	})
}
