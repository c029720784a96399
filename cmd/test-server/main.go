// Package main runs in-memory IMAP and SMTP servers seeded with sample mail,
// so mailctl can be tried without a real account.
//
// Point mailctl at it with:
//
//	MAILCORE_ACCOUNT_ADDRESS=username@example.com
//	MAILCORE_ACCOUNT_USERNAME=username
//	MAILCORE_ACCOUNT_SECRET=password
//	MAILCORE_IMAP_ADDR=127.0.0.1:1143 MAILCORE_IMAP_SECURITY=plain
//	MAILCORE_SMTP_ADDR=127.0.0.1:1025 MAILCORE_SMTP_SECURITY=plain
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vdavid/mailcore/internal/logging"
	"github.com/vdavid/mailcore/internal/testutil"
)

var (
	imapAddr = flag.String("imap", "127.0.0.1:1143", "IMAP listen address")
	smtpAddr = flag.String("smtp", "127.0.0.1:1025", "SMTP listen address")
	logLevel = flag.String("log-level", "info", "debug, info, warn or error")
)

func main() {
	flag.Parse()

	if _, err := logging.Setup(*logLevel, false, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(2)
	}

	imapServer, smtpServer, err := startMailServers(*imapAddr, *smtpAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start mail servers")
	}
	defer imapServer.Close()
	defer smtpServer.Close()

	if err := seedTestData(imapServer); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed test data")
	}

	log.Info().
		Str("imap", imapServer.Address).
		Str("smtp", smtpServer.Address).
		Str("username", imapServer.Username()).
		Str("password", imapServer.Password()).
		Msg("Test mail servers ready. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down")
}

// startMailServers starts the IMAP server and an SMTP server that delivers
// into its INBOX.
func startMailServers(imapAddr, smtpAddr string) (*testutil.TestIMAPServer, *testutil.TestSMTPServer, error) {
	imapServer, err := testutil.StartIMAPServer(imapAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start test IMAP server: %w", err)
	}

	smtpServer, err := testutil.StartSMTPServer(smtpAddr, testutil.DeliverToIMAP(imapServer, "INBOX"))
	if err != nil {
		imapServer.Close()
		return nil, nil, fmt.Errorf("failed to start test SMTP server: %w", err)
	}

	return imapServer, smtpServer, nil
}

// seedTestData creates a few folders and fills them with sample messages.
func seedTestData(imapServer *testutil.TestIMAPServer) error {
	for _, name := range []string{"Sent", "Archive", "Receipts"} {
		if err := imapServer.CreateFolder(name); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", name, err)
		}
	}

	start := time.Now().Add(-48 * time.Hour)
	messages := []struct {
		folder string
		msg    testutil.Message
	}{
		{"INBOX", testutil.Message{
			From:    "Alice Example <alice@example.com>",
			Subject: "Lunch on Friday?",
			Text:    "Are you free for lunch on Friday?",
		}},
		{"INBOX", testutil.Message{
			From:    "Bob Example <bob@example.com>",
			Subject: "Quarterly report",
			HTML:    "<p>Numbers are in the <b>attached</b> report.</p>",
			Attachments: []testutil.Attachment{
				{Filename: "report.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4\n% sample\n")},
				{Filename: "figures.csv", ContentType: "text/csv", Data: []byte("quarter,revenue\nQ1,100\nQ2,120\n")},
			},
		}},
		{"INBOX", testutil.Message{
			From:    "Newsletter <news@example.com>",
			Subject: "This week in mail",
			Text:    "Plain text edition.",
			HTML:    `<h1>This week</h1><p style="color: red; position: fixed">HTML edition.</p><script>alert(1)</script>`,
		}},
		{"Archive", testutil.Message{
			From:    "Carol Example <carol@example.com>",
			Subject: "Old thread",
			Text:    "Archived for later.",
		}},
	}
	for i := 0; i < 12; i++ {
		messages = append(messages, struct {
			folder string
			msg    testutil.Message
		}{"Receipts", testutil.Message{
			From:    "Shop <orders@shop.example.com>",
			Subject: fmt.Sprintf("Order #%d", 1000+i),
			Text:    fmt.Sprintf("Thanks for order #%d.", 1000+i),
		}})
	}

	for i, m := range messages {
		m.msg.Date = start.Add(time.Duration(i) * time.Hour)
		raw, err := m.msg.Bytes()
		if err != nil {
			return fmt.Errorf("failed to build message %q: %w", m.msg.Subject, err)
		}
		if err := imapServer.Append(m.folder, raw); err != nil {
			return fmt.Errorf("failed to append message %q: %w", m.msg.Subject, err)
		}
	}

	log.Info().Int("messages", len(messages)).Msg("Seeded test data")
	return nil
}
