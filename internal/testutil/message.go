package testutil

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
)

// Attachment is a file attached to a generated message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message describes a test message. Zero fields get sensible defaults.
type Message struct {
	From        string
	To          string
	Subject     string
	Date        time.Time
	Text        string
	HTML        string
	Attachments []Attachment
}

// Bytes renders the message as multipart/mixed RFC 822 text.
func (m Message) Bytes() ([]byte, error) {
	var h mail.Header
	if m.From != "" {
		from, err := mail.ParseAddress(m.From)
		if err != nil {
			return nil, fmt.Errorf("invalid from address: %w", err)
		}
		h.SetAddressList("From", []*mail.Address{from})
	}
	to := m.To
	if to == "" {
		to = "username@example.com"
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	h.SetAddressList("To", []*mail.Address{rcpt})
	h.SetSubject(m.Subject)
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create inline part: %w", err)
	}
	text := m.Text
	if text == "" && m.HTML == "" {
		text = "Test message body."
	}
	if text != "" {
		if err := writeInline(tw, "text/plain", text); err != nil {
			return nil, err
		}
	}
	if m.HTML != "" {
		if err := writeInline(tw, "text/html", m.HTML); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close inline part: %w", err)
	}

	for _, a := range m.Attachments {
		var ah mail.AttachmentHeader
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		ah.Set("Content-Type", contentType)
		ah.Set("Content-Transfer-Encoding", "base64")
		ah.SetFilename(a.Filename)

		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment %s: %w", a.Filename, err)
		}
		if _, err := w.Write(a.Data); err != nil {
			return nil, fmt.Errorf("failed to write attachment %s: %w", a.Filename, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close attachment %s: %w", a.Filename, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message: %w", err)
	}
	return buf.Bytes(), nil
}

func writeInline(tw *mail.InlineWriter, contentType, body string) error {
	var ih mail.InlineHeader
	ih.Set("Content-Type", contentType+"; charset=utf-8")

	w, err := tw.CreatePart(ih)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}
