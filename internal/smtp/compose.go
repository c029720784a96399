package smtp

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
)

// Draft is an outgoing message before encoding.
type Draft struct {
	From        string
	To          string
	Subject     string
	HTMLBody    string
	Attachments []string
}

// Outgoing is an encoded message plus its SMTP envelope.
type Outgoing struct {
	From       string
	Recipients []string
	Data       []byte
}

// Compose builds a message holding the HTML body and one part per attachment
// path. Without attachments the HTML part is the whole message. To is a
// comma-separated address list. Any subject, including an empty one, is sent
// as given.
func Compose(d Draft) (*Outgoing, error) {
	if strings.TrimSpace(d.To) == "" {
		return nil, fmt.Errorf("no recipients")
	}
	to, err := mail.ParseAddressList(d.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient list: %w", err)
	}

	recipients := make([]string, 0, len(to))
	toAddrs := make([]mail.Address, 0, len(to))
	for _, addr := range to {
		recipients = append(recipients, addr.Address)
		toAddrs = append(toAddrs, *addr)
	}

	builder := enmime.Builder().
		From("", d.From).
		ToAddrs(toAddrs).
		Subject(d.Subject).
		Date(time.Now()).
		HTML([]byte(d.HTMLBody))
	for _, path := range d.Attachments {
		builder = builder.AddFileAttachment(path)
	}

	root, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}

	var buf bytes.Buffer
	if err := root.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	return &Outgoing{
		From:       d.From,
		Recipients: recipients,
		Data:       buf.Bytes(),
	}, nil
}
