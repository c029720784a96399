package models

import (
	"fmt"

	"github.com/vdavid/mailcore/internal/mailerr"
)

// MessageSummary is one line of a folder listing.
type MessageSummary struct {
	DisplayIndex int    `json:"display_index"`
	Subject      string `json:"subject"`
	From         string `json:"from"`
}

// String renders the summary the way listings show it.
func (s MessageSummary) String() string {
	from := s.From
	if from == "" {
		from = "unknown"
	}
	return fmt.Sprintf("%s (From: %s)", s.Subject, from)
}

// MessageContent is a decoded message ready for display.
type MessageContent struct {
	Subject string `json:"subject"`
	From    string `json:"from"`
	// HTMLBody is the generated header block followed by every text part of
	// the message in tree order.
	HTMLBody string `json:"unsafe_html_body"`
	// SafeHTML is HTMLBody run through the HTML sanitizer.
	SafeHTML        string                           `json:"safe_html_body"`
	AttachmentNames []string                         `json:"attachment_names"`
	Malformed       []*mailerr.MalformedContentError `json:"-"`
}
