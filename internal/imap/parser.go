package imap

import (
	"fmt"

	"github.com/emersion/go-imap"
)

// envelopeSubject returns the decoded subject, or "" without an envelope.
func envelopeSubject(envelope *imap.Envelope) string {
	if envelope == nil {
		return ""
	}
	return envelope.Subject
}

// envelopeSender returns the first From address, formatted.
func envelopeSender(envelope *imap.Envelope) string {
	if envelope == nil || len(envelope.From) == 0 {
		return ""
	}
	return formatAddress(envelope.From[0])
}

// formatAddress formats an IMAP address to a string.
func formatAddress(address *imap.Address) string {
	if address == nil {
		return ""
	}

	if address.MailboxName == "" && address.HostName == "" {
		return ""
	}

	if address.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", address.PersonalName, address.MailboxName, address.HostName)
	}

	return fmt.Sprintf("%s@%s", address.MailboxName, address.HostName)
}
