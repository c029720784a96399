package imap

import (
	"fmt"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// nonExistentAttr marks a mailbox that is only listed because it has
// children (RFC 5258). go-imap v1 has no constant for it.
const nonExistentAttr = "\\NonExistent"

// ListFolders lists the selectable folders on the IMAP server in the order
// the server returns them.
func ListFolders(c *client.Client) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	folders := make([]string, 0)
	for m := range mailboxes {
		if selectable(m) {
			folders = append(folders, m.Name)
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

// selectable reports whether a mailbox can hold messages.
func selectable(info *imap.MailboxInfo) bool {
	for _, attr := range info.Attributes {
		if strings.EqualFold(attr, imap.NoSelectAttr) || strings.EqualFold(attr, nonExistentAttr) {
			return false
		}
	}
	return true
}
