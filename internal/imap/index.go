package imap

import (
	"fmt"

	"github.com/emersion/go-imap/client"
	"github.com/vdavid/mailcore/internal/mailerr"
	"github.com/vdavid/mailcore/internal/models"
)

// RecentLimit caps how many messages ListRecent returns.
const RecentLimit = 10

// FetchedMessage is one message fetched in full.
type FetchedMessage struct {
	DisplayIndex int
	Subject      string
	From         string
	Raw          []byte
}

// SequenceNumber maps a display index (0 is the newest message) to the IMAP
// sequence number in a folder holding total messages. The zero-based store
// position is total-1-displayIndex.
func SequenceNumber(total, displayIndex int) (uint32, bool) {
	if displayIndex < 0 || displayIndex >= total {
		return 0, false
	}
	return uint32(total - displayIndex), true
}

// Examine opens the folder read-only, runs fn with its message count and
// closes the folder again. CLOSE on a read-only folder never expunges.
func Examine(c *client.Client, folderName string, fn func(total int) error) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}

	mbox, err := c.Select(folderName, true)
	if err != nil {
		return fmt.Errorf("failed to examine folder %s: %w", folderName, err)
	}

	err = fn(int(mbox.Messages))

	if closeErr := c.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("failed to close folder %s: %w", folderName, closeErr)
	}
	return err
}

// ListRecent returns summaries of the newest limit messages in the folder,
// newest first.
func ListRecent(c *client.Client, folderName string, limit int) ([]models.MessageSummary, error) {
	summaries := make([]models.MessageSummary, 0)

	err := Examine(c, folderName, func(total int) error {
		if total == 0 || limit <= 0 {
			return nil
		}
		start := max(0, total-limit)

		messages, err := FetchEnvelopes(c, uint32(start+1), uint32(total))
		if err != nil {
			return err
		}
		for _, msg := range messages {
			summaries = append(summaries, models.MessageSummary{
				DisplayIndex: total - int(msg.SeqNum),
				Subject:      envelopeSubject(msg.Envelope),
				From:         envelopeSender(msg.Envelope),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return summaries, nil
}

// FetchAt fetches the message at displayIndex in full.
// An index outside the folder returns an IndexOutOfRangeError.
func FetchAt(c *client.Client, folderName string, displayIndex int) (*FetchedMessage, error) {
	var fetched *FetchedMessage

	err := Examine(c, folderName, func(total int) error {
		seqNum, ok := SequenceNumber(total, displayIndex)
		if !ok {
			return &mailerr.IndexOutOfRangeError{Folder: folderName, DisplayIndex: displayIndex, Total: total}
		}

		msg, raw, err := FetchFullMessage(c, seqNum)
		if err != nil {
			return err
		}
		fetched = &FetchedMessage{
			DisplayIndex: displayIndex,
			Subject:      envelopeSubject(msg.Envelope),
			From:         envelopeSender(msg.Envelope),
			Raw:          raw,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fetched, nil
}
