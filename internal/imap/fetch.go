package imap

import (
	"fmt"
	"io"
	"sort"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// FetchEnvelopes fetches envelopes for the sequence range from..to in the
// selected mailbox, newest first.
func FetchEnvelopes(c *client.Client, from, to uint32) ([]*imap.Message, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if from == 0 || to < from {
		return []*imap.Message{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, to)

	items := []imap.FetchItem{imap.FetchEnvelope}

	messages := make(chan *imap.Message, to-from+1)
	done := make(chan error, 1)

	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var result []*imap.Message
	for msg := range messages {
		result = append(result, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SeqNum > result[j].SeqNum
	})

	return result, nil
}

// FetchFullMessage fetches the envelope and the full RFC 822 text of one
// message by sequence number. The body is fetched with BODY.PEEK[] so the
// \Seen flag is left alone.
func FetchFullMessage(c *client.Client, seqNum uint32) (*imap.Message, []byte, error) {
	if c == nil {
		return nil, nil, fmt.Errorf("client is nil")
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNum)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		if msg == nil {
			msg = m
		}
	}

	if err := <-done; err != nil {
		return nil, nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	if msg == nil {
		return nil, nil, fmt.Errorf("server did not return message %d", seqNum)
	}

	body := msg.GetBody(section)
	if body == nil {
		return nil, nil, fmt.Errorf("server did not return a body for message %d", seqNum)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read message body: %w", err)
	}

	return msg, raw, nil
}
