package mailerr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	auth := &AuthError{Host: "imap.example.com:993", Username: "me", Err: errors.New("NO [AUTHENTICATIONFAILED]")}
	network := &NetworkError{Host: "imap.example.com:993", Err: io.EOF}
	notFound := &AttachmentNotFoundError{Folder: "INBOX", DisplayIndex: 2, Filename: "a.pdf"}
	outOfRange := &IndexOutOfRangeError{Folder: "INBOX", DisplayIndex: 9, Total: 3}

	tests := []struct {
		name         string
		err          error
		isAuth       bool
		isNetwork    bool
		isNotFound   bool
		isOutOfRange bool
	}{
		{"auth", auth, true, false, false, false},
		{"wrapped auth", fmt.Errorf("failed to connect: %w", auth), true, false, false, false},
		{"network", network, false, true, false, false},
		{"attachment", notFound, false, false, true, false},
		{"index", fmt.Errorf("failed to fetch: %w", outOfRange), false, false, false, true},
		{"plain", errors.New("boom"), false, false, false, false},
		{"nil", nil, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isAuth, IsAuthError(tt.err))
			assert.Equal(t, tt.isNetwork, IsNetworkError(tt.err))
			assert.Equal(t, tt.isNotFound, IsAttachmentNotFound(tt.err))
			assert.Equal(t, tt.isOutOfRange, IsIndexOutOfRange(tt.err))
		})
	}

	assert.ErrorIs(t, network, io.EOF)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, `attachment "a.pdf" not found in message 2 of INBOX`,
		(&AttachmentNotFoundError{Folder: "INBOX", DisplayIndex: 2, Filename: "a.pdf"}).Error())
	assert.Equal(t, "message index 9 out of range for INBOX (3 messages)",
		(&IndexOutOfRangeError{Folder: "INBOX", DisplayIndex: 9, Total: 3}).Error())
	assert.Equal(t, "malformed text/plain content: bad base64",
		(&MalformedContentError{MediaType: "text/plain", Detail: "bad base64"}).Error())
	assert.Equal(t, "malformed text/html content in part 1.2: bad charset",
		(&MalformedContentError{PartID: "1.2", MediaType: "text/html", Detail: "bad charset"}).Error())
}
