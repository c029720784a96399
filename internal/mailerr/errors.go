// Package mailerr defines the error kinds reported by the mail engine.
// Callers inspect them with errors.As or the Is* helpers; every error
// wraps its cause so the original protocol error stays reachable.
package mailerr

import (
	"errors"
	"fmt"
)

// ErrUnsafeFilename is returned when an attachment name cannot be turned into
// a file name inside the download directory.
var ErrUnsafeFilename = errors.New("unsafe attachment filename")

// AuthError indicates that the server rejected the account credentials.
type AuthError struct {
	Host     string
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s on %s: %v", e.Username, e.Host, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NetworkError indicates that the server could not be reached or the
// connection broke before authentication finished.
type NetworkError struct {
	Host string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure talking to %s: %v", e.Host, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AttachmentNotFoundError is returned when no part of the message carries
// the requested filename.
type AttachmentNotFoundError struct {
	Folder       string
	DisplayIndex int
	Filename     string
}

func (e *AttachmentNotFoundError) Error() string {
	return fmt.Sprintf("attachment %q not found in message %d of %s", e.Filename, e.DisplayIndex, e.Folder)
}

// IndexOutOfRangeError is returned when a display index does not address a
// message, usually because the folder shrank since it was listed.
type IndexOutOfRangeError struct {
	Folder       string
	DisplayIndex int
	Total        int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("message index %d out of range for %s (%d messages)", e.DisplayIndex, e.Folder, e.Total)
}

// MalformedContentError describes a MIME part that could not be decoded.
// The decoder records it and carries on with the rest of the message.
type MalformedContentError struct {
	PartID    string
	MediaType string
	Detail    string
}

func (e *MalformedContentError) Error() string {
	if e.PartID == "" {
		return fmt.Sprintf("malformed %s content: %s", e.MediaType, e.Detail)
	}
	return fmt.Sprintf("malformed %s content in part %s: %s", e.MediaType, e.PartID, e.Detail)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsNetworkError reports whether err (or any error in its chain) is a NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsAttachmentNotFound reports whether err is an AttachmentNotFoundError.
func IsAttachmentNotFound(err error) bool {
	var notFound *AttachmentNotFoundError
	return errors.As(err, &notFound)
}

// IsIndexOutOfRange reports whether err is an IndexOutOfRangeError.
func IsIndexOutOfRange(err error) bool {
	var outOfRange *IndexOutOfRangeError
	return errors.As(err, &outOfRange)
}
