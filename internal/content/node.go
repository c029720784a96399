// Package content models the MIME structure of a message as a closed tree of
// nodes and walks it to produce a readable body and an attachment inventory.
package content

import (
	"github.com/vdavid/mailcore/internal/mailerr"
)

const (
	mediaTypePlain = "text/plain"
	mediaTypeHTML  = "text/html"
)

// Node is one MIME part. The set of implementations is closed:
// *TextLeaf, *Multipart, *AttachmentLeaf and *OpaqueLeaf.
type Node interface {
	isNode()
}

// TextLeaf is a text/plain or text/html part. Its content is appended to the
// body verbatim. A text part keeps its filename (if any) so it can still be
// downloaded, but it is never listed as an attachment.
type TextLeaf struct {
	PartID    string
	MediaType string
	Filename  string
	Content   []byte
	// Problem is set when the part could not be decoded. Such a leaf
	// contributes nothing to the body.
	Problem *mailerr.MalformedContentError
}

// Multipart is a container whose children are kept in wire order.
type Multipart struct {
	PartID    string
	MediaType string
	Children  []Node
}

// AttachmentLeaf is a non-text part that carries a filename.
type AttachmentLeaf struct {
	PartID    string
	MediaType string
	Filename  string
	Content   []byte
}

// OpaqueLeaf is any other part (non-text, no filename). It contributes nothing.
type OpaqueLeaf struct {
	PartID    string
	MediaType string
}

func (*TextLeaf) isNode()       {}
func (*Multipart) isNode()      {}
func (*AttachmentLeaf) isNode() {}
func (*OpaqueLeaf) isNode()     {}
