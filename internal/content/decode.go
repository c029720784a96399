package content

import (
	"io"
	"strings"

	"github.com/vdavid/mailcore/internal/mailerr"
)

// Decoded is the result of one walk over a message.
type Decoded struct {
	// Body is every text leaf concatenated in tree order. Plain and HTML
	// alternatives are not deduplicated, both end up in the body.
	Body string
	// Attachments lists attachment filenames in traversal order.
	Attachments []string
	// Malformed lists parts that were skipped because they could not be decoded.
	Malformed []*mailerr.MalformedContentError
}

// Decode walks the tree depth-first once and collects the body and the
// attachment names.
func Decode(root Node) Decoded {
	var d decoder
	d.visit(root)
	return Decoded{
		Body:        d.body.String(),
		Attachments: d.attachments,
		Malformed:   d.malformed,
	}
}

// DecodeMessage parses and decodes a raw message. A message that cannot be
// parsed at all yields an empty body and a single malformed entry.
func DecodeMessage(r io.Reader) (Node, Decoded) {
	root, err := Parse(r)
	if err != nil {
		return &OpaqueLeaf{MediaType: "message/rfc822"}, Decoded{
			Malformed: []*mailerr.MalformedContentError{{
				MediaType: "message/rfc822",
				Detail:    err.Error(),
			}},
		}
	}
	return root, Decode(root)
}

type decoder struct {
	body        strings.Builder
	attachments []string
	malformed   []*mailerr.MalformedContentError
}

func (d *decoder) visit(n Node) {
	switch n := n.(type) {
	case *TextLeaf:
		if n.Problem != nil {
			d.malformed = append(d.malformed, n.Problem)
			return
		}
		d.body.Write(n.Content)
	case *Multipart:
		for _, child := range n.Children {
			d.visit(child)
		}
	case *AttachmentLeaf:
		d.attachments = append(d.attachments, n.Filename)
	case *OpaqueLeaf, nil:
	}
}

// File is a leaf located by Find.
type File struct {
	Filename  string
	MediaType string
	Content   []byte
}

// Find returns the first leaf in depth-first order whose filename equals name,
// ignoring case. Text leaves with a filename are matched too.
func Find(root Node, name string) (*File, bool) {
	switch n := root.(type) {
	case *Multipart:
		for _, child := range n.Children {
			if f, ok := Find(child, name); ok {
				return f, true
			}
		}
	case *AttachmentLeaf:
		if strings.EqualFold(n.Filename, name) {
			return &File{Filename: n.Filename, MediaType: n.MediaType, Content: n.Content}, true
		}
	case *TextLeaf:
		if n.Filename != "" && strings.EqualFold(n.Filename, name) {
			return &File{Filename: n.Filename, MediaType: n.MediaType, Content: n.Content}, true
		}
	}
	return nil, false
}
