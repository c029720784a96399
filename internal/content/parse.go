package content

import (
	"fmt"
	"io"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/vdavid/mailcore/internal/mailerr"
)

// Parse reads a raw RFC 5322 message and converts its MIME structure into a Node tree.
func Parse(r io.Reader) (Node, error) {
	root, err := enmime.ReadParts(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return FromPart(root), nil
}

// FromPart converts an enmime part tree into a Node tree.
func FromPart(p *enmime.Part) Node {
	if p == nil {
		return &OpaqueLeaf{}
	}

	mediaType := strings.ToLower(strings.TrimSpace(p.ContentType))
	if mediaType == "" {
		// RFC 2045 default for parts without a Content-Type header.
		mediaType = mediaTypePlain
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		m := &Multipart{PartID: p.PartID, MediaType: mediaType}
		for child := p.FirstChild; child != nil; child = child.NextSibling {
			m.Children = append(m.Children, FromPart(child))
		}
		return m

	case mediaType == mediaTypePlain || mediaType == mediaTypeHTML:
		leaf := &TextLeaf{
			PartID:    p.PartID,
			MediaType: mediaType,
			Filename:  p.FileName,
			Content:   p.Content,
		}
		if detail := severeProblem(p); detail != "" {
			leaf.Problem = &mailerr.MalformedContentError{
				PartID:    p.PartID,
				MediaType: mediaType,
				Detail:    detail,
			}
		}
		return leaf

	case p.FileName != "":
		return &AttachmentLeaf{
			PartID:    p.PartID,
			MediaType: mediaType,
			Filename:  p.FileName,
			Content:   p.Content,
		}

	default:
		return &OpaqueLeaf{PartID: p.PartID, MediaType: mediaType}
	}
}

// severeProblem joins the severe errors enmime recorded on a part.
func severeProblem(p *enmime.Part) string {
	var details []string
	for _, e := range p.Errors {
		if e == nil || !e.Severe {
			continue
		}
		details = append(details, e.Name+": "+e.Detail)
	}
	return strings.Join(details, "; ")
}
