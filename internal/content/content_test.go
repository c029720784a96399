package content

import (
	"strings"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/mailcore/internal/mailerr"
)

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

const nestedMessage = `From: Alice <alice@example.com>
To: bob@example.com
Subject: Nested
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: text/plain; charset=utf-8

first
--outer
Content-Type: multipart/related; boundary="inner"

--inner
Content-Type: text/html; charset=utf-8

<p>second</p>
--inner
Content-Type: application/pdf
Content-Disposition: attachment; filename="report.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQK
--inner--
--outer
Content-Type: text/plain; charset=utf-8

third
--outer--
`

func TestDecode(t *testing.T) {
	t.Run("concatenates text in tree order and lists attachments", func(t *testing.T) {
		root := &Multipart{Children: []Node{
			&TextLeaf{MediaType: mediaTypePlain, Content: []byte("t1")},
			&Multipart{Children: []Node{
				&TextLeaf{MediaType: mediaTypeHTML, Content: []byte("t2")},
				&AttachmentLeaf{Filename: "a", Content: []byte("bytes")},
			}},
			&TextLeaf{MediaType: mediaTypePlain, Content: []byte("t3")},
		}}

		d := Decode(root)
		assert.Equal(t, "t1t2t3", d.Body)
		assert.Equal(t, []string{"a"}, d.Attachments)
		assert.Empty(t, d.Malformed)
	})

	t.Run("keeps plain and html alternatives in order", func(t *testing.T) {
		root := &Multipart{MediaType: "multipart/alternative", Children: []Node{
			&TextLeaf{MediaType: mediaTypePlain, Content: []byte("plain ")},
			&TextLeaf{MediaType: mediaTypeHTML, Content: []byte("<b>html</b>")},
		}}

		assert.Equal(t, "plain <b>html</b>", Decode(root).Body)
	})

	t.Run("opaque leaves contribute nothing", func(t *testing.T) {
		root := &Multipart{Children: []Node{
			&OpaqueLeaf{MediaType: "application/octet-stream"},
			&TextLeaf{MediaType: mediaTypePlain, Content: []byte("only")},
		}}

		d := Decode(root)
		assert.Equal(t, "only", d.Body)
		assert.Empty(t, d.Attachments)
	})

	t.Run("malformed text leaf is skipped and reported", func(t *testing.T) {
		problem := &mailerr.MalformedContentError{PartID: "1", MediaType: mediaTypePlain, Detail: "bad base64"}
		root := &Multipart{Children: []Node{
			&TextLeaf{MediaType: mediaTypePlain, Content: []byte("garbage"), Problem: problem},
			&TextLeaf{MediaType: mediaTypePlain, Content: []byte("fine")},
		}}

		d := Decode(root)
		assert.Equal(t, "fine", d.Body)
		require.Len(t, d.Malformed, 1)
		assert.Same(t, problem, d.Malformed[0])
	})

	t.Run("single text leaf", func(t *testing.T) {
		d := Decode(&TextLeaf{MediaType: mediaTypeHTML, Content: []byte("<p>hi</p>")})
		assert.Equal(t, "<p>hi</p>", d.Body)
		assert.Nil(t, d.Attachments)
	})
}

func TestFind(t *testing.T) {
	root := &Multipart{Children: []Node{
		&TextLeaf{MediaType: mediaTypePlain, Content: []byte("body")},
		&Multipart{Children: []Node{
			&AttachmentLeaf{Filename: "report.pdf", Content: []byte("first")},
		}},
		&AttachmentLeaf{Filename: "REPORT.pdf", Content: []byte("second")},
		&TextLeaf{MediaType: mediaTypePlain, Filename: "notes.txt", Content: []byte("notes")},
	}}

	t.Run("matches case-insensitively", func(t *testing.T) {
		f, ok := Find(root, "Report.PDF")
		require.True(t, ok)
		assert.Equal(t, "report.pdf", f.Filename)
	})

	t.Run("first match in depth-first order wins", func(t *testing.T) {
		f, ok := Find(root, "report.pdf")
		require.True(t, ok)
		assert.Equal(t, []byte("first"), f.Content)
	})

	t.Run("text parts with a filename can be found", func(t *testing.T) {
		f, ok := Find(root, "NOTES.TXT")
		require.True(t, ok)
		assert.Equal(t, []byte("notes"), f.Content)
	})

	t.Run("missing name", func(t *testing.T) {
		_, ok := Find(root, "missing.zip")
		assert.False(t, ok)
	})
}

func TestFromPart(t *testing.T) {
	t.Run("classifies leaves", func(t *testing.T) {
		text := &enmime.Part{PartID: "1", ContentType: "text/plain", Content: []byte("hello")}
		attachment := &enmime.Part{PartID: "2", ContentType: "image/png", FileName: "cat.png", Content: []byte{1, 2}}
		opaque := &enmime.Part{PartID: "3", ContentType: "application/octet-stream"}
		text.NextSibling = attachment
		attachment.NextSibling = opaque
		root := &enmime.Part{ContentType: "multipart/mixed", FirstChild: text}

		node := FromPart(root)
		m, ok := node.(*Multipart)
		require.True(t, ok)
		require.Len(t, m.Children, 3)
		assert.IsType(t, &TextLeaf{}, m.Children[0])
		assert.IsType(t, &AttachmentLeaf{}, m.Children[1])
		assert.IsType(t, &OpaqueLeaf{}, m.Children[2])
	})

	t.Run("text with filename stays a text leaf", func(t *testing.T) {
		node := FromPart(&enmime.Part{ContentType: "text/plain", FileName: "notes.txt", Content: []byte("n")})
		leaf, ok := node.(*TextLeaf)
		require.True(t, ok)
		assert.Equal(t, "notes.txt", leaf.Filename)
	})

	t.Run("missing content type defaults to text/plain", func(t *testing.T) {
		node := FromPart(&enmime.Part{Content: []byte("bare")})
		assert.IsType(t, &TextLeaf{}, node)
	})

	t.Run("severe errors mark the text leaf malformed", func(t *testing.T) {
		p := &enmime.Part{
			PartID:      "1",
			ContentType: "text/plain",
			Content:     []byte("x"),
			Errors: []*enmime.Error{
				{Name: "Charset Conversion", Detail: "minor", Severe: false},
				{Name: "Malformed Base64", Detail: "illegal byte", Severe: true},
			},
		}

		leaf := FromPart(p).(*TextLeaf)
		require.NotNil(t, leaf.Problem)
		assert.Equal(t, "1", leaf.Problem.PartID)
		assert.Contains(t, leaf.Problem.Detail, "illegal byte")
		assert.NotContains(t, leaf.Problem.Detail, "minor")
	})
}

func TestDecodeMessage(t *testing.T) {
	t.Run("decodes a nested multipart message", func(t *testing.T) {
		root, d := DecodeMessage(strings.NewReader(crlf(nestedMessage)))

		first := strings.Index(d.Body, "first")
		second := strings.Index(d.Body, "<p>second</p>")
		third := strings.Index(d.Body, "third")
		require.NotEqual(t, -1, first)
		require.NotEqual(t, -1, second)
		require.NotEqual(t, -1, third)
		assert.Less(t, first, second)
		assert.Less(t, second, third)
		assert.Equal(t, []string{"report.pdf"}, d.Attachments)

		f, ok := Find(root, "Report.PDF")
		require.True(t, ok)
		assert.Equal(t, "%PDF-1.4\n", string(f.Content))
	})

	t.Run("single part message", func(t *testing.T) {
		raw := crlf("From: a@example.com\nSubject: hi\nContent-Type: text/plain\n\nJust text.\n")
		_, d := DecodeMessage(strings.NewReader(raw))
		assert.Contains(t, d.Body, "Just text.")
		assert.Empty(t, d.Attachments)
	})
}
