// Package extract turns a message's MIME part tree into plain text.
package extract

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/charset"

	"github.com/bscott/mailcloud/internal/mailbox"
)

const plainText = "text/plain"

// DecodeError describes a text/plain part whose body could not be turned
// into text. The part is skipped; the rest of the message is still used.
type DecodeError struct {
	Index    int
	MimeType string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("part %d (%s): %v", e.Index, e.MimeType, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Result is the text extracted from one message.
type Result struct {
	Text string
	// Leaves is the number of text/plain parts that contributed to Text.
	Leaves  int
	Skipped []*DecodeError
}

// Text concatenates the decoded bodies of the message's text/plain leaves in
// part order. Only the root's direct children are candidates, or the root
// itself when it has none; nested containers and other types are ignored.
func Text(msg *mailbox.Message) Result {
	var res Result
	if msg == nil || msg.Root == nil {
		return res
	}

	candidates := msg.Root.Parts
	if msg.Root.IsLeaf() {
		candidates = []*mailbox.Part{msg.Root}
	}

	var b strings.Builder
	for i, part := range candidates {
		if part == nil || !part.IsLeaf() || !isPlainText(part.MimeType) {
			continue
		}

		text, err := DecodePart(part)
		if err != nil {
			res.Skipped = append(res.Skipped, &DecodeError{Index: i, MimeType: part.MimeType, Err: err})
			continue
		}
		b.WriteString(text)
		res.Leaves++
	}

	res.Text = b.String()
	return res
}

func isPlainText(mimeType string) bool {
	return strings.EqualFold(strings.TrimSpace(mimeType), plainText)
}

// DecodePart decodes a leaf body from base64url and converts it to UTF-8
// using the part's declared charset.
func DecodePart(part *mailbox.Part) (string, error) {
	raw, err := decodeBase64URL(part.Data)
	if err != nil {
		return "", fmt.Errorf("invalid base64url body: %w", err)
	}

	if cs := strings.ToLower(strings.TrimSpace(part.Charset)); cs != "" && !isUTF8Label(cs) {
		r, err := charset.Reader(cs, bytes.NewReader(raw))
		if err != nil {
			return "", fmt.Errorf("unsupported charset %q: %w", part.Charset, err)
		}
		if raw, err = io.ReadAll(r); err != nil {
			return "", fmt.Errorf("failed to convert charset %q: %w", part.Charset, err)
		}
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("body is not valid UTF-8")
	}
	return string(raw), nil
}

func isUTF8Label(cs string) bool {
	switch cs {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return true
	}
	return false
}

// decodeBase64URL accepts padded and unpadded base64url.
func decodeBase64URL(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}
