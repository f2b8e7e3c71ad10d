package imap

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/bscott/mailcloud/internal/mailbox"
)

// ParseMessage builds the part tree of an RFC 822 message. Transfer
// encodings are undone and text is converted to UTF-8 where the charset is
// known; leaf bodies are then stored base64url encoded like the Gmail API
// delivers them.
func ParseMessage(ref mailbox.MessageRef, raw []byte) (*mailbox.Message, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message %s: %w", ref, err)
	}

	root, err := convertEntity(entity, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %s: %w", ref, err)
	}

	h := mail.Header{Header: entity.Header}
	subject, _ := h.Subject()
	return &mailbox.Message{Ref: ref, Subject: subject, Root: root}, nil
}

// convertEntity walks e. converted reports whether go-message managed to
// convert e's body to UTF-8.
func convertEntity(e *message.Entity, converted bool) (*mailbox.Part, error) {
	mediaType, params := contentType(e.Header)
	part := &mailbox.Part{MimeType: mediaType}

	if mr := e.MultipartReader(); mr != nil {
		for {
			child, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) {
				return nil, err
			}
			p, err := convertEntity(child, err == nil)
			if err != nil {
				return nil, err
			}
			part.Parts = append(part.Parts, p)
		}
		return part, nil
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s body: %w", mediaType, err)
	}
	part.Data = base64.URLEncoding.EncodeToString(body)
	if cs := params["charset"]; cs != "" {
		part.Charset = cs
		if converted && strings.HasPrefix(mediaType, "text/") {
			part.Charset = "utf-8"
		}
	}
	return part, nil
}

// contentType defaults to text/plain as RFC 2045 does for parts without a
// usable Content-Type.
func contentType(h message.Header) (string, map[string]string) {
	if h.Get("Content-Type") == "" {
		return "text/plain", nil
	}
	t, params, err := h.ContentType()
	if err != nil {
		return "text/plain", nil
	}
	return strings.ToLower(t), params
}
