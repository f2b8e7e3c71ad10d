package mailbox

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by sources used before their session is open.
var ErrNotConnected = errors.New("not connected")

// MessageRef identifies one message at the provider. Its format is owned by
// the source that produced it.
type MessageRef string

// Part is one node of a message's MIME structure. A part either has child
// Parts (a multipart container) or carries Data (a leaf).
type Part struct {
	MimeType string `json:"mime_type"`
	// Charset is the charset parameter of the part's Content-Type, if any.
	Charset string `json:"charset,omitempty"`
	// Data is the leaf body, base64url encoded.
	Data  string  `json:"data,omitempty"`
	Parts []*Part `json:"parts,omitempty"`
}

// IsLeaf reports whether the part carries content rather than children.
func (p *Part) IsLeaf() bool {
	return len(p.Parts) == 0
}

type Message struct {
	Ref     MessageRef `json:"ref"`
	Subject string     `json:"subject,omitempty"`
	Root    *Part      `json:"root"`
}

// Page is one response of a paginated listing.
type Page struct {
	Refs []MessageRef
	// NextPageToken is empty on the last page.
	NextPageToken string
}

type Lister interface {
	ListPage(ctx context.Context, query, pageToken string) (*Page, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, ref MessageRef) (*Message, error)
}

// Source is an authenticated session with a mail provider.
type Source interface {
	Lister
	Fetcher
}
