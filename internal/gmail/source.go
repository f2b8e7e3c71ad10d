// Package gmail reads messages through the Gmail REST API.
package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/bscott/mailcloud/internal/logging"
	"github.com/bscott/mailcloud/internal/mailbox"
)

// Source implements mailbox.Source over one Gmail API session.
type Source struct {
	svc    *gmailapi.Service
	userID string
	logger *slog.Logger
	// transport is owned by the session and released on Close.
	transport *http.Transport
}

// Open builds an authenticated session from the saved token.
func Open(ctx context.Context, auth *Auth, userID string, logger *slog.Logger) (*Source, error) {
	logger = logging.OrDiscard(logger).With("provider", "gmail")

	ts, err := auth.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	httpClient := &http.Client{Transport: &loggingTransport{base: base, logger: logger}}
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, httpClient), ts)

	src, err := NewSource(ctx, userID, logger, option.WithHTTPClient(client))
	if err != nil {
		base.CloseIdleConnections()
		return nil, err
	}
	src.transport = base
	return src, nil
}

// NewSource wraps a Gmail service built from opts. Callers supply their own
// authentication through opts.
func NewSource(ctx context.Context, userID string, logger *slog.Logger, opts ...option.ClientOption) (*Source, error) {
	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	if userID == "" {
		userID = "me"
	}
	return &Source{svc: svc, userID: userID, logger: logging.OrDiscard(logger)}, nil
}

// Close releases the session's idle connections.
func (s *Source) Close() error {
	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}
	return nil
}

func (s *Source) ListPage(ctx context.Context, query, pageToken string) (*mailbox.Page, error) {
	if s.svc == nil {
		return nil, mailbox.ErrNotConnected
	}
	call := s.svc.Users.Messages.List(s.userID).Q(query).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list messages: %w", err)
	}

	page := &mailbox.Page{NextPageToken: resp.NextPageToken}
	for _, m := range resp.Messages {
		if m == nil || m.Id == "" {
			continue
		}
		page.Refs = append(page.Refs, mailbox.MessageRef(m.Id))
	}
	return page, nil
}

func (s *Source) Fetch(ctx context.Context, ref mailbox.MessageRef) (*mailbox.Message, error) {
	if s.svc == nil {
		return nil, mailbox.ErrNotConnected
	}
	gm, err := s.svc.Users.Messages.Get(s.userID, string(ref)).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail get message: %w", err)
	}
	return &mailbox.Message{
		Ref:     ref,
		Subject: header(gm.Payload, "Subject"),
		Root:    convertPart(gm.Payload),
	}, nil
}

const labelFetchLimit = 4

// Label is a Gmail label. Messages is only filled for user labels.
type Label struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Messages int64  `json:"messages,omitempty"`
}

// Labels lists the account's labels, user labels first, each group by name.
func (s *Source) Labels(ctx context.Context) ([]Label, error) {
	if s.svc == nil {
		return nil, mailbox.ErrNotConnected
	}
	resp, err := s.svc.Users.Labels.List(s.userID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list labels: %w", err)
	}

	labels := make([]Label, len(resp.Labels))
	for i, l := range resp.Labels {
		labels[i] = Label{ID: l.Id, Name: l.Name, Type: strings.ToLower(l.Type)}
	}

	// labels.list leaves the counts empty; only labels.get fills them.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(labelFetchLimit)
	for i := range labels {
		if labels[i].Type != "user" {
			continue
		}
		g.Go(func() error {
			l, err := s.svc.Users.Labels.Get(s.userID, labels[i].ID).Context(gctx).Do()
			if err != nil {
				return fmt.Errorf("gmail get label %s: %w", labels[i].Name, err)
			}
			labels[i].Messages = l.MessagesTotal
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Type != labels[j].Type {
			return labels[i].Type == "user"
		}
		return labels[i].Name < labels[j].Name
	})
	return labels, nil
}

// convertPart copies the API part tree. Gmail already delivers leaf bodies
// base64url encoded.
func convertPart(p *gmailapi.MessagePart) *mailbox.Part {
	if p == nil {
		return nil
	}
	part := &mailbox.Part{
		MimeType: p.MimeType,
		Charset:  charsetOf(header(p, "Content-Type")),
	}
	if p.Body != nil {
		part.Data = p.Body.Data
	}
	for _, child := range p.Parts {
		if c := convertPart(child); c != nil {
			part.Parts = append(part.Parts, c)
		}
	}
	return part
}

func header(p *gmailapi.MessagePart, name string) string {
	if p == nil {
		return ""
	}
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
