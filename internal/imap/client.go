// Package imap reads labeled messages from an IMAP server such as Proton
// Bridge, where each label is a folder under Labels/.
package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/bscott/mailcloud/internal/logging"
	"github.com/bscott/mailcloud/internal/mailbox"
)

// Client implements mailbox.Source. Commands are serialized because an IMAP
// connection has a single selected folder.
type Client struct {
	mu       sync.Mutex
	client   *imapclient.Client
	opts     Options
	logger   *slog.Logger
	selected string

	// listed holds the Message-IDs returned so far by the listing in
	// progress. It is reset by a call without a page token.
	listed map[string]struct{}
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	return &Client{
		opts:   opts,
		logger: logging.OrDiscard(logger).With("provider", "imap"),
	}
}

func (c *Client) Connect() error {
	addr := fmt.Sprintf("%s:%d", c.opts.Host, c.opts.Port)

	options := &imapclient.Options{
		TLSConfig: &tls.Config{
			InsecureSkipVerify: c.opts.InsecureSkipVerify,
			ServerName:         c.opts.Host,
		},
	}

	client, err := imapclient.DialStartTLS(addr, options)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := client.Login(c.opts.Email, c.opts.Password).Wait(); err != nil {
		client.Close()
		return fmt.Errorf("IMAP login failed: %w", err)
	}

	c.mu.Lock()
	c.client = client
	c.selected = ""
	c.mu.Unlock()

	c.logger.Debug("connected", "addr", addr)
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	// Logout errors do not matter once we are closing.
	_ = c.client.Logout().Wait()
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *Client) ListMailboxes() ([]MailboxInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil, mailbox.ErrNotConnected
	}

	mailboxes, err := c.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}

	var result []MailboxInfo
	for _, mb := range mailboxes {
		info := MailboxInfo{
			Name:       mb.Mailbox,
			Delimiter:  string(mb.Delim),
			Attributes: make([]string, 0, len(mb.Attrs)),
		}
		for _, attr := range mb.Attrs {
			info.Attributes = append(info.Attributes, string(attr))
		}
		result = append(result, info)
	}
	return result, nil
}

// Labels returns the label folders, sorted by name.
func (c *Client) Labels() ([]LabelInfo, error) {
	mailboxes, err := c.ListMailboxes()
	if err != nil {
		return nil, err
	}
	return labelsFrom(mailboxes), nil
}

func labelsFrom(mailboxes []MailboxInfo) []LabelInfo {
	var labels []LabelInfo
	for _, mb := range mailboxes {
		name, ok := strings.CutPrefix(mb.Name, LabelPrefix)
		if !ok || name == "" {
			continue
		}
		labels = append(labels, LabelInfo{Name: name, FullPath: mb.Name})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
	return labels
}

// folders maps a query to the folders it searches: one per label filter,
// or the inbox when the query names none.
func folders(q mailbox.ParsedQuery) []string {
	if len(q.Labels) == 0 {
		return []string{defaultFolder}
	}
	out := make([]string, len(q.Labels))
	for i, l := range q.Labels {
		out[i] = LabelPrefix + l
	}
	return out
}

// ListPage searches one folder per page. The page token is the index of the
// next folder. When the query spans several folders, a message carrying two
// queried labels is listed only under the first folder that holds it,
// matched by its Message-ID.
func (c *Client) ListPage(ctx context.Context, query, pageToken string) (*mailbox.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed := mailbox.ParseQuery(query)
	targets := folders(parsed)

	idx := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 || n >= len(targets) {
			return nil, fmt.Errorf("invalid page token %q", pageToken)
		}
		idx = n
	}
	folder := targets[idx]

	page := &mailbox.Page{}
	if idx+1 < len(targets) {
		page.NextPageToken = strconv.Itoa(idx + 1)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil, mailbox.ErrNotConnected
	}
	if pageToken == "" || c.listed == nil {
		c.listed = make(map[string]struct{})
	}

	if err := c.selectLocked(folder); err != nil {
		var imapErr *imap.Error
		if errors.As(err, &imapErr) && imapErr.Type == imap.StatusResponseTypeNo {
			// A label that does not exist matches nothing.
			c.logger.Warn("label folder not found", "folder", folder)
			return page, nil
		}
		return nil, err
	}

	criteria := &imap.SearchCriteria{}
	if len(parsed.Terms) > 0 {
		criteria.Body = parsed.Terms
	}
	data, err := c.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search in %s failed: %w", folder, err)
	}

	uids := data.AllUIDs()
	if len(targets) == 1 || len(uids) == 0 {
		for _, uid := range uids {
			page.Refs = append(page.Refs, makeRef(folder, uid))
		}
		return page, nil
	}

	msgs, err := c.messageIDsLocked(uids)
	if err != nil {
		return nil, fmt.Errorf("fetching envelopes in %s failed: %w", folder, err)
	}
	page.Refs = dedupeByMessageID(c.listed, folder, msgs)
	return page, nil
}

// listedMessage is a search hit and the Message-ID from its envelope.
type listedMessage struct {
	UID       imap.UID
	MessageID string
}

// messageIDsLocked fetches the envelopes of uids in the selected folder.
// c.mu must be held.
func (c *Client) messageIDsLocked(uids []imap.UID) ([]listedMessage, error) {
	bufs, err := c.client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:      true,
		Envelope: true,
	}).Collect()
	if err != nil {
		return nil, err
	}

	msgs := make([]listedMessage, 0, len(bufs))
	for _, buf := range bufs {
		m := listedMessage{UID: buf.UID}
		if buf.Envelope != nil {
			m.MessageID = buf.Envelope.MessageID
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// dedupeByMessageID returns refs in UID order for the messages of folder
// whose Message-ID is not in seen, and records the new IDs. Messages without
// a Message-ID cannot be matched across folders and are always kept.
func dedupeByMessageID(seen map[string]struct{}, folder string, msgs []listedMessage) []mailbox.MessageRef {
	sorted := append([]listedMessage(nil), msgs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UID < sorted[j].UID })

	var refs []mailbox.MessageRef
	for _, m := range sorted {
		id := strings.TrimSpace(m.MessageID)
		if id != "" {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		refs = append(refs, makeRef(folder, m.UID))
	}
	return refs
}

func (c *Client) Fetch(ctx context.Context, ref mailbox.MessageRef) (*mailbox.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	folder, uid, err := splitRef(ref)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil, mailbox.ErrNotConnected
	}
	if err := c.selectLocked(folder); err != nil {
		return nil, err
	}

	section := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := c.client.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message not found: %s", ref)
	}
	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	raw := buf.FindBodySection(section)
	if raw == nil {
		return nil, fmt.Errorf("message %s has no body", ref)
	}
	return ParseMessage(ref, raw)
}

// selectLocked selects folder unless it already is. c.mu must be held.
func (c *Client) selectLocked(folder string) error {
	if c.selected == folder {
		return nil
	}
	if _, err := c.client.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		c.selected = ""
		return fmt.Errorf("failed to select mailbox %s: %w", folder, err)
	}
	c.selected = folder
	return nil
}

func makeRef(folder string, uid imap.UID) mailbox.MessageRef {
	return mailbox.MessageRef(folder + "#" + strconv.FormatUint(uint64(uid), 10))
}

// splitRef is the inverse of makeRef. Folder names may contain '#', so the
// last one separates the UID.
func splitRef(ref mailbox.MessageRef) (string, imap.UID, error) {
	s := string(ref)
	i := strings.LastIndexByte(s, '#')
	if i <= 0 {
		return "", 0, fmt.Errorf("invalid message ID: %s", ref)
	}
	n, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil || n == 0 {
		return "", 0, fmt.Errorf("invalid message ID: %s", ref)
	}
	return s[:i], imap.UID(n), nil
}
