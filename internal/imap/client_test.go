package imap

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/emersion/go-imap/v2"

	"github.com/bscott/mailcloud/internal/mailbox"
)

func TestNewClient(t *testing.T) {
	client := NewClient(Options{Host: "127.0.0.1", Port: 1143, Email: "test@example.com"}, nil)

	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if client.client != nil {
		t.Error("internal client should be nil before Connect()")
	}
	if client.opts.Port != 1143 {
		t.Errorf("Port = %d, want 1143", client.opts.Port)
	}
}

func TestClientCloseWithoutConnect(t *testing.T) {
	client := NewClient(Options{}, nil)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestClientMethodsRequireConnection(t *testing.T) {
	client := NewClient(Options{Email: "test@example.com"}, nil)
	ctx := context.Background()

	t.Run("ListMailboxes without connection", func(t *testing.T) {
		if _, err := client.ListMailboxes(); !errors.Is(err, mailbox.ErrNotConnected) {
			t.Errorf("error = %v, want ErrNotConnected", err)
		}
	})

	t.Run("Labels without connection", func(t *testing.T) {
		if _, err := client.Labels(); !errors.Is(err, mailbox.ErrNotConnected) {
			t.Errorf("error = %v, want ErrNotConnected", err)
		}
	})

	t.Run("ListPage without connection", func(t *testing.T) {
		if _, err := client.ListPage(ctx, "{label:a}", ""); !errors.Is(err, mailbox.ErrNotConnected) {
			t.Errorf("error = %v, want ErrNotConnected", err)
		}
	})

	t.Run("Fetch without connection", func(t *testing.T) {
		if _, err := client.Fetch(ctx, "INBOX#1"); !errors.Is(err, mailbox.ErrNotConnected) {
			t.Errorf("error = %v, want ErrNotConnected", err)
		}
	})
}

func TestListPageRejectsBadToken(t *testing.T) {
	client := NewClient(Options{}, nil)

	for _, tok := range []string{"x", "-1", "2"} {
		if _, err := client.ListPage(context.Background(), "{label:a label:b}", tok); err == nil {
			t.Errorf("ListPage(token %q) error = nil, want error", tok)
		}
	}
}

func TestListPageCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(Options{}, nil)
	if _, err := client.ListPage(ctx, "", ""); !errors.Is(err, context.Canceled) {
		t.Errorf("ListPage() error = %v, want context.Canceled", err)
	}
	if _, err := client.Fetch(ctx, "INBOX#1"); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
}

func TestFolders(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"no labels", "", []string{"INBOX"}},
		{"terms only", "offer", []string{"INBOX"}},
		{"two labels", "{label:jobs-2018-rejections label:jobs-2019-rejections}", []string{"Labels/jobs-2018-rejections", "Labels/jobs-2019-rejections"}},
		{"quoted label", `label:"Job Hunt"`, []string{"Labels/Job Hunt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := folders(mailbox.ParseQuery(tt.query))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("folders(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestLabelsFrom(t *testing.T) {
	mailboxes := []MailboxInfo{
		{Name: "INBOX"},
		{Name: "Labels/zeta"},
		{Name: "Labels/"},
		{Name: "Folders/Work"},
		{Name: "Labels/alpha"},
	}

	want := []LabelInfo{
		{Name: "alpha", FullPath: "Labels/alpha"},
		{Name: "zeta", FullPath: "Labels/zeta"},
	}
	if got := labelsFrom(mailboxes); !reflect.DeepEqual(got, want) {
		t.Errorf("labelsFrom() = %v, want %v", got, want)
	}
}

func TestRefRoundTrip(t *testing.T) {
	tests := []struct {
		folder string
		uid    imap.UID
	}{
		{"INBOX", 1},
		{"Labels/jobs-2018-rejections", 4242},
		{"Labels/C# jobs", 9},
	}

	for _, tt := range tests {
		ref := makeRef(tt.folder, tt.uid)
		folder, uid, err := splitRef(ref)
		if err != nil {
			t.Errorf("splitRef(%q) error = %v", ref, err)
			continue
		}
		if folder != tt.folder || uid != tt.uid {
			t.Errorf("splitRef(%q) = %q, %d, want %q, %d", ref, folder, uid, tt.folder, tt.uid)
		}
	}
}

func TestSplitRefInvalid(t *testing.T) {
	for _, ref := range []mailbox.MessageRef{"", "INBOX", "#5", "INBOX#", "INBOX#abc", "INBOX#0"} {
		if _, _, err := splitRef(ref); err == nil {
			t.Errorf("splitRef(%q) error = nil, want error", ref)
		}
	}
}

func TestDedupeByMessageID(t *testing.T) {
	seen := make(map[string]struct{})

	first := dedupeByMessageID(seen, "Labels/jobs-2018-rejections", []listedMessage{
		{UID: 7, MessageID: "b@example.com"},
		{UID: 3, MessageID: "a@example.com"},
		{UID: 5},
	})
	wantFirst := []mailbox.MessageRef{
		"Labels/jobs-2018-rejections#3",
		"Labels/jobs-2018-rejections#5",
		"Labels/jobs-2018-rejections#7",
	}
	if !reflect.DeepEqual(first, wantFirst) {
		t.Errorf("first folder = %v, want %v", first, wantFirst)
	}

	// The same message filed under the second label has its own UID there.
	second := dedupeByMessageID(seen, "Labels/jobs-2019-rejections", []listedMessage{
		{UID: 9, MessageID: "a@example.com"},
		{UID: 2, MessageID: "c@example.com"},
		{UID: 4},
	})
	wantSecond := []mailbox.MessageRef{
		"Labels/jobs-2019-rejections#2",
		"Labels/jobs-2019-rejections#4",
	}
	if !reflect.DeepEqual(second, wantSecond) {
		t.Errorf("second folder = %v, want %v", second, wantSecond)
	}

	if len(seen) != 3 {
		t.Errorf("len(seen) = %d, want 3", len(seen))
	}
}
