package imap

import (
	"strings"
	"testing"

	"github.com/bscott/mailcloud/internal/extract"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseSinglePart(t *testing.T) {
	raw := crlf(`From: Recruiting <jobs@example.com>
Subject: Your application
Content-Type: text/plain; charset=utf-8

Thank you for your interest in the role.
`)

	msg, err := ParseMessage("Labels/rejections#7", raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if msg.Ref != "Labels/rejections#7" {
		t.Errorf("Ref = %q", msg.Ref)
	}
	if msg.Subject != "Your application" {
		t.Errorf("Subject = %q, want %q", msg.Subject, "Your application")
	}
	if !msg.Root.IsLeaf() || msg.Root.MimeType != "text/plain" {
		t.Fatalf("Root = %+v, want text/plain leaf", msg.Root)
	}

	res := extract.Text(msg)
	if res.Text != "Thank you for your interest in the role.\r\n" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestParseMultipartAlternative(t *testing.T) {
	raw := crlf(`Subject: =?utf-8?q?Update_on_your_application?=
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset="utf-8"
Content-Transfer-Encoding: quoted-printable

We have decided to move forward with other candidates=2E
--b1
Content-Type: text/html; charset="utf-8"

<p>We have decided</p>
--b1--
`)

	msg, err := ParseMessage("INBOX#1", raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if msg.Subject != "Update on your application" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.Root.MimeType != "multipart/alternative" || len(msg.Root.Parts) != 2 {
		t.Fatalf("Root = %+v, want multipart with 2 parts", msg.Root)
	}
	if msg.Root.Parts[1].MimeType != "text/html" {
		t.Errorf("second part = %q, want text/html", msg.Root.Parts[1].MimeType)
	}

	res := extract.Text(msg)
	if res.Text != "We have decided to move forward with other candidates." {
		t.Errorf("text = %q", res.Text)
	}
}

func TestParseLatin1IsConverted(t *testing.T) {
	raw := crlf(`Subject: Candidature
Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

Merci, malheureusement le poste est pourvu. Tr=E8s cordialement
`)

	msg, err := ParseMessage("INBOX#2", raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if msg.Root.Charset != "utf-8" {
		t.Errorf("Charset = %q, want utf-8", msg.Root.Charset)
	}
	res := extract.Text(msg)
	if len(res.Skipped) != 0 {
		t.Fatalf("Skipped = %v", res.Skipped)
	}
	if !strings.Contains(res.Text, "Très cordialement") {
		t.Errorf("text = %q, want converted accent", res.Text)
	}
}

func TestParseUnknownCharsetKeepsLabel(t *testing.T) {
	raw := crlf(`Subject: Odd
Content-Type: text/plain; charset=x-made-up

hello
`)

	msg, err := ParseMessage("INBOX#3", raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if msg.Root.Charset != "x-made-up" {
		t.Errorf("Charset = %q, want x-made-up", msg.Root.Charset)
	}
	res := extract.Text(msg)
	if len(res.Skipped) != 1 {
		t.Errorf("Skipped = %d, want 1", len(res.Skipped))
	}
}

func TestParseNoContentType(t *testing.T) {
	raw := crlf(`Subject: bare

plain body
`)

	msg, err := ParseMessage("INBOX#4", raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if msg.Root.MimeType != "text/plain" {
		t.Errorf("MimeType = %q, want text/plain", msg.Root.MimeType)
	}
}

func TestParseNestedMultipart(t *testing.T) {
	raw := crlf(`Subject: nested
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain

inner text
--inner--
--outer
Content-Type: text/plain

outer text
--outer--
`)

	msg, err := ParseMessage("INBOX#5", raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if len(msg.Root.Parts) != 2 || msg.Root.Parts[0].IsLeaf() {
		t.Fatalf("Root = %+v, want nested container first", msg.Root)
	}
	// Only the root's direct children are scanned.
	if res := extract.Text(msg); res.Text != "outer text" {
		t.Errorf("text = %q, want %q", res.Text, "outer text")
	}
}
