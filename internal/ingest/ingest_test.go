package ingest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/daylog/daylog/internal/mailsource"
	"github.com/daylog/daylog/internal/msgid"
	"github.com/daylog/daylog/pkg/logger"
	"github.com/spf13/afero"
)

func TestCleanBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "gmail quote",
			in: "Went climbing.\r\nSent the red route.\r\n\r\n" +
				"On Sun, Jul 4, 2021 at 6:00 PM Daylog <daylog@example.com> wrote:\r\n\r\n" +
				"> What'd you do today, Sunday, July 4, 2021?\r\n",
			want: "Went climbing.\nSent the red route.",
		},
		{
			name: "wrapped quote header",
			in: "Read a book.\n\nOn Sun, Jul 4, 2021 at 6:00 PM Daylog <\ndaylog@example.com> wrote:\n\n" +
				"> What'd you do today?\n",
			want: "Read a book.",
		},
		{
			name: "signature",
			in:   "Cooked dinner.\n-- \nAmy\nSent from my phone\n",
			want: "Cooked dinner.",
		},
		{
			name: "bare quote lines",
			in:   "> old\nnew thought\n> older\n",
			want: "new thought",
		},
		{
			name: "nothing left",
			in:   "\n> quoted only\n",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanBody(tt.in); got != tt.want {
				t.Errorf("CleanBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

type memStore struct {
	entries map[string]string
	err     error
}

func (m *memStore) AddEntry(_ context.Context, username string, date time.Time, body string) error {
	if m.err != nil {
		return m.err
	}
	if m.entries == nil {
		m.entries = map[string]string{}
	}
	key := username + "/" + date.Format("2006-01-02")
	if prev, ok := m.entries[key]; ok {
		body = prev + "\n" + body
	}
	m.entries[key] = body
	return nil
}

func testCodec(t *testing.T) *msgid.Codec {
	t.Helper()
	c, err := msgid.New(bytes.Repeat([]byte{3}, 32))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func reply(references, body string) []byte {
	return []byte("From: Amy <amy@example.org>\r\n" +
		"To: daylog@example.com\r\n" +
		"Subject: Re: Daylog for 2021-07-04\r\n" +
		"References: " + references + "\r\n" +
		"\r\n" + body)
}

func TestExtract(t *testing.T) {
	codec := testCodec(t)
	date := time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC)
	id := msgid.Header(codec.Generate("amy", date), "example.com")
	in := New(codec, &memStore{}, nil, false)

	entry, err := in.Extract(reply("<CAF00@mail.gmail.com> "+id, "Planted tomatoes.\r\n"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if entry.Username != "amy" || !entry.Date.Equal(date) || entry.Body != "Planted tomatoes." {
		t.Errorf("Extract = %+v", entry)
	}
}

func TestExtract_Multipart(t *testing.T) {
	codec := testCodec(t)
	id := msgid.Header(codec.Generate("amy", time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC)), "example.com")
	raw := []byte("From: amy@example.org\r\n" +
		"References: " + id + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=outer\r\n" +
		"\r\n" +
		"--outer\r\n" +
		"Content-Type: multipart/alternative; boundary=inner\r\n" +
		"\r\n" +
		"--inner\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"Caf=C3=A9 with Sam.\r\n" +
		"--inner\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>Caf&eacute; with Sam.</p>\r\n" +
		"--inner--\r\n" +
		"--outer\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Disposition: attachment; filename=notes.txt\r\n" +
		"\r\n" +
		"attached notes\r\n" +
		"--outer--\r\n")

	entry, err := New(codec, &memStore{}, nil, false).Extract(raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if entry.Body != "Café with Sam." {
		t.Errorf("Body = %q, want %q", entry.Body, "Café with Sam.")
	}
}

func TestExtract_Charset(t *testing.T) {
	codec := testCodec(t)
	id := msgid.Header(codec.Generate("amy", time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC)), "example.com")
	tests := []struct {
		name     string
		ctype    string
		encoding string
		body     string
		want     string
	}{
		{"latin-1 quoted-printable", "text/plain; charset=iso-8859-1", "quoted-printable", "Caf=E9 with Ren=E9e.\r\n", "Café with Renée."},
		{"windows-1252 base64", "text/plain; charset=windows-1252", "base64", "Q2Fm6SCTb2uULg0K\r\n", "Café \u201cok\u201d."},
		{"quoted charset label", `text/plain; charset="ISO-8859-1"`, "8bit", "Ren\xe9e.\r\n", "Renée."},
		{"unknown charset", "text/plain; charset=x-unknown", "8bit", "Caf\xe9.\r\n", "Caf\uFFFD."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte("From: amy@example.org\r\n" +
				"In-Reply-To: " + id + "\r\n" +
				"MIME-Version: 1.0\r\n" +
				"Content-Type: " + tt.ctype + "\r\n" +
				"Content-Transfer-Encoding: " + tt.encoding + "\r\n" +
				"\r\n" + tt.body)
			entry, err := New(codec, &memStore{}, nil, false).Extract(raw)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if entry.Body != tt.want {
				t.Errorf("Body = %q, want %q", entry.Body, tt.want)
			}
		})
	}
}

func TestExtract_Foreign(t *testing.T) {
	in := New(testCodec(t), &memStore{}, nil, false)
	_, err := in.Extract(reply("<abc@example.net>", "hi\r\n"))
	if !errors.Is(err, msgid.ErrForeign) {
		t.Errorf("Extract = %v, want ErrForeign", err)
	}
}

func TestExtract_WrongKey(t *testing.T) {
	other, err := msgid.New(bytes.Repeat([]byte{4}, 32))
	if err != nil {
		t.Fatal(err)
	}
	id := msgid.Header(other.Generate("amy", time.Now()), "example.com")
	in := New(testCodec(t), &memStore{}, nil, false)
	if _, err := in.Extract(reply(id, "forged\r\n")); !errors.Is(err, msgid.ErrInvalid) {
		t.Errorf("Extract = %v, want ErrInvalid", err)
	}
}

func TestRun_Maildir(t *testing.T) {
	codec := testCodec(t)
	date := time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC)
	id := msgid.Header(codec.Generate("amy", date), "example.com")

	fs := afero.NewMemMapFs()
	md := mailsource.NewMaildir(fs, "/mail")
	for _, raw := range [][]byte{
		reply(id, "Went swimming.\r\n"),
		reply(id, "Also ate ice cream.\r\n"),
		reply("<unrelated@example.net>", "newsletter\r\n"),
		reply("<daylog.1.AAAA.BBBB@example.com>", "forged\r\n"),
		reply(id, "> only quoted\r\n"),
	} {
		if _, err := md.Deliver(raw); err != nil {
			t.Fatal(err)
		}
	}

	store := &memStore{}
	log := logger.NewMockLogger()
	stats, err := New(codec, store, log, false).Run(context.Background(), md)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := Stats{Seen: 5, Stored: 2, Empty: 1, Foreign: 1, Rejected: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	body := store.entries["amy/2021-07-04"]
	if !strings.Contains(body, "Went swimming.") || !strings.Contains(body, "Also ate ice cream.") {
		t.Errorf("stored entry = %q", body)
	}
	if left, _ := afero.ReadDir(fs, "/mail/new"); len(left) != 0 {
		t.Errorf("new/ still holds %d messages", len(left))
	}
	if len(log.Warnings()) != 1 {
		t.Errorf("warnings = %v, want one rejection", log.Warnings())
	}
}

func TestRun_DryRunAndFailuresLeaveMail(t *testing.T) {
	codec := testCodec(t)
	id := msgid.Header(codec.Generate("amy", time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC)), "example.com")

	for name, tc := range map[string]struct {
		dryRun bool
		store  *memStore
	}{
		"dry run":       {true, &memStore{}},
		"store failure": {false, &memStore{err: errors.New("disk full")}},
	} {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			md := mailsource.NewMaildir(fs, "/mail")
			if _, err := md.Deliver(reply(id, "Went swimming.\r\n")); err != nil {
				t.Fatal(err)
			}
			if _, err := New(codec, tc.store, nil, tc.dryRun).Run(context.Background(), md); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if left, _ := afero.ReadDir(fs, "/mail/new"); len(left) != 1 {
				t.Errorf("new/ holds %d messages, want 1", len(left))
			}
			if len(tc.store.entries) != 0 {
				t.Errorf("entries = %v, want none", tc.store.entries)
			}
		})
	}
}
