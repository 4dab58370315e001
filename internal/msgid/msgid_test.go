package msgid

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := New(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.now = func() time.Time { return time.Unix(1600000000, 123456789) }
	return c
}

func TestNew_RejectsShortKey(t *testing.T) {
	if _, err := New([]byte("short")); err == nil {
		t.Error("New with a 5-byte key should fail")
	}
}

func TestGenerateVerify(t *testing.T) {
	c := testCodec(t)
	date := time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC)

	tests := []string{"alice", "first.last", "a.b.c"}
	for _, username := range tests {
		id := c.Generate(username, date)
		if !strings.HasPrefix(id, Prefix+".") {
			t.Errorf("Generate(%q) = %q, missing prefix", username, id)
		}
		if strings.Contains(id, username) {
			t.Errorf("Generate(%q) = %q leaks the username", username, id)
		}
		for _, form := range []string{id, Header(id, "mail.example.com")} {
			gotUser, gotDate, err := c.Verify(form)
			if err != nil {
				t.Fatalf("Verify(%q): %v", form, err)
			}
			if gotUser != username || !gotDate.Equal(date) {
				t.Errorf("Verify(%q) = %q %v, want %q %v", form, gotUser, gotDate, username, date)
			}
		}
	}
}

func TestVerify_Foreign(t *testing.T) {
	c := testCodec(t)
	for _, id := range []string{"<CAFE1234@mail.gmail.com>", "daylog.2.abc.def", ""} {
		if _, _, err := c.Verify(id); !errors.Is(err, ErrForeign) {
			t.Errorf("Verify(%q) = %v, want ErrForeign", id, err)
		}
		if IsOurs(id) {
			t.Errorf("IsOurs(%q) = true", id)
		}
	}
}

func TestVerify_Tampered(t *testing.T) {
	c := testCodec(t)
	id := c.Generate("alice", time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC))
	parts := strings.Split(id, ".")

	flip := []byte(parts[3])
	if flip[0] == 'A' {
		flip[0] = 'B'
	} else {
		flip[0] = 'A'
	}
	tests := map[string]string{
		"ciphertext": strings.Join([]string{parts[0], parts[1], parts[2], string(flip)}, "."),
		"extra part": id + ".x",
		"bad base64": strings.Join([]string{parts[0], parts[1], "!!", parts[3]}, "."),
	}
	for name, bad := range tests {
		t.Run(name, func(t *testing.T) {
			if !IsOurs(bad) {
				t.Fatalf("IsOurs(%q) = false", bad)
			}
			if _, _, err := c.Verify(bad); !errors.Is(err, ErrInvalid) {
				t.Errorf("Verify(%q) = %v, want ErrInvalid", bad, err)
			}
		})
	}

	other, err := New(bytes.Repeat([]byte{8}, 32))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := other.Verify(id); !errors.Is(err, ErrInvalid) {
		t.Errorf("Verify with another key = %v, want ErrInvalid", err)
	}
}
