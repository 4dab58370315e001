// Package msgid creates and verifies the Message-IDs daylog puts on digests.
//
// An id has the form daylog.1.<nonce>.<sealed>, where sealed is the
// ChaCha20-Poly1305 encryption of "username.YYYY-MM-DD" with the prefix as
// additional data. Replies reference the id, which lets ingest attribute a
// reply to a user and day without trusting the From header.
package msgid

import (
	"bytes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// Prefix starts every id this package generates.
const Prefix = "daylog.1"

const dateLayout = "2006-01-02"

var (
	// ErrForeign is returned for ids that were not generated by daylog.
	ErrForeign = errors.New("not a daylog message id")
	// ErrInvalid is returned for ids that look like ours but fail to verify.
	ErrInvalid = errors.New("invalid daylog message id")
)

var encoding = base64.RawURLEncoding

// Codec seals and opens message ids with one secret key.
type Codec struct {
	aead cipher.AEAD
	now  func() time.Time
}

// New returns a Codec for a 32-byte key.
func New(key []byte) (*Codec, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("message id key: %w", err)
	}
	return &Codec{aead: aead, now: time.Now}, nil
}

// Generate returns the id local part for username's digest of date.
func (c *Codec) Generate(username string, date time.Time) string {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.LittleEndian.PutUint64(nonce, uint64(c.now().UnixNano()))
	plaintext := username + "." + date.Format(dateLayout)
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), []byte(Prefix))
	return Prefix + "." + encoding.EncodeToString(bytes.TrimRight(nonce, "\x00")) + "." + encoding.EncodeToString(sealed)
}

// Header formats a full Message-ID header value for id on host.
func Header(id, host string) string {
	return "<" + id + "@" + host + ">"
}

// IsOurs reports whether a Message-ID or its local part carries our prefix.
func IsOurs(id string) bool {
	return strings.HasPrefix(localPart(id), Prefix+".")
}

// Verify opens id, which may be a bare local part or a full "<id@host>",
// and returns the username and date it was generated for.
func (c *Codec) Verify(id string) (string, time.Time, error) {
	local := localPart(id)
	if !strings.HasPrefix(local, Prefix+".") {
		return "", time.Time{}, ErrForeign
	}
	parts := strings.Split(local, ".")
	if len(parts) != 4 {
		return "", time.Time{}, fmt.Errorf("%w: expected 4 parts, got %d", ErrInvalid, len(parts))
	}
	nonce, err := encoding.DecodeString(strings.TrimRight(parts[2], "="))
	if err != nil || len(nonce) > chacha20poly1305.NonceSize {
		return "", time.Time{}, fmt.Errorf("%w: bad nonce", ErrInvalid)
	}
	nonce = append(nonce, make([]byte, chacha20poly1305.NonceSize-len(nonce))...)
	sealed, err := encoding.DecodeString(strings.TrimRight(parts[3], "="))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: bad ciphertext encoding", ErrInvalid)
	}
	plaintext, err := c.aead.Open(nil, nonce, sealed, []byte(Prefix))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	i := bytes.LastIndexByte(plaintext, '.')
	if i < 0 {
		return "", time.Time{}, fmt.Errorf("%w: no date in payload", ErrInvalid)
	}
	date, err := time.Parse(dateLayout, string(plaintext[i+1:]))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return string(plaintext[:i]), date, nil
}

func localPart(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	if i := strings.IndexByte(id, '@'); i >= 0 {
		id = id[:i]
	}
	return id
}
