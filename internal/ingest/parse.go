package ingest

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// ErrNoText is returned for messages without a text/plain part.
var ErrNoText = errors.New("no text/plain part")

// references returns every message id in the References and In-Reply-To
// headers, in order.
func references(h mail.Header) []string {
	var ids []string
	for _, key := range []string{"References", "In-Reply-To"} {
		for _, field := range strings.Fields(h.Get(key)) {
			for _, part := range strings.Split(field, ",") {
				if part = strings.TrimSpace(part); part != "" {
					ids = append(ids, part)
				}
			}
		}
	}
	return ids
}

// plainText returns the concatenated inline text/plain parts of msg.
func plainText(msg *mail.Message) (string, error) {
	var b strings.Builder
	found, err := collectText(&b, msg.Header, msg.Body)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNoText
	}
	return b.String(), nil
}

type header interface {
	Get(key string) string
}

func collectText(b *strings.Builder, h header, body io.Reader) (bool, error) {
	ctype := h.Get("Content-Type")
	if ctype == "" {
		ctype = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(ctype)
	if err != nil {
		return false, fmt.Errorf("content type %q: %w", ctype, err)
	}
	if disp, _, err := mime.ParseMediaType(h.Get("Content-Disposition")); err == nil && disp == "attachment" {
		return false, nil
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		mr := multipart.NewReader(body, params["boundary"])
		found := false
		for {
			part, err := mr.NextRawPart()
			if err == io.EOF {
				return found, nil
			}
			if err != nil {
				return found, fmt.Errorf("multipart: %w", err)
			}
			ok, err := collectText(b, part.Header, part)
			if err != nil {
				return found, err
			}
			found = found || ok
			if mediaType == "multipart/alternative" && ok {
				return true, nil
			}
		}
	case mediaType == "text/plain":
		text, err := decode(h.Get("Content-Transfer-Encoding"), params["charset"], body)
		if err != nil {
			return false, err
		}
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		b.Write(text)
		return true, nil
	}
	return false, nil
}

// decode undoes the transfer encoding of body and converts it from charset
// to UTF-8. Unknown charsets are read as UTF-8 with invalid bytes replaced.
func decode(encoding, charset string, body io.Reader) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		body = quotedprintable.NewReader(body)
	case "base64":
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		raw, err = base64.StdEncoding.DecodeString(string(bytes.Join(bytes.Fields(raw), nil)))
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	switch cs := strings.ToLower(strings.TrimSpace(charset)); cs {
	case "", "utf-8", "utf8", "us-ascii":
	default:
		if enc, err := htmlindex.Get(cs); err == nil {
			body = enc.NewDecoder().Reader(body)
		}
	}
	text, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return bytes.ToValidUTF8(text, []byte("\uFFFD")), nil
}
