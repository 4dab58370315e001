package mailsource

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/afero"
)

const (
	defaultLockRetries = 20
	defaultLockDelay   = time.Second
)

// Mbox reads an mboxrd file under a dot lock and an flock. Messages that
// were removed are dropped from the file on Close; everything else is
// written back.
type Mbox struct {
	fs   afero.Fs
	path string

	lockRetries int
	lockDelay   time.Duration

	file      afero.File
	dotLocked bool
	parsed    []mboxMessage
	removed   map[int]bool
}

type mboxMessage struct {
	postmark []byte
	body     []byte
}

var _ Source = (*Mbox)(nil)

// NewMbox returns the mbox at path on fs.
func NewMbox(fs afero.Fs, path string) *Mbox {
	return &Mbox{
		fs:          fs,
		path:        path,
		lockRetries: defaultLockRetries,
		lockDelay:   defaultLockDelay,
		removed:     make(map[int]bool),
	}
}

func (m *Mbox) lockPath() string { return m.path + ".lock" }

// lock takes the dot lock, retrying while another process holds it, then
// opens the mbox and flocks it when the filesystem supports that.
func (m *Mbox) lock() error {
	for attempt := 0; ; attempt++ {
		f, err := m.fs.OpenFile(m.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			m.dotLocked = true
			break
		}
		if !os.IsExist(err) && !errors.Is(err, afero.ErrFileExists) {
			return fmt.Errorf("create %s: %w", m.lockPath(), err)
		}
		if attempt+1 >= m.lockRetries {
			return fmt.Errorf("%w: %s", ErrLocked, m.lockPath())
		}
		time.Sleep(m.lockDelay)
	}

	f, err := m.fs.OpenFile(m.path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	m.file = f
	if fd, ok := f.(interface{ Fd() uintptr }); ok {
		if err := flock(fd.Fd()); err != nil {
			return fmt.Errorf("flock %s: %w", m.path, err)
		}
	}
	return nil
}

// Messages locks the mbox and returns every message in it.
func (m *Mbox) Messages() ([]Message, error) {
	if m.file == nil {
		if err := m.lock(); err != nil {
			return nil, err
		}
	}
	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return nil, fmt.Errorf("read mbox: %w", err)
	}
	m.parsed = parseMbox(data)
	out := make([]Message, len(m.parsed))
	for i, pm := range m.parsed {
		out[i] = Message{Key: strconv.Itoa(i), Raw: pm.body}
	}
	return out, nil
}

// Finish records the action; only Remove changes the file.
func (m *Mbox) Finish(msg Message, a Action) error {
	i, err := strconv.Atoi(msg.Key)
	if err != nil || i < 0 || i >= len(m.parsed) {
		return fmt.Errorf("unknown mbox message %q", msg.Key)
	}
	if a == Remove {
		m.removed[i] = true
	}
	return nil
}

// Close rewrites the mbox without the removed messages and releases both
// locks.
func (m *Mbox) Close() error {
	var err error
	if m.file != nil && len(m.removed) > 0 {
		err = m.rewrite()
	}
	if m.file != nil {
		if cerr := m.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		m.file = nil
	}
	if m.dotLocked {
		if rerr := m.fs.Remove(m.lockPath()); rerr != nil && err == nil {
			err = rerr
		}
		m.dotLocked = false
	}
	return err
}

func (m *Mbox) rewrite() error {
	var buf bytes.Buffer
	for i, pm := range m.parsed {
		if m.removed[i] {
			continue
		}
		writeMboxMessage(&buf, pm)
	}
	if err := m.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate mbox: %w", err)
	}
	if _, err := m.file.WriteAt(buf.Bytes(), 0); err != nil {
		return fmt.Errorf("write mbox: %w", err)
	}
	return m.file.Sync()
}

var fromLine = []byte("From ")

// parseMbox splits mboxrd data into messages, undoing >From quoting.
func parseMbox(data []byte) []mboxMessage {
	var (
		out []mboxMessage
		cur *mboxMessage
	)
	lines := bytes.SplitAfter(data, []byte("\n"))
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		if bytes.HasPrefix(line, fromLine) {
			if cur != nil {
				out = append(out, finishMbox(*cur))
			}
			cur = &mboxMessage{postmark: bytes.TrimRight(line, "\r\n")}
			continue
		}
		if cur == nil {
			continue
		}
		if quoted := bytes.TrimLeft(line, ">"); len(quoted) < len(line) && bytes.HasPrefix(quoted, fromLine) {
			line = line[1:]
		}
		cur.body = append(cur.body, line...)
	}
	if cur != nil {
		out = append(out, finishMbox(*cur))
	}
	return out
}

// finishMbox drops the blank separator line that precedes the next postmark.
func finishMbox(pm mboxMessage) mboxMessage {
	switch {
	case bytes.HasSuffix(pm.body, []byte("\r\n\r\n")):
		pm.body = pm.body[:len(pm.body)-2]
	case bytes.HasSuffix(pm.body, []byte("\n\n")):
		pm.body = pm.body[:len(pm.body)-1]
	}
	return pm
}

func writeMboxMessage(buf *bytes.Buffer, pm mboxMessage) {
	buf.Write(pm.postmark)
	buf.WriteByte('\n')
	for _, line := range bytes.SplitAfter(pm.body, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		if bytes.HasPrefix(bytes.TrimLeft(line, ">"), fromLine) {
			buf.WriteByte('>')
		}
		buf.Write(line)
	}
	if !bytes.HasSuffix(pm.body, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
}
