package mailsource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Maildir reads messages from <root>/new and moves them to <root>/cur.
type Maildir struct {
	fs   afero.Fs
	root string
}

var _ Source = (*Maildir)(nil)

// NewMaildir returns the maildir at root on fs.
func NewMaildir(fs afero.Fs, root string) *Maildir {
	return &Maildir{fs: fs, root: root}
}

// Messages returns every message in new/, oldest name first.
func (m *Maildir) Messages() ([]Message, error) {
	dir := filepath.Join(m.root, "new")
	infos, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read maildir %s: %w", dir, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	var out []Message
	for _, info := range infos {
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		raw, err := afero.ReadFile(m.fs, filepath.Join(dir, info.Name()))
		if err != nil {
			return nil, fmt.Errorf("read message %s: %w", info.Name(), err)
		}
		out = append(out, Message{Key: info.Name(), Raw: raw})
	}
	return out, nil
}

// Finish moves the message to cur/, flagged seen for Remove.
func (m *Maildir) Finish(msg Message, a Action) error {
	var flags string
	switch a {
	case LeaveUnread:
		return nil
	case Remove:
		flags = "S"
	case Keep:
	default:
		return fmt.Errorf("unknown action %s", a)
	}
	from := filepath.Join(m.root, "new", msg.Key)
	to := filepath.Join(m.root, "cur", msg.Key+":2,"+flags)
	if err := m.fs.Rename(from, to); err != nil {
		return fmt.Errorf("move %s to cur: %w", msg.Key, err)
	}
	return nil
}

// Close is a no-op; maildir changes are applied by Finish.
func (m *Maildir) Close() error { return nil }

// Deliver writes raw into the maildir the standard way: into tmp/ first,
// then renamed into new/. It returns the new message's name.
func (m *Maildir) Deliver(raw []byte) (string, error) {
	for _, sub := range []string{"tmp", "new", "cur"} {
		if err := m.fs.MkdirAll(filepath.Join(m.root, sub), 0700); err != nil {
			return "", fmt.Errorf("create maildir: %w", err)
		}
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	host = strings.NewReplacer("/", "\\057", ":", "\\072").Replace(host)
	name := fmt.Sprintf("%d.%s.%s", time.Now().Unix(), uuid.NewString(), host)

	tmp := filepath.Join(m.root, "tmp", name)
	if err := afero.WriteFile(m.fs, tmp, raw, 0600); err != nil {
		m.fs.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := m.fs.Rename(tmp, filepath.Join(m.root, "new", name)); err != nil {
		m.fs.Remove(tmp)
		return "", fmt.Errorf("move %s to new: %w", name, err)
	}
	return name, nil
}
