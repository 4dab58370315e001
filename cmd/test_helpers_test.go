package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/daylog/daylog/internal/control"
)

// testEnv is a config directory with a database, key file, maildir and
// control socket, plus captured command output.
type testEnv struct {
	dir    string
	config string
	socket string
	out    *bytes.Buffer
	clock  *clockwork.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	// Socket paths have a short length limit; keep it out of the test dir.
	sockDir, err := os.MkdirTemp("", "dl")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(sockDir) })

	e := &testEnv{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		socket: filepath.Join(sockDir, "c.sock"),
		out:    &bytes.Buffer{},
		clock:  clockwork.NewFakeClockAt(time.Date(2021, 7, 4, 20, 0, 0, 0, time.UTC)),
	}
	conf := fmt.Sprintf(`database: daylog.db
secret_key: secret.key
return_addr: Daylog <daylog@example.com>
control: %s
pid_file: daylog.pid
incoming_mail:
  maildir:
    path: Maildir
`, e.socket)
	if err := os.WriteFile(e.config, []byte(conf), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv(control.SocketPathEnv, "")
	t.Setenv("DAYLOG_CONFIG", "")
	oldFs, oldClock, oldOut, oldErr, oldIn := appFs, clock, stdout, stderr, stdin
	appFs = afero.NewOsFs()
	clock = e.clock
	stdout = e.out
	stderr = io.Discard
	t.Cleanup(func() {
		appFs, clock, stdout, stderr, stdin = oldFs, oldClock, oldOut, oldErr, oldIn
	})
	return e
}

// run executes one daylog command line against the environment's config.
func (e *testEnv) run(args ...string) error {
	full := append([]string{"daylog", "-c", e.config}, args...)
	return newApp(BuildArgs{Version: "test", BuildType: "test"}).Run(full)
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	e.out.Reset()
	if err := e.run(args...); err != nil {
		t.Fatalf("daylog %v: %v", args, err)
	}
	return e.out.String()
}

func (e *testEnv) path(name string) string {
	return filepath.Join(e.dir, name)
}

func requireZone(t *testing.T, name string) {
	t.Helper()
	if _, err := time.LoadLocation(name); err != nil {
		t.Skipf("timezone data for %s unavailable: %v", name, err)
	}
}
