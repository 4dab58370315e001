package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/daylog/daylog/internal/config"
	"github.com/daylog/daylog/internal/digest"
	"github.com/daylog/daylog/internal/keystore"
	"github.com/daylog/daylog/internal/mailsource"
	"github.com/daylog/daylog/internal/msgid"
	"github.com/daylog/daylog/internal/store"
	"github.com/daylog/daylog/pkg/logger"
)

var (
	errNoConfig       = errors.New("no configuration file given (use --config or DAYLOG_CONFIG)")
	errNoIncomingMail = errors.New("incoming_mail is not configured")
)

// Replaced in tests.
var (
	appFs  afero.Fs        = afero.NewOsFs()
	clock  clockwork.Clock = clockwork.NewRealClock()
	stdout io.Writer       = os.Stdout
	stderr io.Writer       = os.Stderr
	stdin  io.Reader       = os.Stdin
)

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return nil, errNoConfig
	}
	return config.Load(appFs, configPath)
}

// newLogger logs to stderr, and to the log file from --log-file or the
// config when one is set.
func newLogger(cfg *config.Config) (logger.Logger, error) {
	level := logger.LevelFromVerbosity(verbosity)
	console := logger.NewLeveledLogger(log.New(stderr, "daylog: ", log.LstdFlags), level)
	path := logFile
	if path == "" && cfg != nil {
		path = cfg.LogFile
	}
	if path == "" {
		return console, nil
	}
	fl, err := logger.NewFileLogger(path, level)
	if err != nil {
		return nil, err
	}
	return logger.NewMultiLogger(console, fl), nil
}

func openStore(ctx context.Context, cfg *config.Config) (*store.SQLite, error) {
	return store.Open(ctx, cfg.Database)
}

func keySource(cfg *config.Config) keystore.Source {
	if cfg.SecretKeyKeyring != "" {
		return keystore.NewKeyring(cfg.SecretKeyKeyring)
	}
	return keystore.NewFileKeyStore(appFs, cfg.SecretKey)
}

func newCodec(cfg *config.Config) (*msgid.Codec, error) {
	key, err := keySource(cfg).Load()
	if err != nil {
		return nil, fmt.Errorf("load secret key (run \"daylog keygen\" first?): %w", err)
	}
	return msgid.New(key)
}

func newTransport(cfg *config.Config, dry bool) digest.Transport {
	switch {
	case dry:
		return &digest.Writer{W: stdout}
	case cfg.Transport.SMTP != nil:
		s := cfg.Transport.SMTP
		return digest.NewSMTP(s.Host, s.SMTPPort(), s.Username, s.Password)
	case cfg.Transport.Sendmail != nil && cfg.Transport.Sendmail.Path != "":
		return &digest.Sendmail{Path: cfg.Transport.Sendmail.Path}
	default:
		return &digest.Sendmail{}
	}
}

func newDispatcher(cfg *config.Config, st *store.SQLite, codec *msgid.Codec, dry bool, l logger.Logger) *digest.Dispatcher {
	composer := digest.NewComposer(st, codec, cfg.ReturnAddress(), cfg.MessageHost(), clock)
	return digest.NewDispatcher(composer, newTransport(cfg, dry), clock, l)
}

func newMailSource(cfg *config.Config) (mailsource.Source, error) {
	switch {
	case cfg.IncomingMail.Maildir != nil:
		return mailsource.NewMaildir(appFs, cfg.IncomingMail.Maildir.Path), nil
	case cfg.IncomingMail.Mbox != nil:
		return mailsource.NewMbox(appFs, cfg.IncomingMail.Mbox.Path), nil
	}
	return nil, errNoIncomingMail
}

func pidFilePath(cfg *config.Config) string {
	if cfg.PidFile != "" {
		return cfg.PidFile
	}
	return filepath.Join(os.TempDir(), "daylog.pid")
}
