// Package config loads the daylog YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation problem.
var ErrInvalid = errors.New("invalid configuration")

// Config is the daemon configuration.
//
//	database: daylog.db
//	secret_key: secret.key
//	return_addr: daylog@example.com
//	incoming_mail:
//	  maildir:
//	    path: /home/daylog/Maildir
//	transport:
//	  sendmail:
//	    path: /usr/sbin/sendmail
type Config struct {
	Database string `yaml:"database"`
	// SecretKey is the path of the message id key file.
	SecretKey string `yaml:"secret_key"`
	// SecretKeyKeyring, when set, loads the key from the OS keyring under
	// this account name instead of from SecretKey.
	SecretKeyKeyring string `yaml:"secret_key_keyring"`
	ReturnAddr       string `yaml:"return_addr"`
	// Hostname is the right-hand side of generated Message-IDs. Defaults to
	// the domain of ReturnAddr.
	Hostname string `yaml:"hostname"`

	IncomingMail IncomingMail `yaml:"incoming_mail"`
	Transport    Transport    `yaml:"transport"`

	Control string `yaml:"control"`
	PidFile string `yaml:"pid_file"`
	LogFile string `yaml:"log_file"`

	ConfigBackoff    Duration `yaml:"config_backoff"`
	MaxConfigRetries int      `yaml:"max_config_retries"`
	MetricsAddr      string   `yaml:"metrics_addr"`

	// dir is the directory of the config file; relative paths resolve against it.
	dir string
}

// IncomingMail is where replies are read from. At most one is set.
type IncomingMail struct {
	Maildir *PathConfig `yaml:"maildir"`
	Mbox    *PathConfig `yaml:"mbox"`
}

// Transport says how digests are sent. At most one is set; sendmail from
// PATH is the default.
type Transport struct {
	Sendmail *PathConfig `yaml:"sendmail"`
	SMTP     *SMTPConfig `yaml:"smtp"`
}

type PathConfig struct {
	Path string `yaml:"path"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Duration is a time.Duration written as "90s" or "5m" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load reads, resolves and validates the config file at path.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Parse(data, filepath.Dir(abs))
}

// Parse decodes YAML data; relative paths are resolved against dir.
// Unknown keys are an error.
func Parse(data []byte, dir string) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	c.dir = dir
	c.resolvePaths()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

func (c *Config) resolvePaths() {
	c.Database = c.resolve(c.Database)
	c.SecretKey = c.resolve(c.SecretKey)
	c.Control = c.resolve(c.Control)
	c.PidFile = c.resolve(c.PidFile)
	c.LogFile = c.resolve(c.LogFile)
	if c.IncomingMail.Maildir != nil {
		c.IncomingMail.Maildir.Path = c.resolve(c.IncomingMail.Maildir.Path)
	}
	if c.IncomingMail.Mbox != nil {
		c.IncomingMail.Mbox.Path = c.resolve(c.IncomingMail.Mbox.Path)
	}
	if c.Transport.Sendmail != nil && filepath.Base(c.Transport.Sendmail.Path) != c.Transport.Sendmail.Path {
		c.Transport.Sendmail.Path = c.resolve(c.Transport.Sendmail.Path)
	}
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	fail := func(format string, args ...interface{}) {
		result = multierror.Append(result, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalid}, args...)...))
	}
	if c.Database == "" {
		fail("database is required")
	}
	if c.SecretKey == "" && c.SecretKeyKeyring == "" {
		fail("one of secret_key or secret_key_keyring is required")
	}
	if c.ReturnAddr == "" {
		fail("return_addr is required")
	} else if _, err := mail.ParseAddress(c.ReturnAddr); err != nil {
		fail("return_addr %q: %v", c.ReturnAddr, err)
	}
	if c.IncomingMail.Maildir != nil && c.IncomingMail.Mbox != nil {
		fail("incoming_mail: set only one of maildir and mbox")
	}
	for name, pc := range map[string]*PathConfig{"maildir": c.IncomingMail.Maildir, "mbox": c.IncomingMail.Mbox} {
		if pc != nil && pc.Path == "" {
			fail("incoming_mail.%s.path is required", name)
		}
	}
	if c.Transport.Sendmail != nil && c.Transport.SMTP != nil {
		fail("transport: set only one of sendmail and smtp")
	}
	if s := c.Transport.SMTP; s != nil {
		if s.Host == "" {
			fail("transport.smtp.host is required")
		}
		if s.Port < 0 || s.Port > 65535 {
			fail("transport.smtp.port %d out of range", s.Port)
		}
	}
	if c.ConfigBackoff < 0 {
		fail("config_backoff must not be negative")
	}
	if c.MaxConfigRetries < 0 {
		fail("max_config_retries must not be negative")
	}
	return result.ErrorOrNil()
}

// MessageHost returns the host part used in Message-IDs.
func (c *Config) MessageHost() string {
	if c.Hostname != "" {
		return c.Hostname
	}
	if addr, err := mail.ParseAddress(c.ReturnAddr); err == nil {
		if at := strings.LastIndexByte(addr.Address, '@'); at >= 0 {
			return addr.Address[at+1:]
		}
	}
	return "localhost"
}

// ReturnAddress returns the bare address of ReturnAddr.
func (c *Config) ReturnAddress() string {
	if addr, err := mail.ParseAddress(c.ReturnAddr); err == nil {
		return addr.Address
	}
	return c.ReturnAddr
}

// SMTPPort returns the configured port, 587 by default.
func (s *SMTPConfig) SMTPPort() int {
	if s.Port == 0 {
		return 587
	}
	return s.Port
}

// Backoff returns ConfigBackoff as a time.Duration.
func (c *Config) Backoff() time.Duration { return time.Duration(c.ConfigBackoff) }
