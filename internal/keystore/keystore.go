// Package keystore loads and creates the secret key that seals daylog
// message ids. Keys live in a file by default, or in the operating system's
// keyring when configured.
package keystore

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/zalando/go-keyring"
)

// KeySize is the length of a message id key.
const KeySize = 32

const keyFileMode = 0600

// ErrKeyExists is returned by Generate when it would overwrite a key.
var ErrKeyExists = errors.New("key already exists")

// Source supplies the secret key.
type Source interface {
	Load() ([]byte, error)
}

var randRead = rand.Read

// FileKeyStore keeps the key in a file, hex encoded. A file holding exactly
// 32 raw bytes is also accepted.
type FileKeyStore struct {
	fs   afero.Fs
	path string
}

// NewFileKeyStore returns a FileKeyStore for path on fs.
func NewFileKeyStore(fs afero.Fs, path string) *FileKeyStore {
	return &FileKeyStore{fs: fs, path: path}
}

// Load reads and decodes the key file.
func (f *FileKeyStore) Load() ([]byte, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if len(data) == KeySize {
		if key, err := decodeHex(string(data)); err == nil {
			return key, nil
		}
		return data, nil
	}
	return decodeHex(string(data))
}

func decodeHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid key format: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length: expected %d, got %d", KeySize, len(key))
	}
	return key, nil
}

// Generate creates a new random key and writes it atomically through a
// temporary file and rename. It refuses to replace an existing key unless
// overwrite is set.
func (f *FileKeyStore) Generate(overwrite bool) ([]byte, error) {
	if !overwrite {
		if ok, _ := afero.Exists(f.fs, f.path); ok {
			return nil, fmt.Errorf("%w: %s", ErrKeyExists, f.path)
		}
	}
	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	key, err := newKey()
	if err != nil {
		return nil, err
	}

	tmp, err := afero.TempFile(f.fs, dir, ".daylog.key.tmp.*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(hex.EncodeToString(key) + "\n"); err != nil {
		tmp.Close()
		f.fs.Remove(tmpPath)
		return nil, fmt.Errorf("write key: %w", err)
	}
	if err := tmp.Close(); err != nil {
		f.fs.Remove(tmpPath)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if err := f.fs.Chmod(tmpPath, keyFileMode); err != nil {
		f.fs.Remove(tmpPath)
		return nil, fmt.Errorf("set permissions: %w", err)
	}
	if err := f.fs.Rename(tmpPath, f.path); err != nil {
		f.fs.Remove(tmpPath)
		return nil, fmt.Errorf("rename key file: %w", err)
	}
	return key, nil
}

func newKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := randRead(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

var (
	keyringSet = keyring.Set
	keyringGet = keyring.Get
)

// Keyring keeps the key in the operating system's keyring.
type Keyring struct {
	Service string
	User    string
}

// NewKeyring returns a Keyring entry for the given account name.
func NewKeyring(user string) *Keyring {
	return &Keyring{Service: "daylog", User: user}
}

// Load reads the key from the keyring.
func (k *Keyring) Load() ([]byte, error) {
	s, err := keyringGet(k.Service, k.User)
	if err != nil {
		return nil, fmt.Errorf("read keyring %s/%s: %w", k.Service, k.User, err)
	}
	return decodeHex(s)
}

// Generate stores a new random key in the keyring.
func (k *Keyring) Generate(overwrite bool) ([]byte, error) {
	if !overwrite {
		if _, err := keyringGet(k.Service, k.User); err == nil {
			return nil, fmt.Errorf("%w: keyring %s/%s", ErrKeyExists, k.Service, k.User)
		}
	}
	key, err := newKey()
	if err != nil {
		return nil, err
	}
	if err := keyringSet(k.Service, k.User, hex.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("write keyring %s/%s: %w", k.Service, k.User, err)
	}
	return key, nil
}
