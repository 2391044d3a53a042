package session

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	fileStorageVersion = 1
	keySize            = 32
	saltSize           = 16
	nonceSize          = 24
)

// ErrStorageLocked is returned when an encrypted file cannot be opened with the
// configured passphrase.
var ErrStorageLocked = goerrors.New("credential file cannot be decrypted", goerrors.CategoryAuth).
	WithTextCode("CREDENTIAL_STORAGE_LOCKED").
	WithCode(goerrors.CodeUnauthorized)

// FileStorage persists entries as a single JSON document. Writes go to a temp file
// that is renamed over the target, so a crash never leaves a half written document.
type FileStorage struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
}

// FileStorageOption configures FileStorage.
type FileStorageOption func(*FileStorage)

// WithPassphrase encrypts the document at rest with NaCl secretbox. The key is derived
// with scrypt from the passphrase and a per write random salt.
func WithPassphrase(passphrase string) FileStorageOption {
	return func(fs *FileStorage) {
		if passphrase != "" {
			fs.passphrase = []byte(passphrase)
		}
	}
}

// NewFileStorage creates a FileStorage rooted at path. Parent directories are created on
// first write.
func NewFileStorage(path string, opts ...FileStorageOption) *FileStorage {
	fs := &FileStorage{path: path}
	for _, opt := range opts {
		if opt != nil {
			opt(fs)
		}
	}
	return fs
}

// Path returns the backing file location.
func (fs *FileStorage) Path() string {
	return fs.path
}

func (fs *FileStorage) Get(key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := fs.read()
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

func (fs *FileStorage) SetAll(entries map[string]string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	current, err := fs.read()
	if err != nil {
		// an unreadable document is replaced rather than blocking every future write
		current = map[string]string{}
	}
	for k, v := range entries {
		current[k] = v
	}
	return fs.write(current)
}

func (fs *FileStorage) Delete(keys ...string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	current, err := fs.read()
	if err != nil {
		current = map[string]string{}
	}
	for _, k := range keys {
		delete(current, k)
	}
	if len(current) == 0 {
		if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", fs.path, err)
		}
		return nil
	}
	return fs.write(current)
}

type fileEnvelope struct {
	Version int               `json:"v"`
	Entries map[string]string `json:"entries,omitempty"`
	Salt    []byte            `json:"salt,omitempty"`
	Nonce   []byte            `json:"nonce,omitempty"`
	Box     []byte            `json:"box,omitempty"`
}

func (fs *FileStorage) read() (map[string]string, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", fs.path, err)
	}

	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", fs.path, err)
	}

	if len(env.Box) == 0 {
		if env.Entries == nil {
			env.Entries = map[string]string{}
		}
		return env.Entries, nil
	}

	if len(fs.passphrase) == 0 || len(env.Nonce) != nonceSize {
		return nil, ErrStorageLocked
	}

	key, err := deriveKey(fs.passphrase, env.Salt)
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	copy(nonce[:], env.Nonce)

	plain, ok := secretbox.Open(nil, env.Box, &nonce, key)
	if !ok {
		return nil, ErrStorageLocked
	}

	entries := map[string]string{}
	if err := json.Unmarshal(plain, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode decrypted %s: %w", fs.path, err)
	}
	return entries, nil
}

func (fs *FileStorage) write(entries map[string]string) error {
	env := fileEnvelope{Version: fileStorageVersion}

	if len(fs.passphrase) == 0 {
		env.Entries = entries
	} else {
		plain, err := json.Marshal(entries)
		if err != nil {
			return err
		}

		salt := make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}

		var nonce [nonceSize]byte
		if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
			return fmt.Errorf("failed to generate nonce: %w", err)
		}

		key, err := deriveKey(fs.passphrase, salt)
		if err != nil {
			return err
		}

		env.Salt = salt
		env.Nonce = nonce[:]
		env.Box = secretbox.Seal(nil, plain, &nonce, key)
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", fs.path, err)
	}
	return nil
}

func deriveKey(passphrase, salt []byte) (*[keySize]byte, error) {
	raw, err := scrypt.Key(passphrase, salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}
