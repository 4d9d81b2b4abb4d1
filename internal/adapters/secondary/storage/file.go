package storage

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/tiback/tiback-client/internal/core/ports"
)

// Argon2id parameters for deriving the file key from a passphrase.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	saltSize     = 16
	envelopeV1   = 1
)

// ErrDecrypt is returned when a sealed session file cannot be opened with the
// configured passphrase.
var ErrDecrypt = errors.New("storage: failed to decrypt session file")

// FileKV keeps all keys in one JSON file, optionally sealed with
// XChaCha20-Poly1305 under an Argon2id-derived key.
type FileKV struct {
	path       string
	passphrase []byte

	mu   sync.Mutex
	salt []byte
	key  []byte
}

var _ ports.KeyValueStore = (*FileKV)(nil)

// envelope is the on-disk format of a sealed file.
type envelope struct {
	Version int    `json:"v"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Data    []byte `json:"data"`
}

// NewFileKV stores keys at path. An empty passphrase writes plain JSON.
func NewFileKV(path, passphrase string) (*FileKV, error) {
	if path == "" {
		return nil, errors.New("storage: session file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage: failed to create session directory: %w", err)
	}
	f := &FileKV{path: path}
	if passphrase != "" {
		f.passphrase = []byte(passphrase)
	}
	return f, nil
}

// Path returns the file the store writes to.
func (f *FileKV) Path() string {
	return f.path
}

func (f *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileKV) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		// An unreadable file is replaced rather than blocking new sessions.
		values = make(map[string]string)
	}
	values[key] = value
	return f.write(values)
}

func (f *FileKV) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		// Nothing readable is left to keep.
		return f.remove()
	}

	for _, k := range keys {
		delete(values, k)
	}
	if len(values) == 0 {
		return f.remove()
	}
	return f.write(values)
}

func (f *FileKV) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to read session file: %w", err)
	}

	if f.passphrase != nil {
		raw, err = f.open(raw)
		if err != nil {
			return nil, err
		}
	}

	values := make(map[string]string)
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("storage: malformed session file: %w", err)
	}
	return values, nil
}

func (f *FileKV) write(values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("storage: failed to encode session file: %w", err)
	}

	if f.passphrase != nil {
		raw, err = f.seal(raw)
		if err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return fmt.Errorf("storage: failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: failed to set file mode: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("storage: failed to replace session file: %w", err)
	}
	return nil
}

func (f *FileKV) remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: failed to remove session file: %w", err)
	}
	return nil
}

func (f *FileKV) seal(plaintext []byte) ([]byte, error) {
	if f.key == nil {
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("storage: failed to generate salt: %w", err)
		}
		f.salt = salt
		f.key = deriveKey(f.passphrase, salt)
	}

	aead, err := chacha20poly1305.NewX(f.key)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("storage: failed to generate nonce: %w", err)
	}

	return json.Marshal(envelope{
		Version: envelopeV1,
		Salt:    f.salt,
		Nonce:   nonce,
		Data:    aead.Seal(nil, nonce, plaintext, nil),
	})
}

func (f *FileKV) open(raw []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Version != envelopeV1 {
		return nil, ErrDecrypt
	}

	key := f.key
	if key == nil || string(env.Salt) != string(f.salt) {
		key = deriveKey(f.passphrase, env.Salt)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil || len(env.Nonce) != aead.NonceSize() {
		return nil, ErrDecrypt
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Data, nil)
	if err != nil {
		return nil, ErrDecrypt
	}

	f.salt, f.key = env.Salt, key
	return plaintext, nil
}

func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}
