// Package keyring provides secure storage for the session token.
// It uses the system keyring when available, falling back to
// encrypted local file storage when not.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/hkdf"

	"github.com/ngtracker/ngt-desktop/common"
)

// Common errors returned by vault operations.
var (
	ErrNotFound = common.ErrCredentialsNotFound
	ErrEmptyKey = errors.New("key cannot be empty")
)

// availabilityKey is written and removed once to detect a working system keyring.
const availabilityKey = "ngt-tracker-check"

// Vault stores secrets for one service name.
type Vault struct {
	service string

	mu       sync.RWMutex
	useLocal bool
	local    map[string]string
	file     string
	key      []byte
}

// New returns a vault backed by the system keyring, or by an encrypted
// file in dataDir when the keyring cannot be used.
func New(service, dataDir string) *Vault {
	v := &Vault{
		service: service,
		file:    filepath.Join(dataDir, common.CredentialsFileName),
	}

	if err := keyring.Set(service, availabilityKey, "check"); err == nil {
		keyring.Delete(service, availabilityKey)
		return v
	}

	common.LogWarn("System keyring unavailable, using encrypted file storage")
	v.switchToLocal()
	return v
}

// NewFileVault returns a vault that never touches the system keyring.
func NewFileVault(service, dataDir string) *Vault {
	v := &Vault{
		service: service,
		file:    filepath.Join(dataDir, common.CredentialsFileName),
	}
	v.switchToLocal()
	return v
}

// Local reports whether the vault uses the encrypted file fallback.
func (v *Vault) Local() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.useLocal
}

func (v *Vault) switchToLocal() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.useLocal {
		return
	}

	v.useLocal = true
	v.key = deriveKey(v.service)
	v.local = make(map[string]string)
	v.loadLocal()
}

// deriveKey derives the file encryption key from machine-specific data.
func deriveKey(service string) []byte {
	hostname, _ := os.Hostname()
	secret := fmt.Sprintf("%s-%s-%d", hostname, machineID(), os.Getuid())

	kdf := hkdf.New(sha256.New, []byte(secret), []byte(service), []byte("credential-file"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		sum := sha256.Sum256([]byte(secret))
		return sum[:]
	}
	return key
}

func machineID() string {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		data, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return "default-machine-id"
}

// loadLocal must be called with v.mu held.
func (v *Vault) loadLocal() {
	data, err := os.ReadFile(v.file)
	if err != nil {
		return
	}

	decrypted, err := v.decrypt(data)
	if err != nil {
		common.LogWarn("Ignoring unreadable credentials file: %v", err)
		return
	}

	if err := json.Unmarshal(decrypted, &v.local); err != nil {
		common.LogWarn("Ignoring malformed credentials file: %v", err)
	}
}

// saveLocal must be called with v.mu held.
func (v *Vault) saveLocal() error {
	data, err := json.Marshal(v.local)
	if err != nil {
		return err
	}

	encrypted, err := v.encrypt(data)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}

	return common.WriteFileAtomic(v.file, encrypted, 0600)
}

func (v *Vault) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return []byte(base64.StdEncoding.EncodeToString(ciphertext)), nil
}

func (v *Vault) decrypt(data []byte) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrDecryption)
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return plain, nil
}

// Store saves secret under key.
func (v *Vault) Store(key, secret string) error {
	if key == "" {
		return ErrEmptyKey
	}

	if !v.Local() {
		err := keyring.Set(v.service, key, secret)
		if err == nil {
			return nil
		}
		common.LogWarn("Keyring write failed, falling back to file storage: %v", err)
		v.switchToLocal()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.local[key] = secret
	return v.saveLocal()
}

// Get retrieves the secret stored under key.
func (v *Vault) Get(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	if !v.Local() {
		secret, err := keyring.Get(v.service, key)
		if err == nil {
			return secret, nil
		}
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keyring read: %w", err)
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	secret, ok := v.local[key]
	if !ok {
		return "", ErrNotFound
	}
	return secret, nil
}

// Delete removes the secret stored under key. Missing keys are not an error.
func (v *Vault) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	if !v.Local() {
		err := keyring.Delete(v.service, key)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("keyring delete: %w", err)
		}
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.local, key)
	return v.saveLocal()
}

// Exists checks if a secret exists under key.
func (v *Vault) Exists(key string) bool {
	_, err := v.Get(key)
	return err == nil
}
