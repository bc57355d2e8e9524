package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ngtracker/ngt-desktop/common"
)

// tokenKey is the vault entry holding the session token.
const tokenKey = "session-token"

// Session is the persisted login state: the remember-me flag and the
// bearer token returned by the last successful login.
type Session struct {
	RememberMe bool   `json:"rememberMe"`
	Token      string `json:"token,omitempty"`
}

// SessionStore reads and writes config.json.
// When a vault is attached, the token is kept there and the file only
// carries the remember-me flag.
type SessionStore struct {
	path  string
	vault common.TokenVault
}

// NewSessionStore creates a store for config.json inside dir.
func NewSessionStore(dir string, vault common.TokenVault) *SessionStore {
	return &SessionStore{
		path:  filepath.Join(dir, common.SessionFileName),
		vault: vault,
	}
}

// Path returns the location of config.json.
func (s *SessionStore) Path() string {
	return s.path
}

// Load reads the session. A missing file is created as an empty object.
func (s *SessionStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := common.WriteFileAtomic(s.path, []byte("{}"), 0600); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrConfigSave, err)
		}
		common.LogInfo("Created config file")
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}

	if session.Token == "" && s.vault != nil {
		token, err := s.vault.Get(tokenKey)
		if err == nil {
			session.Token = token
		} else if !errors.Is(err, common.ErrCredentialsNotFound) {
			common.LogWarn("Could not read session token from keyring: %v", err)
		}
	}

	return &session, nil
}

// Save persists the session.
func (s *SessionStore) Save(session *Session) error {
	onDisk := *session
	if s.vault != nil {
		var err error
		if session.Token != "" {
			err = s.vault.Store(tokenKey, session.Token)
		} else {
			err = s.vault.Delete(tokenKey)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
		}
		onDisk.Token = ""
	}

	data, err := json.Marshal(&onDisk)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}
	if err := common.WriteFileAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}

	common.LogDebug("Saved config")
	return nil
}

// ProfileStore reads and writes the cached account profile (userData.json).
type ProfileStore struct {
	path string
}

// NewProfileStore creates a store for userData.json inside dir.
func NewProfileStore(dir string) *ProfileStore {
	return &ProfileStore{path: filepath.Join(dir, common.ProfileFileName)}
}

// Load returns the cached profile, or nil when none was saved yet.
func (p *ProfileStore) Load() (*common.UserProfile, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var profile common.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}
	return &profile, nil
}

// Save overwrites the cache with profile.
func (p *ProfileStore) Save(profile *common.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}
	if err := common.WriteFileAtomic(p.path, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}
	common.LogDebug("Saved userData")
	return nil
}
