package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ngtracker/ngt-desktop/common"
)

type memoryVault struct {
	secrets map[string]string
}

func newMemoryVault() *memoryVault {
	return &memoryVault{secrets: make(map[string]string)}
}

func (v *memoryVault) Store(key, secret string) error {
	v.secrets[key] = secret
	return nil
}

func (v *memoryVault) Get(key string) (string, error) {
	secret, ok := v.secrets[key]
	if !ok {
		return "", common.ErrCredentialsNotFound
	}
	return secret, nil
}

func (v *memoryVault) Delete(key string) error {
	delete(v.secrets, key)
	return nil
}

func TestSessionStore_LoadCreatesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	store := NewSessionStore(dir, nil)

	session, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if session.RememberMe || session.Token != "" {
		t.Errorf("Load() = %+v, want empty session", session)
	}

	data, err := os.ReadFile(filepath.Join(dir, common.SessionFileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{}" {
		t.Errorf("config.json = %s, want {}", data)
	}
}

func TestSessionStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewSessionStore(dir, nil)

	if err := store.Save(&Session{RememberMe: true, Token: "tok123"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["rememberMe"] != true || raw["token"] != "tok123" {
		t.Errorf("config.json = %s", data)
	}

	session, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !session.RememberMe || session.Token != "tok123" {
		t.Errorf("Load() = %+v", session)
	}
}

func TestSessionStore_WritesRememberMeFalse(t *testing.T) {
	store := NewSessionStore(t.TempDir(), nil)

	if err := store.Save(&Session{Token: "tok123"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"rememberMe":false,"token":"tok123"}` {
		t.Errorf("config.json = %s, want rememberMe written explicitly", data)
	}
}

func TestSessionStore_VaultKeepsTokenOffDisk(t *testing.T) {
	dir := t.TempDir()
	vault := newMemoryVault()
	store := NewSessionStore(dir, vault)

	if err := store.Save(&Session{RememberMe: true, Token: "secret"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"rememberMe":true}` {
		t.Errorf("config.json = %s, token must stay in the vault", data)
	}

	session, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if session.Token != "secret" {
		t.Errorf("Load() token = %q, want it restored from the vault", session.Token)
	}

	if err := store.Save(&Session{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, ok := vault.secrets[tokenKey]; ok {
		t.Error("clearing the session should remove the token from the vault")
	}
}

func TestSessionStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := NewSessionStore(dir, nil)
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load(); err == nil {
		t.Error("Load() should fail on a corrupt file")
	}
}

func TestProfileStore(t *testing.T) {
	dir := t.TempDir()
	store := NewProfileStore(dir)

	profile, err := store.Load()
	if err != nil || profile != nil {
		t.Fatalf("Load() on empty dir = %+v, %v; want nil, nil", profile, err)
	}

	want := &common.UserProfile{
		Username:      "trucker",
		Email:         "trucker@example.com",
		JobsCompleted: 12,
		TopSpeed:      97.5,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *got != *want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}
