package common

// TokenVault keeps the session token outside config.json. The keyring
// package provides the implementation backed by the system keyring.
type TokenVault interface {
	Store(key, secret string) error
	// Get returns ErrCredentialsNotFound when nothing is stored under key.
	Get(key string) (string, error)
	Delete(key string) error
}

// Notifier shows desktop notifications. Implementations drop messages
// while notifications are disabled in settings.
type Notifier interface {
	Notify(title, message string) error
}
