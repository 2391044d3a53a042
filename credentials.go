package session

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/hashid/pkg/hashid"
)

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// NamespaceFor derives a stable storage namespace from the API base URL so several
// backends can share one storage without overwriting each other's credentials.
func NamespaceFor(baseURL string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return ""
	}
	id, err := hashid.NewUUID(baseURL)
	if err != nil {
		return ""
	}
	return strings.SplitN(id.String(), "-", 2)[0]
}

// CredentialStore is the only component that reads or writes the credential keys.
type CredentialStore struct {
	storage Storage
	prefix  string
	logger  Logger
}

// CredentialStoreOption configures a CredentialStore.
type CredentialStoreOption func(*CredentialStore)

// WithCredentialStoreLogger overrides the logger used to report corrupt records.
func WithCredentialStoreLogger(logger Logger) CredentialStoreOption {
	return func(s *CredentialStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCredentialStore creates a store on top of storage. An empty namespace uses the
// bare key names.
func NewCredentialStore(storage Storage, namespace string, opts ...CredentialStoreOption) *CredentialStore {
	if storage == nil {
		storage = NewMemoryStorage()
	}

	s := &CredentialStore{
		storage: storage,
		logger:  defLogger(),
	}
	if namespace != "" {
		s.prefix = namespace + "."
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Key returns the fully qualified storage key for name.
func (s *CredentialStore) Key(name string) string {
	return s.prefix + name
}

// Storage returns the backend, so collaborators can keep their own keys beside ours.
func (s *CredentialStore) Storage() Storage {
	return s.storage
}

// Save writes the access token, refresh token and user as one unit.
func (s *CredentialStore) Save(tokens Tokens, user *User) error {
	if tokens.AccessToken == "" || user == nil {
		return ErrInconsistentState
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return storageError(err, "failed to encode user record")
	}

	err = s.storage.SetAll(map[string]string{
		s.Key(KeyAccessToken):  tokens.AccessToken,
		s.Key(KeyRefreshToken): tokens.RefreshToken,
		s.Key(KeyUser):         string(raw),
	})
	if err != nil {
		return storageError(err, "failed to persist credentials")
	}
	return nil
}

// Load returns the persisted credentials, or nil when nothing usable is stored. A
// partial or corrupt record is reported as absent; callers clear it.
func (s *CredentialStore) Load() *Credentials {
	access, hasAccess, err := s.storage.Get(s.Key(KeyAccessToken))
	if err != nil {
		s.logger.Warn("credential store read failed", "key", KeyAccessToken, "error", err)
		return nil
	}

	rawUser, hasUser, err := s.storage.Get(s.Key(KeyUser))
	if err != nil {
		s.logger.Warn("credential store read failed", "key", KeyUser, "error", err)
		return nil
	}

	if !hasAccess && !hasUser {
		return nil
	}

	if !hasAccess || access == "" || !hasUser {
		s.logger.Warn("credential store holds a partial record", "has_token", hasAccess, "has_user", hasUser)
		return nil
	}

	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.logger.Warn("credential store holds a corrupt user record", "error", err)
		return nil
	}

	if user.ID == "" {
		s.logger.Warn("credential store user record has no id")
		return nil
	}

	refresh, _, err := s.storage.Get(s.Key(KeyRefreshToken))
	if err != nil {
		s.logger.Warn("credential store read failed", "key", KeyRefreshToken, "error", err)
		return nil
	}

	return &Credentials{
		Tokens: Tokens{AccessToken: access, RefreshToken: refresh},
		User:   &user,
	}
}

// Clear removes all three keys.
func (s *CredentialStore) Clear() error {
	err := s.storage.Delete(
		s.Key(KeyAccessToken),
		s.Key(KeyRefreshToken),
		s.Key(KeyUser),
	)
	if err != nil {
		return storageError(err, "failed to clear credentials")
	}
	return nil
}
