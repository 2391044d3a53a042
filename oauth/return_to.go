package oauth

import (
	"regexp"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
)

const returnToKey = "oauth_return_to"

var providerPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// ReturnToStash keeps the location to resume after a provider redirect. It shares the
// session Storage but uses its own key.
type ReturnToStash struct {
	storage session.Storage
	key     string
}

// NewReturnToStash creates a stash in storage under namespace.
func NewReturnToStash(storage session.Storage, namespace string) *ReturnToStash {
	if storage == nil {
		storage = session.NewMemoryStorage()
	}
	key := returnToKey
	if namespace != "" {
		key = namespace + "." + returnToKey
	}
	return &ReturnToStash{storage: storage, key: key}
}

// Stash records location. Anything other than an in-app path clears the stash.
func (s *ReturnToStash) Stash(location string) error {
	location = session.ResumeLocation(location, "")
	if location == "" {
		return s.storage.Delete(s.key)
	}
	return s.storage.SetAll(map[string]string{s.key: location})
}

// Take returns the stashed location and clears it. It returns "" when nothing usable
// was stashed.
func (s *ReturnToStash) Take() string {
	location, ok, err := s.storage.Get(s.key)
	if err != nil || !ok {
		return ""
	}
	_ = s.storage.Delete(s.key)
	return session.ResumeLocation(location, "")
}

// LoginURLer resolves the backend URL that starts a provider flow.
type LoginURLer interface {
	OAuthLoginURL(provider string) string
}

// BeginURL stashes returnTo and returns the URL the browser should open to sign in
// with provider.
func BeginURL(stash *ReturnToStash, urls LoginURLer, provider, returnTo string) (string, error) {
	if !providerPattern.MatchString(provider) {
		return "", ErrInvalidProvider
	}
	if stash != nil {
		if err := stash.Stash(returnTo); err != nil {
			return "", err
		}
	}
	return urls.OAuthLoginURL(provider), nil
}
