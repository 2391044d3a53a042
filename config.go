package session

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLoginRoute            = "/login"
	DefaultUnauthorizedRoute     = "/unauthorized"
	DefaultRoute                 = "/chat"
	DefaultSessionExpiredMessage = "Your session has expired. Please log in again."
)

// Endpoints are the backend paths, relative to the base URL.
type Endpoints struct {
	Login              string `yaml:"login"`
	Register           string `yaml:"register"`
	VerifyEmail        string `yaml:"verify_email"`
	ResendVerification string `yaml:"resend_verification"`
	CurrentUser        string `yaml:"current_user"`
	OAuthLogin         string `yaml:"oauth_login"`
}

// DefaultEndpoints returns the platform backend paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:              "/api/v1/auth/login",
		Register:           "/api/v1/auth/register",
		VerifyEmail:        "/api/v1/auth/verify-email",
		ResendVerification: "/api/v1/auth/resend-verification",
		CurrentUser:        "/api/v1/auth/me",
		OAuthLogin:         "/api/v1/auth/oauth/{provider}/login",
	}
}

func (e Endpoints) withDefaults() Endpoints {
	def := DefaultEndpoints()
	if e.Login == "" {
		e.Login = def.Login
	}
	if e.Register == "" {
		e.Register = def.Register
	}
	if e.VerifyEmail == "" {
		e.VerifyEmail = def.VerifyEmail
	}
	if e.ResendVerification == "" {
		e.ResendVerification = def.ResendVerification
	}
	if e.CurrentUser == "" {
		e.CurrentUser = def.CurrentUser
	}
	if e.OAuthLogin == "" {
		e.OAuthLogin = def.OAuthLogin
	}
	return e
}

// OAuthLoginPath expands the provider placeholder.
func (e Endpoints) OAuthLoginPath(provider string) string {
	return strings.ReplaceAll(e.withDefaults().OAuthLogin, "{provider}", provider)
}

var _ Config = Options{}

// Options is the file backed Config implementation.
type Options struct {
	BaseURL                    string        `yaml:"base_url"`
	Endpoints                  Endpoints     `yaml:"endpoints"`
	RequestTimeout             time.Duration `yaml:"request_timeout"`
	LoginRoute                 string        `yaml:"login_route"`
	UnauthorizedRoute          string        `yaml:"unauthorized_route"`
	DefaultRoute               string        `yaml:"default_route"`
	SessionExpiredMessage      string        `yaml:"session_expired_message"`
	OAuthErrorRedirectDelay    time.Duration `yaml:"oauth_error_redirect_delay"`
	ResendVerificationInterval time.Duration `yaml:"resend_verification_interval"`
	StorageNamespace           string        `yaml:"storage_namespace"`
}

// DefaultOptions returns options for a backend on localhost.
func DefaultOptions() Options {
	return Options{
		BaseURL:                    "http://localhost:8000",
		Endpoints:                  DefaultEndpoints(),
		RequestTimeout:             30 * time.Second,
		LoginRoute:                 DefaultLoginRoute,
		UnauthorizedRoute:          DefaultUnauthorizedRoute,
		DefaultRoute:               DefaultRoute,
		SessionExpiredMessage:      DefaultSessionExpiredMessage,
		OAuthErrorRedirectDelay:    3 * time.Second,
		ResendVerificationInterval: 60 * time.Second,
	}
}

// LoadOptions reads a YAML file on top of DefaultOptions.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return opts.WithDefaults(), nil
}

// WithDefaults fills zero values.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.BaseURL == "" {
		o.BaseURL = def.BaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	o.Endpoints = o.Endpoints.withDefaults()
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = def.RequestTimeout
	}
	if o.LoginRoute == "" {
		o.LoginRoute = def.LoginRoute
	}
	if o.UnauthorizedRoute == "" {
		o.UnauthorizedRoute = def.UnauthorizedRoute
	}
	if o.DefaultRoute == "" {
		o.DefaultRoute = def.DefaultRoute
	}
	if o.SessionExpiredMessage == "" {
		o.SessionExpiredMessage = def.SessionExpiredMessage
	}
	if o.OAuthErrorRedirectDelay <= 0 {
		o.OAuthErrorRedirectDelay = def.OAuthErrorRedirectDelay
	}
	if o.ResendVerificationInterval < 0 {
		o.ResendVerificationInterval = 0
	}
	return o
}

func (o Options) GetBaseURL() string                           { return o.BaseURL }
func (o Options) GetEndpoints() Endpoints                      { return o.Endpoints.withDefaults() }
func (o Options) GetRequestTimeout() time.Duration             { return o.RequestTimeout }
func (o Options) GetLoginRoute() string                        { return o.LoginRoute }
func (o Options) GetUnauthorizedRoute() string                 { return o.UnauthorizedRoute }
func (o Options) GetDefaultRoute() string                      { return o.DefaultRoute }
func (o Options) GetSessionExpiredMessage() string             { return o.SessionExpiredMessage }
func (o Options) GetOAuthErrorRedirectDelay() time.Duration    { return o.OAuthErrorRedirectDelay }
func (o Options) GetResendVerificationInterval() time.Duration { return o.ResendVerificationInterval }

// GetStorageNamespace returns the configured namespace, or one derived from the base URL.
func (o Options) GetStorageNamespace() string {
	if o.StorageNamespace != "" {
		return o.StorageNamespace
	}
	return NamespaceFor(o.BaseURL)
}
