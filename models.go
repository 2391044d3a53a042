package session

import "strings"

// User is the platform account record as returned by the backend.
type User struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Role        Role    `json:"role"`
	IsVerified  bool    `json:"is_verified"`
	IsActive    bool    `json:"is_active"`
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.FirstName != nil {
		v := *u.FirstName
		c.FirstName = &v
	}
	if u.LastName != nil {
		v := *u.LastName
		c.LastName = &v
	}
	return &c
}

// Name returns the best human readable name for the user.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return u.Email
}

func (u *User) withVerified() *User {
	c := u.Clone()
	c.IsVerified = true
	return c
}

// Tokens holds the opaque credentials issued by the backend.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Credentials is what the CredentialStore persists and loads as a unit.
type Credentials struct {
	Tokens Tokens
	User   *User
}

// LoginRequest is the payload sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the payload returned by the login endpoint.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// RegisterRequest is the payload sent to the register endpoint.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
	DisplayName     string `json:"display_name,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
}

// Result is the structured outcome of a session operation. Operations that feed UI
// forms return a Result instead of an error so callers can render inline messages.
type Result struct {
	Success bool
	Message string
	Fields  map[string]string
	Payload map[string]any
	Err     error
}

// Failed reports whether the operation did not succeed.
func (r Result) Failed() bool {
	return !r.Success
}

func successResult(payload map[string]any) Result {
	return Result{Success: true, Payload: payload}
}

func failureResult(err error) Result {
	res := Result{Err: err, Message: UserMessage(err)}
	if apiErr, ok := asAPIError(err); ok && len(apiErr.Fields) > 0 {
		res.Fields = apiErr.Fields
	}
	if fields := validationFields(err); len(fields) > 0 {
		res.Fields = fields
	}
	return res
}
