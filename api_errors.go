package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	genericServerMessage  = "Something went wrong on our side. Please try again later."
	genericNetworkMessage = "Unable to reach the server. Check your connection and try again."
)

// APIError is a non 2xx response from the backend.
type APIError struct {
	Status  int
	Kind    ErrorKind
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (status %d, %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// ForcesLogout reports whether the response must end the current session.
func (e *APIError) ForcesLogout() bool {
	return forcesLogout(e.Status, e.Code)
}

func forcesLogout(status int, code string) bool {
	switch status {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return isForcedLogoutReason(code)
	default:
		return false
	}
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func networkError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, genericNetworkMessage).
		WithTextCode(TextCodeNetworkFailure)
}

// errorBody is the union of the error shapes the backend produces: FastAPI style
// `detail` (string, object, or validation list) and flat `{error, message}`.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

type errorDetail struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parsedError is what the pipeline and the client extract from an error body.
type parsedError struct {
	Code    string
	Message string
	Fields  map[string]string
}

func parseErrorBody(body []byte) parsedError {
	var out parsedError
	if len(body) == 0 {
		return out
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return out
	}

	if len(eb.Detail) > 0 {
		var s string
		var obj errorDetail
		var items []validationItem

		switch {
		case json.Unmarshal(eb.Detail, &s) == nil:
			out.Message = s
		case json.Unmarshal(eb.Detail, &obj) == nil:
			out.Code = firstNonEmpty(obj.Error, obj.Code)
			out.Message = firstNonEmpty(obj.Message, obj.Detail)
		case json.Unmarshal(eb.Detail, &items) == nil:
			out.Fields = map[string]string{}
			for _, item := range items {
				out.Fields[fieldName(item.Loc)] = item.Msg
			}
			if len(items) > 0 {
				out.Message = items[0].Msg
			}
		}
	}

	if out.Code == "" {
		out.Code = eb.Code
	}
	if out.Code == "" && isMachineCode(eb.Error) {
		out.Code = eb.Error
	}
	if out.Message == "" {
		out.Message = eb.Message
	}
	if out.Message == "" && eb.Error != "" && !isMachineCode(eb.Error) {
		out.Message = eb.Error
	}

	return out
}

func newAPIError(status int, body []byte) *APIError {
	parsed := parseErrorBody(body)

	apiErr := &APIError{
		Status:  status,
		Code:    parsed.Code,
		Message: parsed.Message,
		Fields:  parsed.Fields,
	}

	switch {
	case forcesLogout(status, parsed.Code):
		apiErr.Kind = KindAuthorization
	case status == http.StatusForbidden:
		apiErr.Kind = KindForbidden
	case status >= 500:
		apiErr.Kind = KindServer
		// server details are not meant for end users
		apiErr.Message = genericServerMessage
	case status >= 400:
		apiErr.Kind = KindValidation
	default:
		apiErr.Kind = KindUnknown
	}

	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("Request failed with status %d", status)
	}

	return apiErr
}

func fieldName(loc []any) string {
	parts := make([]string, 0, len(loc))
	for _, p := range loc {
		s := fmt.Sprint(p)
		if s == "body" || s == "query" {
			continue
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "_"
	}
	return strings.Join(parts, ".")
}

func isMachineCode(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && r != '_' && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// UserMessage returns the message a user should see for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	if apiErr, ok := asAPIError(err); ok {
		return apiErr.Message
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}

	return err.Error()
}
