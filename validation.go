package session

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

const minPasswordLength = 8

var errMissingVerificationToken = validation.Errors{
	"token": errors.New("verification token is required"),
}

// Validate checks the login payload before it leaves the client.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// Validate checks the registration payload before it leaves the client. Password
// strength is the backend's call; only presence and a minimum length are checked here.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, 128)),
		validation.Field(&r.ConfirmPassword, validation.By(equalsString(r.Password, "passwords do not match"))),
		validation.Field(&r.DisplayName, validation.Length(0, 100)),
		validation.Field(&r.FirstName, validation.Length(0, 100)),
		validation.Field(&r.LastName, validation.Length(0, 100)),
	)
}

func equalsString(expected, message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" || s == expected {
			return nil
		}
		return errors.New(message)
	}
}

func validateEmail(email string) error {
	return validation.Validate(email, validation.Required, is.Email)
}

// validationError turns ozzo validation errors into a rich validation error that still
// unwraps to the field map.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, validationSummary(err)).
		WithTextCode(TextCodeValidationFailure).
		WithCode(goerrors.CodeBadRequest)
}

func validationSummary(err error) string {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for field, ferr := range verrs {
			if ferr != nil {
				msgs = append(msgs, field+": "+ferr.Error())
			}
		}
		if len(msgs) == 1 {
			return msgs[0]
		}
		if len(msgs) > 1 {
			return "Please correct the highlighted fields."
		}
	}
	return err.Error()
}

func validationFields(err error) map[string]string {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for field, ferr := range verrs {
		if ferr != nil {
			fields[strings.ToLower(field)] = ferr.Error()
		}
	}
	return fields
}
