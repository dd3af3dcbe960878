package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// mailboxPattern is a deliberately loose address shape check: local@domain.tld.
var mailboxPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

func init() {
	_ = v.RegisterValidation("mailbox", func(fl validator.FieldLevel) bool {
		return mailboxPattern.MatchString(fl.Field().String())
	})
}

// FieldError describes one failed rule.
type FieldError struct {
	Field string
	Tag   string
}

// Errors is returned by Struct when at least one rule fails.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field, fe.Tag))
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether any field failed the given tag.
func (e Errors) Has(tag string) bool {
	for _, fe := range e {
		if fe.Tag == tag {
			return true
		}
	}
	return false
}

// Struct validates the given struct using its validate tags.
// Returns Errors for rule failures, any other error as-is, or nil.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := make(Errors, 0, len(ve))
	for _, fe := range ve {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag()})
	}
	return out
}

// Failed reports whether err is a validation failure on tag.
func Failed(err error, tag string) bool {
	var ve Errors
	return errors.As(err, &ve) && ve.Has(tag)
}

// Email reports whether s has a plausible mailbox shape.
func Email(s string) bool {
	return mailboxPattern.MatchString(s)
}
