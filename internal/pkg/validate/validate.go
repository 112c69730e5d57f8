package validate

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-shop-nosql/internal/domain"
)

// PasswordSymbols is the punctuation set a password must draw at least one symbol from.
const PasswordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

func init() {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return Password(fl.Field().String())
	})
}

// Password reports whether p satisfies the password policy: at least 8
// characters with an uppercase letter, a digit and a symbol.
func Password(p string) bool {
	if len(p) < 8 || len(p) > 72 {
		return false
	}
	var upper, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	return upper && digit && symbol
}

// Struct validates the given struct using its validate tags.
// Returns a *domain.ValidationError listing every failing field, or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		issues := make([]domain.FieldIssue, 0, len(ve))
		for _, fe := range ve {
			issues = append(issues, domain.FieldIssue{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
		return domain.NewValidationError("invalid payload", issues...)
	}
	return nil
}
