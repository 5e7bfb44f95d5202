package session

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate  = newValidator()
	sanitizer = bluemonday.StrictPolicy()

	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,}$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("sessionid", func(fl validator.FieldLevel) bool {
		return ValidID(fl.Field().String())
	})

	return v
}

// Validate runs the structural check applied to every record read back
// from the store.
func (s Session) Validate() error {
	return validationError("invalid session", "", validate.Struct(s))
}

func (p PersonalInfo) Validate() error {
	return validationError("invalid personal info", "", validate.Struct(p))
}

func (p PlanSelection) Validate() error {
	return validationError("invalid plan selection", "", validate.Struct(p))
}

func (a Addons) Validate() error {
	err := validate.Var([]string(a), "dive,oneof=customizable_profile larger_storage online_services")
	return validationError("invalid addons", "addons", err)
}

// NormalizePersonalInfo sanitizes and normalizes raw input, then validates
// the result so that whatever is stored also passes Validate on read.
func NormalizePersonalInfo(in PersonalInfo) (PersonalInfo, error) {
	out := PersonalInfo{
		Name:  SanitizeName(in.Name),
		Email: NormalizeEmail(in.Email),
		Phone: NormalizePhone(in.Phone),
	}
	if err := out.Validate(); err != nil {
		return PersonalInfo{}, err
	}
	return out, nil
}

// SanitizeName strips all markup and surrounding whitespace. The result
// is plain text: entities the sanitizer emits are decoded again.
func SanitizeName(name string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(name)))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps digits and a single leading "+".
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	var b strings.Builder
	if strings.HasPrefix(phone, "+") {
		b.WriteByte('+')
	}
	for _, r := range phone {
		if unicode.IsDigit(r) && r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validationError converts validator output into a KindValidationFailed
// error. root names the value for Var checks, whose namespace is empty.
func validationError(msg, root string, err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return WrapError(KindValidationFailed, msg, err)
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, describe(root, fe))
	}
	return NewError(KindValidationFailed, msg, details...)
}

func describe(root string, fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	if field == "" || strings.HasPrefix(field, "[") {
		if root == "" {
			root = "value"
		}
		field = root + field
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "phone":
		return field + " must contain at least 10 digits and an optional leading +"
	case "sessionid":
		return field + " must be a 21 character session id"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
