// Package validate wraps a singleton go-playground validator with english
// messages and project error mapping
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	perr "docmend/internal/platform/errors"
	"docmend/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Svc holds the validator and translator
type Svc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	once sync.Once
	svc  *Svc
)

// collection ids: no path separators or NUL, 1..1500 bytes; "__" prefixes are reserved
var collectionRe = regexp.MustCompile(`^[^/\x00]{1,1500}$`)

// sql identifiers we are willing to interpolate into DDL
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Get returns the validator singleton, initializing on first use
func Get() *Svc {
	once.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// prefer flag, then env tag names in messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, key := range []string{"flag", "env"} {
				tag := fld.Tag.Get(key)
				if idx := strings.Index(tag, ","); idx >= 0 {
					tag = tag[:idx]
				}
				if tag != "" && tag != "-" {
					return tag
				}
			}
			return fld.Name
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		registerShort(v, trans, "min", "{0} must be at least {1}")
		registerShort(v, trans, "max", "{0} must be at most {1}")

		_ = v.RegisterValidation("collection", isCollection)
		registerShort(v, trans, "collection", "{0} is not a valid collection name")

		_ = v.RegisterValidation("ident", func(fl validator.FieldLevel) bool { return Ident(fl.Field().String()) })
		registerShort(v, trans, "ident", "{0} must be a plain sql identifier")

		svc = &Svc{Validator: v, Translator: trans}
	})
	return svc
}

// Struct validates s and maps the first failure to a validation error carrying the field name
func Struct(s any) error {
	err := Get().Validator.Struct(s)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		logger.Get().Error().Err(inv).Msg("validator internal error")
		return perr.Wrap(inv, perr.ErrorCodeUnknown, "validation error")
	}
	field, msg := FieldAndMessage(err)
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", msg), field)
}

// FieldAndMessage returns the first field and translated message
func FieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			return fe.Field(), fe.Translate(Get().Translator)
		}
	}
	return "", err.Error()
}

// Ident reports whether s is a plain unquoted sql identifier
func Ident(s string) bool { return identRe.MatchString(s) }

// Collection reports whether s is a usable collection name
func Collection(s string) bool {
	return collectionRe.MatchString(s) && !strings.HasPrefix(s, "__") && s != "." && s != ".."
}

func isCollection(fl validator.FieldLevel) bool { return Collection(fl.Field().String()) }

func registerShort(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}
