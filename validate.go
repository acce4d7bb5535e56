package go24so

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()

	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("go24so: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	// Report field names as their JSON keys so validation messages match
	// the wire format.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks the model against its declared validate tags. Failures
// come back as a KindValidation *APIError listing the offending fields, so
// bad payloads are rejected before any network call.
func Validate(val any) error {
	err := validate.Struct(val)
	if err == nil {
		return nil
	}

	verrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return &APIError{Kind: KindValidation, Message: "payload validation failed", Cause: err}
	}

	fields := make([]string, 0, len(verrors))
	for _, verror := range verrors {
		fields = append(fields, verror.Field()+": "+verror.Translate(translator))
	}

	return &APIError{
		Kind:    KindValidation,
		Message: strings.Join(fields, "; "),
	}
}
