package forms

import (
	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	es_translations "github.com/go-playground/validator/v10/translations/es"
	"github.com/planificaia/aliada/internal/errors"
	"log/slog"
	"net/url"
	"reflect"
	"strings"
)

// custom validation tags
const (
	notBlankTag = "notblank"
	eqFieldTag  = "eqfield"
)

// Errors maps struct field names to Spanish messages ready to show next to the input.
type Errors map[string]string

// Validator checks submitted forms and explains failures in Spanish.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() (*Validator, error) {
	validate := validator.New()

	_es := es.New()
	uni := ut.New(_es, _es)
	translator, _ := uni.GetTranslator("es")
	if err := es_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		return nil, errors.Wrap(err, "register spanish translations")
	}

	// Messages name fields by their visible label instead of the Go field name.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})

	if err := validate.RegisterValidation(notBlankTag, notBlank); err != nil {
		return nil, errors.Wrap(err, "register notblank")
	}

	// A RegisterTranslationsFunc is required, but the message is produced by translateCustom so a noop is passed.
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, eqFieldTag} {
		if err := validate.RegisterTranslation(tag, translator, registerFn, translateCustom); err != nil {
			return nil, errors.Wrap(err, "register translation", slog.String("tag", tag))
		}
	}

	return &Validator{validate: validate, translator: translator}, nil
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " no puede estar vacío"
	case eqFieldTag:
		return "Las contraseñas no coinciden"
	default:
		return ""
	}
}

func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// Check validates form and returns nil when it is valid.
func (v *Validator) Check(form any) (Errors, error) {
	err := v.validate.Struct(form)
	if err == nil {
		return nil, nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, errors.Wrap(err, "validate form")
	}
	fieldErrors := make(Errors, len(validationErrors))
	for _, fe := range validationErrors {
		if _, seen := fieldErrors[fe.StructField()]; seen {
			continue
		}
		fieldErrors[fe.StructField()] = fe.Translate(v.translator)
	}
	return fieldErrors, nil
}

// Register is the account creation form. Nothing is stored; a valid form continues to the onboarding.
type Register struct {
	FirstName       string `label:"Nombre" validate:"notblank,max=80"`
	LastName        string `label:"Apellido" validate:"notblank,max=80"`
	Email           string `label:"Correo electrónico" validate:"required,email"`
	EducationLevel  string `label:"Nivel educativo" validate:"required,oneof=inicial primaria secundaria superior especial"`
	InstitutionType string `label:"Tipo de establecimiento" validate:"required,oneof=publico privado concertado online"`
	Password        string `label:"Contraseña" validate:"required,min=8"`
	ConfirmPassword string `label:"Confirmar contraseña" validate:"required,eqfield=Password"`
}

func RegisterFromValues(values url.Values) Register {
	return Register{
		FirstName:       strings.TrimSpace(values.Get("firstName")),
		LastName:        strings.TrimSpace(values.Get("lastName")),
		Email:           strings.TrimSpace(values.Get("email")),
		EducationLevel:  values.Get("educationLevel"),
		InstitutionType: values.Get("institutionType"),
		Password:        values.Get("password"),
		ConfirmPassword: values.Get("confirmPassword"),
	}
}

// Login is the sign-in form. There are no accounts, so any well-formed credentials are accepted.
type Login struct {
	Email    string `label:"Correo electrónico" validate:"required,email"`
	Password string `label:"Contraseña" validate:"required"`
}

func LoginFromValues(values url.Values) Login {
	return Login{
		Email:    strings.TrimSpace(values.Get("email")),
		Password: values.Get("password"),
	}
}
