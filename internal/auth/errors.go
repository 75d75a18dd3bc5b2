package auth

import (
	"errors"
	"fmt"

	"tiquetera/internal/api"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidToken     = errors.New("invalid or expired verification token")
	ErrUserNotFound     = errors.New("user not found")
	ErrTooManyAttempts  = errors.New("too many attempts, try again later")
	ErrNotAuthenticated = errors.New("not logged in")
)

// FieldError is a rejected form field with a message for the user.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return e.Err }

// registrationFieldOrder is the order in which a rejected registration
// picks the message it shows.
var registrationFieldOrder = []string{
	"email", "username", "password", "first_name", "last_name",
	"department", "city", "document", "phone", "birth_date",
	"department_text", "city_text", "password_confirm",
}

// registrationError surfaces the first field error of a rejected
// registration, falling back to the general message.
func registrationError(err error) error {
	var se *api.StatusError
	if !errors.As(err, &se) {
		return err
	}
	for _, field := range registrationFieldOrder {
		if msg := se.FieldMessage(field); msg != "" {
			return &FieldError{Field: field, Message: msg, Err: err}
		}
	}
	msg := se.Message
	if msg == "" {
		msg = "Error al registrarse"
	}
	return &FieldError{Message: msg, Err: err}
}

// validationMessages are shown for client side checks, keyed by field
// and tag.
var validationMessages = map[string]string{
	"email.required":                  "Email es requerido",
	"email.email":                     "Email inválido",
	"username.required":               "Usuario es requerido",
	"first_name.required":             "Primer nombre es requerido",
	"last_name.required":              "Apellido es requerido",
	"department.required_if":          "Departamento es requerido",
	"city.required_if":                "Ciudad es requerida",
	"department_text.required_unless": "Departamento es requerido",
	"city_text.required_unless":       "Ciudad es requerida",
	"password.required":               "Contraseña es requerida",
	"password.min":                    "Contraseña debe tener al menos 8 caracteres",
	"password_confirm.required":       "Confirma tu contraseña",
	"password_confirm.eqfield":        "Las contraseñas no coinciden",
}

// validationError turns the first validator failure into a FieldError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fe := verrs[0]
	msg, ok := validationMessages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = fmt.Sprintf("%s inválido", fe.Field())
	}
	return &FieldError{Field: fe.Field(), Message: msg, Err: ErrInvalidInput}
}

// UserMessage returns the text to show for an auth failure.
func UserMessage(err error) string {
	var fe *FieldError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		return fe.Message
	case errors.Is(err, ErrInvalidToken):
		return "Token inválido o expirado"
	case errors.Is(err, ErrUserNotFound):
		return "Usuario no encontrado"
	case errors.Is(err, ErrTooManyAttempts):
		return "Demasiados intentos. Intenta más tarde."
	case errors.Is(err, ErrNotAuthenticated):
		return "Inicia sesión para continuar"
	case errors.Is(err, api.ErrNetwork):
		return "No se pudo conectar con el servidor"
	}
	var se *api.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}
