package response

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// RespondJSON writes data as the whole body.
func RespondJSON(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// RespondMessage writes {"message": ...} with optional data.
func RespondMessage(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, MessageBody{Message: message, Data: data})
}

// RespondDetail writes {"detail": ...}.
func RespondDetail(c *gin.Context, code int, detail string) {
	c.JSON(code, ErrorBody{Detail: detail})
}

// RespondFieldErrors writes one key per field, each holding its messages.
func RespondFieldErrors(c *gin.Context, code int, fields map[string][]string) {
	c.JSON(code, fields)
}

// AbortDetail writes a detail body and stops the handler chain.
func AbortDetail(c *gin.Context, code int, detail string) {
	RespondDetail(c, code, detail)
	c.Abort()
}

// RespondBindError turns a binding or validation failure into field
// errors. Non-validation failures become a detail message.
func RespondBindError(c *gin.Context, code int, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		RespondDetail(c, code, "JSON inválido: "+err.Error())
		return
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fieldName(fe)
		fields[name] = append(fields[name], validationMessage(fe))
	}
	RespondFieldErrors(c, code, fields)
}

func fieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return strings.ToLower(fe.StructField())
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return "Este campo es requerido."
	case "email":
		return "Introduzca una dirección de correo electrónico válida."
	case "min":
		return "Asegúrese de que este campo tenga al menos " + fe.Param() + " caracteres."
	case "gte", "gt":
		return "Asegúrese de que este valor sea mayor o igual a " + fe.Param() + "."
	case "eqfield":
		return "Las contraseñas no coinciden."
	default:
		return "Valor inválido."
	}
}
