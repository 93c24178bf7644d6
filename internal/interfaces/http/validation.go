package http

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/endmill-ledger/internal/application/dto"
)

// newValidator usa el nombre JSON (o query) del campo en los mensajes.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// bindBody parsea el body JSON y lo valida. Devuelve nil si todo está bien.
func bindBody(c *fiber.Ctx, v *validator.Validate, obj any) *dto.ErrorResponse {
	if err := c.BodyParser(obj); err != nil {
		e := dto.NewError("INVALID_BODY", "cuerpo inválido")
		return &e
	}
	return validateStruct(v, obj)
}

// bindQuery parsea los query params y los valida.
func bindQuery(c *fiber.Ctx, v *validator.Validate, obj any) *dto.ErrorResponse {
	if err := c.QueryParser(obj); err != nil {
		e := dto.NewError("INVALID_QUERY", "parámetros inválidos")
		return &e
	}
	return validateStruct(v, obj)
}

func validateStruct(v *validator.Validate, obj any) *dto.ErrorResponse {
	err := v.Struct(obj)
	if err == nil {
		return nil
	}
	e := dto.NewError("VALIDATION", "datos inválidos")
	if verrs, ok := err.(validator.ValidationErrors); ok {
		e.Fields = make(map[string]string, len(verrs))
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msg := fieldMessage(fe)
			e.Fields[fe.Field()] = msg
			msgs = append(msgs, msg)
		}
		e.Error = strings.Join(msgs, "; ")
	}
	return &e
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s es requerido", field)
	case "gt":
		return fmt.Sprintf("%s debe ser mayor a %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s debe ser mayor o igual a %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s admite como máximo %s caracteres", field, fe.Param())
		}
		return fmt.Sprintf("%s debe ser menor o igual a %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s debe ser mayor o igual a %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s debe ser uno de: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s es inválido", field)
	}
}
