package dto

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/quaykit/identity-service/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// validateStruct runs tag validation and converts the first failure into a
// domain error so transport responses stay uniform.
func validateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return domain.ErrInvalidJSON(err)
	}

	fe := verrs[0]
	field := jsonFieldName(fe)

	switch fe.Tag() {
	case "required":
		return domain.ErrMissingField(field)
	case "email":
		return domain.ErrInvalidField(field, "invalid format")
	case "min":
		return domain.ErrInvalidField(field, fmt.Sprintf("must be at least %s characters", fe.Param()))
	case "max":
		return domain.ErrInvalidField(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
	default:
		return domain.ErrInvalidField(field, "invalid value")
	}
}

// jsonFieldName lowercases the struct field into its wire name.
func jsonFieldName(fe validator.FieldError) string {
	field := fe.Field()
	switch field {
	case "Email":
		return "email"
	case "Password":
		return "password"
	case "ConfirmPassword":
		return "confirm_password"
	case "Name":
		return "name"
	case "Token":
		return "token"
	case "NewPassword":
		return "new_password"
	case "ConfirmNewPassword":
		return "confirm_new_password"
	default:
		return strings.ToLower(field)
	}
}
