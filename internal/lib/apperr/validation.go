package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// FromValidation переводит ошибку validator в ошибку валидации с
// человекочитаемым текстом. Прочие ошибки возвращаются как есть.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}

	var msgs []string
	for _, fe := range errs {
		field := strings.ToLower(fe.Field())
		switch fe.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is a required field", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s must be at most %s", field, fe.Param()))
		case "url":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid url", field))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("field %s can contain only uuid", field))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", field))
		}
	}
	return Validation(strings.Join(msgs, ", "))
}
