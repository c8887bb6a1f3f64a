package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// registerSingleLine adds the "singleline" tag. Values written on one labelled line of a text
// record must not carry line breaks.
func registerSingleLine(v *validator.Validate) {
	v.RegisterValidation("singleline", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), "\r\n")
	})
}
