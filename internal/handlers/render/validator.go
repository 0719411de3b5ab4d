package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("msisdn", validateMSISDN)
	validate.RegisterTagNameFunc(useJSONTagNames)

	return validate
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// validateMSISDN accepts phone numbers in international format as the gateway
// expects them: digits only, optional leading '+', 10 to 15 digits
func validateMSISDN(fl validator.FieldLevel) bool {
	number := strings.TrimPrefix(fl.Field().String(), "+")

	if len(number) < 10 || len(number) > 15 {
		return false
	}

	for i := 0; i < len(number); i++ {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
	}

	return true
}
