package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-queue-orderflow/internal/orders"
)

// New returns a configured validator with the custom tags registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// report fields by their json names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// order_status accepts only the closed set of order statuses.
	_ = v.RegisterValidation("order_status", orderStatusValidation)

	return v
}

func orderStatusValidation(fl validatorv10.FieldLevel) bool {
	_, err := orders.ParseStatus(fl.Field().String())
	return err == nil
}
