// Package validation checks request DTOs with struct tags and converts failures into
// INVALID_INPUT domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// requests reports fields by their JSON names
var requests = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Decimals are checked as their string form
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	if err := v.RegisterValidation("scale", withinScale); err != nil {
		panic(err)
	}
	return v
}()

// withinScale accepts decimals with at most param digits after the point, the
// precision of the numeric columns they are stored in
func withinScale(fl validator.FieldLevel) bool {
	places, err := strconv.ParseInt(fl.Param(), 10, 32)
	if err != nil {
		return false
	}
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.Equal(d.Truncate(int32(places)))
}

// Struct validates a request and returns an INVALID_INPUT error describing every failing field
func Struct(req any) error {
	err := requests.Struct(req)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}

	messages := make([]string, 0, len(fields))
	for _, e := range fields {
		messages = append(messages, fieldPath(e)+" "+message(e))
	}
	return shared.NewDomainError(shared.CodeInvalidInput, "Request validation failed: "+strings.Join(messages, "; "))
}

var ruleText = map[string]string{
	"required": "is required",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"len":      "must have length %s",
	"oneof":    "must be one of [%s]",
	"gte":      "must be >= %s",
	"gt":       "must be > %s",
	"lte":      "must be <= %s",
	"lt":       "must be < %s",
	"uuid":     "must be a uuid",
	"scale":    "must have at most %s decimal places",
}

// message renders one failed rule. Length rules on strings count characters.
func message(e validator.FieldError) string {
	text, ok := ruleText[e.Tag()]
	if !ok {
		return "fails " + e.Tag()
	}
	if strings.Contains(text, "%s") {
		text = fmt.Sprintf(text, e.Param())
	}
	if (e.Tag() == "min" || e.Tag() == "max") && e.Kind() == reflect.String {
		text += " characters"
	}
	return text
}

// fieldPath is the JSON path of the failing field below the request, e.g. stages[1].name
func fieldPath(e validator.FieldError) string {
	if _, path, ok := strings.Cut(e.Namespace(), "."); ok {
		return path
	}
	return e.Field()
}
