package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

var errTrailingData = errors.New("request body must only contain a single JSON object")

// Validator validates request DTOs. Decimal fields are compared as numbers,
// so tags like `gt=0` work on amounts.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that understands decimal.Decimal
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	v.RegisterTagNameFunc(jsonFieldName)
	return &Validator{validate: v}
}

// Struct validates s against its `validate` tags
func (v *Validator) Struct(s any) error {
	return v.validate.Struct(s)
}

func decimalValue(field reflect.Value) any {
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return f
}

// jsonFieldName reports validation failures under the client's field names
func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

// decodeJSON reads exactly one JSON object into dst, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errTrailingData
	}
	return nil
}
