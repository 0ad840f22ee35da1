package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
)

// Bulk payment uploads are the largest bodies the API accepts.
const maxBodyBytes = 1 << 20

var validate = func() *validator.Validate {
	v := validator.New()
	// report fields by their json name so details match the request
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}()

// DecodeJSONBody decodes exactly one JSON document into dest, rejecting
// unknown fields, then runs struct validation. Every failure is a
// CodeValidation error whose details name the offending fields.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid request body").
			WithDetails(map[string]any{"error": "body must hold a single JSON object"})
	}
	if err := validate.Struct(dest); err != nil {
		return validationError(err)
	}
	return nil
}

func decodeError(err error) error {
	var (
		tooLarge *http.MaxBytesError
		typeErr  *json.UnmarshalTypeError
		syntax   *json.SyntaxError
	)
	detail := err.Error()
	switch {
	case errors.Is(err, io.EOF):
		detail = "body is empty"
	case errors.Is(err, io.ErrUnexpectedEOF):
		detail = "malformed JSON: body ends early"
	case errors.As(err, &tooLarge):
		detail = fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit)
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
				WithDetails(map[string]string{typeErr.Field: "must be a " + typeErr.Type.String()})
		}
	case errors.As(err, &syntax):
		detail = fmt.Sprintf("malformed JSON at offset %d", syntax.Offset)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
		WithDetails(map[string]any{"error": detail})
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fieldPath(fe)] = describe(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

// fieldPath drops the root struct name: "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	p := fe.Param()
	unit := ""
	switch fe.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice, reflect.Map:
		unit = " items"
	}
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + p + unit
	case "max", "lte":
		return "must be at most " + p + unit
	case "gt":
		return "must be greater than " + p
	case "oneof":
		return "must be one of [" + p + "]"
	case "email":
		return "must be an email address"
	case "uuid", "uuid4":
		return "must be a UUID"
	}
	return "is invalid"
}
