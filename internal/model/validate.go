package model

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a non-empty list of field errors.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return strings.Join(parts, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator. Field names are taken
// from json tags so messages match what clients send.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Validate runs struct tag validation on v and returns the failures as a
// list. A nil result means v is valid.
func Validate(v any) []FieldError {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "body", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe), Message: describe(fe)})
	}
	return out
}

// Validate checks the account invariants that do not depend on the
// store. When requireAddress is set the address lines, city and pincode
// must all be present.
func (a *Account) Validate(requireAddress bool) []FieldError {
	var errs []FieldError
	add := func(field, msg string) { errs = append(errs, FieldError{Field: field, Message: msg}) }

	if strings.TrimSpace(a.Name.First) == "" {
		add("name.fName", "name.fName is required")
	}
	if strings.TrimSpace(a.Name.Last) == "" {
		add("name.lName", "name.lName is required")
	}
	if a.Contact < MinContact || a.Contact > MaxContact {
		add("contact", fmt.Sprintf("contact must be between %d and %d", MinContact, MaxContact))
	}
	if !a.Role.Valid() {
		add("role", "role must be one of [S A O]")
	}
	if a.PasswordHash == "" {
		add("password", "password is required")
	}
	if a.MaxBalance < 0 {
		add("maxBalance", "maxBalance must be greater than or equal to 0")
	}
	for _, p := range a.AcceptsPaymentType {
		if !p.Valid() {
			add("acceptsPaymentType", fmt.Sprintf("unknown payment type %q", p))
		}
	}
	if a.Address.Pincode != 0 && (a.Address.Pincode < MinPincode || a.Address.Pincode > MaxPincode) {
		add("address.pincode", "address.pincode must be a 6 digit number")
	}
	if requireAddress {
		if a.Address.Line1 == "" {
			add("address.l1", "address.l1 is required")
		}
		if a.Address.Line2 == "" {
			add("address.l2", "address.l2 is required")
		}
		if a.Address.City == nil {
			add("address.city", "address.city is required")
		}
		if a.Address.Pincode == 0 {
			add("address.pincode", "address.pincode is required")
		}
	}
	return errs
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "mongodb":
		return fmt.Sprintf("%s must be a valid id", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	}
	return fmt.Sprintf("%s failed on %s", field, fe.Tag())
}
