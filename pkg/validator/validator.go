package validator

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// Validator checks request structs and reports every failing field.
type Validator interface {
	// Validate returns nil or the list of "field: message" violations.
	Validate(obj interface{}) []string
}

type validate struct {
	v        *validator.Validate
	now      func() time.Time
	location *time.Location
}

// messages maps "<struct>.<field>.<tag>" to the text reported to the client.
var messages = map[string]string{
	"PrescriptionRequest.PrescriptionDate.required":  "Prescription date is required",
	"PrescriptionRequest.PrescriptionDate.notfuture": "Prescription date cannot be in the future",
	"PrescriptionRequest.PatientName.notblank":       "Patient name is required",
	"PrescriptionRequest.PatientName.max":            "Patient name must not exceed 100 characters",
	"PrescriptionRequest.PatientAge.required":        "Patient age is required",
	"PrescriptionRequest.PatientAge.min":             "Patient age must be at least 0",
	"PrescriptionRequest.PatientAge.max":             "Patient age must not exceed 150",
	"PrescriptionRequest.PatientGender.required":     "Patient gender is required",
	"PrescriptionRequest.PatientGender.oneof":        "Gender must be MALE, FEMALE, or OTHER",
	"PrescriptionRequest.Diagnosis.max":              "Diagnosis must not exceed 2000 characters",
	"PrescriptionRequest.Medicines.max":              "Medicines must not exceed 2000 characters",
	"RegisterRequest.Username.min":                   "Username must be at least 3 characters",
	"RegisterRequest.Password.min":                   "Password must be at least 6 characters",
	"RegisterRequest.Email.email":                    "Email must be a valid address",
}

// New builds a validator. now and loc define "today" for the notfuture rule.
func New(now func() time.Time, loc *time.Location) Validator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(model.Date); ok {
			return d.Time
		}
		return nil
	}, model.Date{})

	val := &validate{v: v, now: now, location: loc}

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("notfuture", val.notFuture)

	return val
}

// notFuture accepts dates up to and including today in the configured zone.
func (val *validate) notFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !model.DateOf(t).After(model.Today(val.now(), val.location))
}

// Validate runs every rule on obj and reports each failure as "field: message",
// in struct field order.
func (val *validate) Validate(obj interface{}) []string {
	err := val.v.Struct(obj)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	out := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, fmt.Sprintf("%s: %s", fe.Field(), message(fe)))
	}
	return out
}

// message looks up the client text for fe by "<struct>.<field>.<tag>" and
// falls back to a generic phrase per tag.
func message(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	key := ns[strings.LastIndex(ns[:strings.LastIndex(ns, ".")], ".")+1:] + "." + fe.Tag()
	if msg, ok := messages[key]; ok {
		return msg
	}

	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must not exceed " + fe.Param()
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}
