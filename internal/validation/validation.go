package validation

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

var (
	once     sync.Once
	validate *validator.Validate
)

// Get returns the shared validator with the storefront's custom tags registered.
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("isodate", ValidateISODate)
		_ = validate.RegisterValidation("gmapsurl", ValidateGoogleMapsURL)
	})
	return validate
}

// ValidateISODate accepts YYYY-MM-DD strings.
func ValidateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

// ValidateGoogleMapsURL accepts https links on google maps hosts.
func ValidateGoogleMapsURL(fl validator.FieldLevel) bool {
	return IsGoogleMapsURL(fl.Field().String())
}

func IsGoogleMapsURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "maps.app.goo.gl", host == "goo.gl" && strings.HasPrefix(u.Path, "/maps"):
		return true
	case host == "maps.google.com":
		return true
	case strings.HasPrefix(host, "www.google.") || strings.HasPrefix(host, "google."):
		return strings.HasPrefix(u.Path, "/maps")
	}
	return false
}

// IsISODate is the non-struct form of the isodate tag.
func IsISODate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Struct validates v and flattens failures into field -> messages, the shape
// forms render next to their inputs.
func Struct(v any) map[string][]string {
	err := Get().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string][]string{"general": {err.Error()}}
	}
	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = append(out[fe.Field()], message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Please enter a valid email address"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "e164":
		return "Please enter a phone number in international format"
	case "isodate":
		return "Please pick a valid date"
	case "gmapsurl":
		return "Not a Google Maps link"
	case "gte", "gt":
		return "Must be greater than " + fe.Param()
	}
	return "Invalid value"
}
