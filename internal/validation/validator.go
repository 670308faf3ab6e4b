package validation

import (
	"errors"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a validator with the struct-level rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterStructValidation(registerStructValidation, RegisterRequest{})
	v.RegisterStructValidation(productStructValidation, ProductRequest{})

	return v
}

// registerStructValidation requires the confirmation to match the password.
func registerStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(RegisterRequest)

	if req.Password != "" && req.ConfirmPassword != "" && req.Password != req.ConfirmPassword {
		sl.ReportError(req.ConfirmPassword, "confirm", "ConfirmPassword", "eqfield_password", "")
	}
}

func productStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(ProductRequest)

	if req.Price.IsNegative() {
		sl.ReportError(req.Price, "price", "Price", "gte_zero", "")
	}
}

// messages maps "Struct.Field/tag" to the text shown to the user.
var messages = map[string]string{
	"RegisterRequest.Password/min":                     "Password must be at least 8 characters.",
	"RegisterRequest.ConfirmPassword/eqfield_password": "Passwords do not match",
	"RegisterRequest.Username/max":                     "Username must be at most 150 characters.",
	"LoginRequest.Username/required":                   "invalid username or password",
	"LoginRequest.Password/required":                   "invalid username or password",
	"ReviewRequest.Rating/min":                         "Rating must be between 1 and 5.",
	"ReviewRequest.Rating/max":                         "Rating must be between 1 and 5.",
	"ReviewRequest.Comment/max":                        "Comment is too long.",
	"ProductRequest.Price/gte_zero":                    "Price must not be negative.",
}

// Messages turns validation errors into user-facing strings, in field order.
// A missing required field on registration collapses into a single message.
func Messages(err error) []string {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}

	out := make([]string, 0, len(ve))
	seen := map[string]bool{}
	for _, fe := range ve {
		msg := message(fe)
		if seen[msg] {
			continue
		}
		seen[msg] = true
		out = append(out, msg)
	}
	return out
}

// FirstMessage returns the message a form should show: a missing field wins
// over any other problem.
func FirstMessage(err error) string {
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if fe.Tag() == "required" {
				return message(fe)
			}
		}
	}

	msgs := Messages(err)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0]
}

func message(fe validatorv10.FieldError) string {
	if msg, ok := messages[fe.StructNamespace()+"/"+fe.Tag()]; ok {
		return msg
	}
	if fe.Tag() == "required" {
		return "All fields are required."
	}
	return fe.Field() + " is invalid."
}
