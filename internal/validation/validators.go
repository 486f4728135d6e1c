package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/scanwise/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("gender", validateGender); err != nil {
		panic(fmt.Sprintf("failed to register gender validator: %v", err))
	}
}

// validateGender validates that a string is a valid Gender enum value.
// The unset value is structurally valid; completeness is a separate concern.
func validateGender(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.Gender(value) {
	case models.GenderMale, models.GenderFemale, models.GenderOther, models.GenderUnset:
		return true
	default:
		return false
	}
}

// ValidateGender validates a Gender string value
func ValidateGender(value string) error {
	switch models.Gender(value) {
	case models.GenderMale, models.GenderFemale, models.GenderOther, models.GenderUnset:
		return nil
	default:
		return fmt.Errorf("invalid gender: %s (must be 'male', 'female', 'other', or empty)", value)
	}
}

// SanitizeText sanitizes free-form text input by trimming whitespace and
// removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
