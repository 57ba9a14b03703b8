package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"admissions-crm/models"

	"github.com/go-playground/validator/v10"
)

// Email and phone regex patterns
var (
	EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	PhoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// LeadValidationRules contains validation configuration
type LeadValidationRules struct {
	MaxNameLength      int
	MaxEducationLength int
}

// DefaultValidationRules provides default validation constraints
var DefaultValidationRules = LeadValidationRules{
	MaxNameLength:      100,
	MaxEducationLength: 200,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return PhoneRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("lead_source", func(fl validator.FieldLevel) bool {
		return ValidateLeadSource(fl.Field().String()) == nil
	})
	return v
}

// ValidateStruct runs the struct's validate tags and flattens the failures
// into one readable error.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "invalid email format"
	case "phone":
		return "invalid phone format (use E.164 format, e.g., +919876543210)"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ValidateLead validates all lead fields and returns the first error.
func ValidateLead(lead *models.Lead) error {
	if err := ValidateName(lead.Name); err != nil {
		return err
	}
	if err := ValidateEmail(lead.Email); err != nil {
		return err
	}
	if err := ValidatePhone(lead.Phone); err != nil {
		return err
	}
	if err := ValidateEducation(lead.Education); err != nil {
		return err
	}
	return ValidateLeadSource(lead.LeadSource)
}

// ValidateEmail checks if email format is valid
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !EmailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePhone checks if phone is in E.164 format
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("phone is required")
	}
	if !PhoneRegex.MatchString(phone) {
		return fmt.Errorf("invalid phone format (use E.164 format, e.g., +919876543210)")
	}
	return nil
}

// ValidateName checks if name meets requirements
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > DefaultValidationRules.MaxNameLength {
		return fmt.Errorf("name must be less than %d characters", DefaultValidationRules.MaxNameLength)
	}
	return nil
}

// ValidateEducation checks if education meets requirements
func ValidateEducation(education string) error {
	if education != "" && len(education) > DefaultValidationRules.MaxEducationLength {
		return fmt.Errorf("education must be less than %d characters", DefaultValidationRules.MaxEducationLength)
	}
	return nil
}

// ValidateLeadSource checks if lead source is valid. Empty is allowed.
func ValidateLeadSource(leadSource string) error {
	switch leadSource {
	case "", SourceWebsite, SourceReferral, SourceCampaign, SourceWalkIn, SourceFacebookAds, SourceGoogleAds:
		return nil
	}
	return fmt.Errorf("invalid lead source: %s", leadSource)
}
