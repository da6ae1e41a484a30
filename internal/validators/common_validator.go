package validators

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"storefront/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validation functions
	validate.RegisterValidation("object_id", validateObjectID)
	validate.RegisterValidation("referral_code", validateReferralCodeTag)
	validate.RegisterValidation("currency_code", validateCurrencyCode)
	validate.RegisterValidation("coupon_type", validateCouponType)
	validate.RegisterValidation("event_type", validateEventType)
	validate.RegisterValidation("referral_source", validateReferralSource)
	validate.RegisterValidation("money", validateMoney)
}

// Common validation errors
var (
	ErrInvalidObjectID     = errors.New("invalid object ID format")
	ErrInvalidReferralCode = errors.New("referral code must be 4-12 characters of letters, digits or hyphens")
	ErrInvalidCurrency     = errors.New("invalid currency code")
)

var (
	referralCodePattern = regexp.MustCompile(`^[A-Za-z0-9-]{4,12}$`)
	currencyPattern     = regexp.MustCompile(`^[A-Z]{3}$`)
)

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Details flattens the list into the response envelope's field map.
func (v ValidationErrors) Details() map[string]string {
	details := make(map[string]string, len(v))
	for _, err := range v {
		if _, seen := details[err.Field]; !seen {
			details[err.Field] = err.Message
		}
	}
	return details
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return ValidationErrors{{Field: "request", Tag: "invalid", Message: err.Error()}}
		}
		for _, fe := range fieldErrors {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fe.Field(),
				Tag:     fe.Tag(),
				Value:   fmt.Sprintf("%v", fe.Value()),
				Message: getErrorMessage(fe),
			})
		}
	}

	return validationErrors
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "object_id":
		return "Invalid ID format"
	case "referral_code":
		return ErrInvalidReferralCode.Error()
	case "currency_code":
		return "Invalid currency code"
	case "coupon_type":
		return "Coupon type must be percentage or fixed"
	case "event_type":
		return "Event type must be one of click, view, signup, purchase"
	case "referral_source":
		return "Source must be one of link, manual, checkout"
	case "money":
		return "Amount must have at most two decimal places"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

// Custom validation functions
func validateObjectID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let required tag handle empty values
	}
	_, err := primitive.ObjectIDFromHex(value)
	return err == nil
}

func validateReferralCodeTag(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if code == "" {
		return true
	}
	return IsValidReferralCode(code)
}

func validateCurrencyCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if code == "" {
		return true
	}
	return currencyPattern.MatchString(code)
}

func validateCouponType(fl validator.FieldLevel) bool {
	return models.CouponType(fl.Field().String()).IsValid()
}

func validateEventType(fl validator.FieldLevel) bool {
	return models.ReferralEventType(fl.Field().String()).IsValid()
}

func validateReferralSource(fl validator.FieldLevel) bool {
	source := fl.Field().String()
	if source == "" {
		return true
	}
	return models.ReferralSource(source).IsValid()
}

func validateMoney(fl validator.FieldLevel) bool {
	amount := decimal.NewFromFloat(fl.Field().Float())
	return amount.Equal(amount.Round(2))
}

func IsValidObjectID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

// IsValidReferralCode checks length and charset only. Case is normalized by
// the caller.
func IsValidReferralCode(code string) bool {
	return referralCodePattern.MatchString(code)
}

// NormalizeCode trims and uppercases a code entered by a shopper.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func SanitizeInput(input string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
}
