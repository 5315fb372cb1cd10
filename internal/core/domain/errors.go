package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// Authentication errors.
var (
	ErrNoToken            = errors.New("authorization token required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
)

// Authorization errors.
var (
	ErrAccessDenied  = errors.New("access denied")
	ErrAdminRequired = errors.New("admin privileges required")
)

// Lookup errors.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrRecordNotFound = errors.New("health record not found")
)

// Validation rule sentinels. A *ValidationError matches exactly one of these
// through errors.Is.
var (
	ErrMissingField               = errors.New("missing required field")
	ErrOutOfRange                 = errors.New("value out of range")
	ErrInvalidValue               = errors.New("invalid value")
	ErrInconsistentBMI            = errors.New("bmi inconsistent with weight and height")
	ErrInconsistentBodyFat        = errors.New("body fat kg inconsistent with weight and body fat percentage")
	ErrComponentMassExceedsWeight = errors.New("muscle and bone mass exceed total weight")
	ErrDuplicateDateForUser       = errors.New("a record for this date already exists")
)

// Code is the stable, machine-readable reason attached to every error the API
// returns.
type Code string

const (
	CodeNoToken                    Code = "NO_TOKEN"
	CodeInvalidToken               Code = "INVALID_TOKEN"
	CodeTokenExpired               Code = "TOKEN_EXPIRED"
	CodeInvalidCredentials         Code = "INVALID_CREDENTIALS"
	CodeEmailExists                Code = "EMAIL_EXISTS"
	CodeAccessDenied               Code = "ACCESS_DENIED"
	CodeAdminRequired              Code = "ADMIN_REQUIRED"
	CodeUserNotFound               Code = "USER_NOT_FOUND"
	CodeRecordNotFound             Code = "RECORD_NOT_FOUND"
	CodeMissingField               Code = "MISSING_FIELD"
	CodeOutOfRange                 Code = "OUT_OF_RANGE"
	CodeInvalidValue               Code = "INVALID_VALUE"
	CodeInconsistentBMI            Code = "INCONSISTENT_BMI"
	CodeInconsistentBodyFat        Code = "INCONSISTENT_BODY_FAT"
	CodeComponentMassExceedsWeight Code = "COMPONENT_MASS_EXCEEDS_WEIGHT"
	CodeDuplicateDateForUser       Code = "DUPLICATE_DATE_FOR_USER"
	CodeInternal                   Code = "INTERNAL"
)

var sentinelCodes = []struct {
	err  error
	code Code
}{
	{ErrNoToken, CodeNoToken},
	{ErrInvalidToken, CodeInvalidToken},
	{ErrTokenExpired, CodeTokenExpired},
	{ErrInvalidCredentials, CodeInvalidCredentials},
	{ErrEmailExists, CodeEmailExists},
	{ErrAccessDenied, CodeAccessDenied},
	{ErrAdminRequired, CodeAdminRequired},
	{ErrUserNotFound, CodeUserNotFound},
	{ErrRecordNotFound, CodeRecordNotFound},
	{ErrMissingField, CodeMissingField},
	{ErrOutOfRange, CodeOutOfRange},
	{ErrInvalidValue, CodeInvalidValue},
	{ErrInconsistentBMI, CodeInconsistentBMI},
	{ErrInconsistentBodyFat, CodeInconsistentBodyFat},
	{ErrComponentMassExceedsWeight, CodeComponentMassExceedsWeight},
	{ErrDuplicateDateForUser, CodeDuplicateDateForUser},
}

// CodeOf returns the stable code for err, or CodeInternal when err is not part
// of the taxonomy.
func CodeOf(err error) Code {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	return CodeInternal
}

func sentinelOf(code Code) error {
	for _, sc := range sentinelCodes {
		if sc.code == code {
			return sc.err
		}
	}
	return nil
}

// ValidationError describes one failed record rule. Value, Min and Max are set
// for range failures.
type ValidationError struct {
	Code    Code     `json:"code"`
	Field   string   `json:"field,omitempty"`
	Value   *float64 `json:"value,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Message string   `json:"message"`
}

func (e *ValidationError) Error() string { return e.Message }

// Is lets errors.Is(err, ErrOutOfRange) and friends match.
func (e *ValidationError) Is(target error) bool {
	s := sentinelOf(e.Code)
	return s != nil && s == target
}

func MissingField(field string) *ValidationError {
	return &ValidationError{
		Code:    CodeMissingField,
		Field:   field,
		Message: field + " is required",
	}
}

func OutOfRange(field string, value, min, max float64) *ValidationError {
	return &ValidationError{
		Code:    CodeOutOfRange,
		Field:   field,
		Value:   &value,
		Min:     &min,
		Max:     &max,
		Message: fmt.Sprintf("%s must be between %s and %s, got %s", field, formatNumber(min), formatNumber(max), formatNumber(value)),
	}
}

func InvalidValue(field, reason string) *ValidationError {
	return &ValidationError{
		Code:    CodeInvalidValue,
		Field:   field,
		Message: fmt.Sprintf("%s: %s", field, reason),
	}
}

func InconsistentBMI(bmi, expected float64) *ValidationError {
	return &ValidationError{
		Code:    CodeInconsistentBMI,
		Field:   FieldBMI,
		Value:   &bmi,
		Message: fmt.Sprintf("bmi %.1f does not match weight and height (expected %.1f)", bmi, expected),
	}
}

func InconsistentBodyFat(kg, expected float64) *ValidationError {
	return &ValidationError{
		Code:    CodeInconsistentBodyFat,
		Field:   FieldBodyFatKg,
		Value:   &kg,
		Message: fmt.Sprintf("body_fat_kg %.1f does not match weight and body_fat_percentage (expected %.1f)", kg, expected),
	}
}

func ComponentMassExceedsWeight(components, weight float64) *ValidationError {
	return &ValidationError{
		Code:    CodeComponentMassExceedsWeight,
		Field:   FieldMuscleMass,
		Value:   &components,
		Message: fmt.Sprintf("muscle_mass + bone_mass (%.1f kg) exceeds weight (%.1f kg)", components, weight),
	}
}

func DuplicateDateForUser(date Date) *ValidationError {
	return &ValidationError{
		Code:    CodeDuplicateDateForUser,
		Field:   FieldDate,
		Message: "a record for " + date.String() + " already exists",
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ValidationFailure carries every rule a record broke, in check order. It
// unwraps to the first one so callers that only care about a single reason
// can use errors.Is / errors.As directly.
type ValidationFailure struct {
	Errors []*ValidationError
}

func (f *ValidationFailure) Error() string {
	if len(f.Errors) == 0 {
		return "validation failed"
	}
	return f.Errors[0].Error()
}

func (f *ValidationFailure) Unwrap() error {
	if len(f.Errors) == 0 {
		return nil
	}
	return f.Errors[0]
}

// StorageError wraps a failure of the backing store. Its detail is logged but
// never shown to clients.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
