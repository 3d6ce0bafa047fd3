package validator

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v {
		result[err.Field] = err.Message
	}
	return result
}

// Single builds a one-entry ValidationErrors.
func Single(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Date validation
func IsValidDate(dateStr string) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", dateStr)
	return date, err == nil
}

var taxYearRegex = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// IsValidTaxYear accepts an Indian financial year label such as "2024-25",
// where the suffix must be the year following the start year.
func IsValidTaxYear(s string) (startYear int, ok bool) {
	m := taxYearRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if (start+1)%100 != end {
		return 0, false
	}
	return start, true
}

func IsValidMonth(month int) bool {
	return month >= 1 && month <= 12
}

var employeeIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// IsValidEmployeeID accepts UUIDs and HR employee codes.
func IsValidEmployeeID(id string) bool {
	return employeeIDRegex.MatchString(id)
}

// Itoa converts an integer to a string.
func Itoa(i int) string {
	return strconv.Itoa(i)
}
