package domain

import "regexp"

var (
	orderNumberPattern     = regexp.MustCompile(`^\d{6}-\d{4}$`)
	containerNumberPattern = regexp.MustCompile(`^[A-Za-z]{4}\d{7}$`)
	taxIDPattern           = regexp.MustCompile(`^\d{3}-\d{3}-\d{2}-\d{2}$`)
	locationCodePattern    = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{3}$`)
)

// ValidOrderNumber: 6 цифр, дефис, 4 цифры (например 123456-7890).
func ValidOrderNumber(s string) bool { return orderNumberPattern.MatchString(s) }

// ValidContainerNumber: 4 латинские буквы и 7 цифр (например MSCU1234567).
func ValidContainerNumber(s string) bool { return containerNumberPattern.MatchString(s) }

// ValidTaxID: группы цифр 3-3-2-2 через дефис.
func ValidTaxID(s string) bool { return taxIDPattern.MatchString(s) }

// ValidLocationCode: 2 заглавные буквы и 3 заглавные буквы или цифры (PLGDN).
func ValidLocationCode(s string) bool { return locationCodePattern.MatchString(s) }
