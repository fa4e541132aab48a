package utils

import (
	"fmt"

	"github.com/ttacon/libphonenumber"
)

// DefaultPhoneRegion is used for numbers written without a country prefix.
const DefaultPhoneRegion = "FR"

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	_, err := NormalizePhoneNumber(phoneNumber, countryCode)
	return err
}

// NormalizePhoneNumber returns the E.164 form of phoneNumber.
func NormalizePhoneNumber(phoneNumber, countryCode string) (string, error) {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number is not valid")
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}
