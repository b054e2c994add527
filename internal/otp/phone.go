package otp

import (
	"errors"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhoneNumber is returned when a number cannot be normalised.
var ErrInvalidPhoneNumber = errors.New("otp: invalid phone number")

// DefaultCountryCode applies to numbers written without an international prefix.
const DefaultCountryCode = "+91"

// RegionForCountryCode maps a calling code such as "+91" to its main region
// ("IN"). Unknown codes yield "ZZ", which only accepts international input.
func RegionForCountryCode(countryCode string) string {
	countryCode = strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	if countryCode == "" {
		countryCode = strings.TrimPrefix(DefaultCountryCode, "+")
	}
	cc, err := strconv.Atoi(countryCode)
	if err != nil {
		return phonenumbers.UNKNOWN_REGION
	}
	return phonenumbers.GetRegionCodeForCountryCode(cc)
}

// ParsePhone parses raw in the region of countryCode and rejects numbers
// that are not dialable.
func ParsePhone(raw, countryCode string) (*phonenumbers.PhoneNumber, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidPhoneNumber
	}
	num, err := phonenumbers.Parse(raw, RegionForCountryCode(countryCode))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return nil, ErrInvalidPhoneNumber
	}
	return num, nil
}

// NormalizePhone converts user input to E.164 form.
func NormalizePhone(raw, countryCode string) (string, error) {
	num, err := ParsePhone(raw, countryCode)
	if err != nil {
		return "", err
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// SplitCountryCode separates a number into "+<calling code>" and its national
// significant number. Input that does not parse is returned unsplit.
func SplitCountryCode(phone, countryCode string) (string, string) {
	num, err := phonenumbers.Parse(strings.TrimSpace(phone), RegionForCountryCode(countryCode))
	if err != nil {
		return "", phone
	}
	return "+" + strconv.Itoa(int(num.GetCountryCode())), phonenumbers.GetNationalSignificantNumber(num)
}
