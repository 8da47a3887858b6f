package security

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmounts caps a single payment per currency, in major units.
var maxAmounts = map[string]decimal.Decimal{
	"SAR": decimal.NewFromInt(100000),
	"AED": decimal.NewFromInt(100000),
	"KWD": decimal.NewFromInt(8000),
	"USD": decimal.NewFromInt(25000),
	"EUR": decimal.NewFromInt(25000),
}

var fallbackMaxAmount = decimal.NewFromInt(10000)

var supportedCurrencies = map[string]struct{}{
	"SAR": {}, "AED": {}, "KWD": {}, "BHD": {}, "QAR": {}, "OMR": {},
	"EGP": {}, "JOD": {}, "USD": {}, "EUR": {}, "GBP": {},
}

var supportedCountries = map[string]struct{}{
	"SA": {}, "AE": {}, "KW": {}, "BH": {}, "QA": {}, "OM": {},
	"EG": {}, "JO": {}, "US": {}, "GB": {},
}

var phonePatterns = map[string]*regexp.Regexp{
	"SA": regexp.MustCompile(`^(\+?966|0)?5\d{8}$`),
	"AE": regexp.MustCompile(`^(\+?971|0)?5\d{8}$`),
	"KW": regexp.MustCompile(`^(\+?965)?[569]\d{7}$`),
	"BH": regexp.MustCompile(`^(\+?973)?[36]\d{7}$`),
	"QA": regexp.MustCompile(`^(\+?974)?[3567]\d{7}$`),
	"OM": regexp.MustCompile(`^(\+?968)?[79]\d{7}$`),
	"EG": regexp.MustCompile(`^(\+?20|0)?1[0125]\d{8}$`),
}

var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	nonDigitRegex   = regexp.MustCompile(`\D`)
)

// MaxAmount returns the per-payment ceiling for the currency.
func MaxAmount(currency string) decimal.Decimal {
	if limit, ok := maxAmounts[strings.ToUpper(currency)]; ok {
		return limit
	}
	return fallbackMaxAmount
}

// ValidateAmount rejects non-positive amounts, more than two decimal
// places, and amounts above the currency ceiling.
func ValidateAmount(amount decimal.Decimal, currency string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than 0")
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("amount %s has more than 2 decimal places", amount.String())
	}
	if limit := MaxAmount(currency); amount.GreaterThan(limit) {
		return fmt.Errorf("amount %s exceeds the maximum of %s %s", amount.String(), limit.String(), strings.ToUpper(currency))
	}
	return nil
}

func IsSupportedCurrency(currency string) bool {
	_, ok := supportedCurrencies[strings.ToUpper(currency)]
	return ok
}

func ValidateCurrency(currency string) error {
	if len(currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code")
	}
	if !IsSupportedCurrency(currency) {
		return fmt.Errorf("currency %s is not supported", strings.ToUpper(currency))
	}
	return nil
}

func ValidateCountry(country string) error {
	if len(country) != 2 {
		return fmt.Errorf("country must be a 2-letter code")
	}
	if _, ok := supportedCountries[strings.ToUpper(country)]; !ok {
		return fmt.Errorf("country %s is not supported", strings.ToUpper(country))
	}
	return nil
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 || !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePhone applies the country pattern when one is known, otherwise
// requires 7 to 15 digits once formatting characters are stripped.
func ValidatePhone(phone, country string) error {
	if strings.TrimSpace(phone) == "" {
		return fmt.Errorf("phone is required")
	}

	if pattern, ok := phonePatterns[strings.ToUpper(country)]; ok {
		if !pattern.MatchString(phoneSeparators.Replace(phone)) {
			return fmt.Errorf("invalid phone number for country %s", strings.ToUpper(country))
		}
		return nil
	}

	digits := nonDigitRegex.ReplaceAllString(phone, "")
	if len(digits) < 7 || len(digits) > 15 {
		return fmt.Errorf("phone number must contain 7 to 15 digits")
	}
	return nil
}
