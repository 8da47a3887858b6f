package payment

import (
	"fmt"
	"sort"
	"strings"

	"salonpay-be/internal/security"
)

// validateGeneric applies the checks shared by every provider.
func validateGeneric(req *Request) []string {
	var errs []string

	if !req.Amount.IsPositive() {
		errs = append(errs, "amount must be greater than 0")
	} else if err := security.ValidateAmount(req.Amount, req.Currency); err != nil {
		errs = append(errs, err.Error())
	}

	if strings.TrimSpace(req.Currency) == "" {
		errs = append(errs, "currency is required")
	} else if err := security.ValidateCurrency(req.Currency); err != nil {
		errs = append(errs, err.Error())
	}

	if strings.TrimSpace(req.OrderID) == "" {
		errs = append(errs, "orderId is required")
	}

	if strings.TrimSpace(req.Customer.Email) == "" {
		errs = append(errs, "customer email is required")
	} else if err := security.ValidateEmail(req.Customer.Email); err != nil {
		errs = append(errs, "customer "+err.Error())
	}

	for i, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" {
			errs = append(errs, fmt.Sprintf("items[%d].name is required", i))
		}
		if item.Quantity <= 0 {
			errs = append(errs, fmt.Sprintf("items[%d].quantity must be greater than 0", i))
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, fmt.Sprintf("items[%d].unitPrice must not be negative", i))
		}
	}

	keys := make([]string, 0, len(req.Metadata))
	for k := range req.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch req.Metadata[k].(type) {
		case string, bool, float64, float32, int, int32, int64, uint, uint32, uint64:
		default:
			errs = append(errs, fmt.Sprintf("metadata.%s must be a string, number or boolean", k))
		}
	}

	return errs
}

// RequireItems, RequirePhone and RequireShippingAddress are the building
// blocks adapters compose into their own Validate.
func RequireItems(req *Request, provider Provider) []string {
	if len(req.Items) == 0 {
		return []string{fmt.Sprintf("items are required for %s", provider)}
	}
	return nil
}

func RequirePhone(req *Request, provider Provider, country string) []string {
	if strings.TrimSpace(req.Customer.Phone) == "" {
		return []string{fmt.Sprintf("customer phone is required for %s", provider)}
	}
	if err := security.ValidatePhone(req.Customer.Phone, country); err != nil {
		return []string{"customer " + err.Error()}
	}
	return nil
}

func RequireShippingAddress(req *Request, provider Provider) []string {
	addr := req.ShippingAddress
	if addr == nil {
		return []string{fmt.Sprintf("shipping address is required for %s", provider)}
	}

	var errs []string
	if strings.TrimSpace(addr.Line1) == "" {
		errs = append(errs, "shippingAddress.line1 is required")
	}
	if strings.TrimSpace(addr.City) == "" {
		errs = append(errs, "shippingAddress.city is required")
	}
	if strings.TrimSpace(addr.CountryCode) == "" {
		errs = append(errs, "shippingAddress.countryCode is required")
	} else if err := security.ValidateCountry(addr.CountryCode); err != nil {
		errs = append(errs, "shippingAddress."+err.Error())
	}
	return errs
}

var currencyCountries = map[string]string{
	"SAR": "SA", "AED": "AE", "KWD": "KW", "BHD": "BH",
	"QAR": "QA", "OMR": "OM", "EGP": "EG",
}

// CountryFor picks the customer's country: shipping address first, then
// the country implied by the currency. Empty when neither applies.
func CountryFor(req *Request) string {
	if req.ShippingAddress != nil && req.ShippingAddress.CountryCode != "" {
		return strings.ToUpper(req.ShippingAddress.CountryCode)
	}
	return currencyCountries[strings.ToUpper(req.Currency)]
}
