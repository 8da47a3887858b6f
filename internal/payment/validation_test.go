package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRequireItems(t *testing.T) {
	req := validRequest(ProviderTamara)
	assert.Empty(t, RequireItems(req, ProviderTamara))

	req.Items = nil
	assert.Equal(t, []string{"items are required for tamara"}, RequireItems(req, ProviderTamara))
}

func TestRequirePhone(t *testing.T) {
	req := validRequest(ProviderTabby)
	assert.Empty(t, RequirePhone(req, ProviderTabby, "SA"))

	req.Customer.Phone = "+971501234567"
	assert.NotEmpty(t, RequirePhone(req, ProviderTabby, "SA"))
	assert.Empty(t, RequirePhone(req, ProviderTabby, "AE"))

	req.Customer.Phone = ""
	assert.Equal(t, []string{"customer phone is required for tabby"}, RequirePhone(req, ProviderTabby, "SA"))
}

func TestRequireShippingAddress(t *testing.T) {
	req := validRequest(ProviderTamara)
	assert.Equal(t, []string{"shipping address is required for tamara"}, RequireShippingAddress(req, ProviderTamara))

	req.ShippingAddress = &Address{}
	errs := RequireShippingAddress(req, ProviderTamara)
	assert.Len(t, errs, 3)

	req.ShippingAddress = &Address{Line1: "King Fahd Rd", City: "Riyadh", CountryCode: "SA"}
	assert.Empty(t, RequireShippingAddress(req, ProviderTamara))

	req.ShippingAddress.CountryCode = "ZZ"
	assert.Equal(t, []string{"shippingAddress.country ZZ is not supported"}, RequireShippingAddress(req, ProviderTamara))
}

func TestValidateGeneric_Items(t *testing.T) {
	req := validRequest(ProviderStripe)
	req.Items = []Item{
		{Name: "", Quantity: 0, UnitPrice: decimal.RequireFromString("-1")},
	}

	errs := validateGeneric(req)
	assert.Equal(t, []string{
		"items[0].name is required",
		"items[0].quantity must be greater than 0",
		"items[0].unitPrice must not be negative",
	}, errs)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, int64(15050), ToMinorUnits(decimal.RequireFromString("150.50"), "SAR"))
	assert.Equal(t, int64(12345), ToMinorUnits(decimal.RequireFromString("12.345"), "kwd"))
	assert.True(t, FromMinorUnits(15050, "SAR").Equal(decimal.RequireFromString("150.5")))
	assert.True(t, FromMinorUnits(1500, "BHD").Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, "100.00", FormatAmount(decimal.NewFromInt(100)))
}

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusCompleted.CanTransitionTo(StatusRefunded))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusProcessing))
	assert.False(t, StatusRefunded.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusPending.CanTransitionTo(StatusPending))
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" Tabby ")
	assert.NoError(t, err)
	assert.Equal(t, ProviderTabby, p)

	_, err = ParseProvider("paypal")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestCustomer_NameParts(t *testing.T) {
	first, last := Customer{Name: "Layla Al Hassan"}.NameParts()
	assert.Equal(t, "Layla", first)
	assert.Equal(t, "Al Hassan", last)

	first, last = Customer{FirstName: "Omar", LastName: "Saleh", Name: "ignored"}.NameParts()
	assert.Equal(t, "Omar", first)
	assert.Equal(t, "Saleh", last)
}

func TestCountryFor(t *testing.T) {
	req := validRequest(ProviderTabby)
	assert.Equal(t, "SA", CountryFor(req))

	req.Currency = "USD"
	assert.Equal(t, "", CountryFor(req))

	req.ShippingAddress = &Address{CountryCode: "ae"}
	assert.Equal(t, "AE", CountryFor(req))
}
