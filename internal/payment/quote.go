package payment

import (
	"math"

	"github.com/explorebd/explorebd-api/internal/models"
)

type Method struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Quote is what the payment step shows the customer. Total includes the
// optional payment fee; the booking amount itself is always Subtotal.
type Quote struct {
	UnitPrice    int64    `json:"unitPrice"`
	Persons      int      `json:"persons"`
	Subtotal     int64    `json:"subtotal"`
	Fee          int64    `json:"fee"`
	Total        int64    `json:"total"`
	Currency     string   `json:"currency"`
	BkashNumber  string   `json:"bkashNumber"`
	Instructions string   `json:"instructions"`
	Methods      []Method `json:"methods"`
}

func Amount(price int64, persons int) int64 {
	return price * int64(persons)
}

func NewQuote(price int64, persons int, settings models.SiteSettings) Quote {
	subtotal := Amount(price, persons)
	fee := Fee(subtotal, settings)
	return Quote{
		UnitPrice:    price,
		Persons:      persons,
		Subtotal:     subtotal,
		Fee:          fee,
		Total:        subtotal + fee,
		Currency:     Currency,
		BkashNumber:  settings.BkashNumber,
		Instructions: settings.PaymentInstructions,
		Methods:      Methods(settings),
	}
}

// Fee returns the payment fee for subtotal, rounded to the nearest taka.
func Fee(subtotal int64, settings models.SiteSettings) int64 {
	if !settings.EnablePaymentFee || settings.PaymentFeeAmount <= 0 {
		return 0
	}
	if settings.PaymentFeeType == models.FeeFixed {
		return int64(math.Round(settings.PaymentFeeAmount))
	}
	return int64(math.Round(float64(subtotal) * settings.PaymentFeeAmount / 100))
}

// Methods lists the enabled payment channels in the configured priority order.
func Methods(settings models.SiteSettings) []Method {
	enabled := map[string]Method{
		"bkash": {Name: "bkash", Number: settings.BkashNumber},
	}
	if settings.EnableNagadPayment {
		enabled["nagad"] = Method{Name: "nagad", Number: settings.NagadNumber}
	}
	if settings.EnableRocketPayment {
		enabled["rocket"] = Method{Name: "rocket", Number: settings.RocketNumber}
	}
	if settings.EnableBankTransfer {
		enabled["bank"] = Method{Name: "bank", Number: settings.BankAccountDetails}
	}

	methods := make([]Method, 0, len(enabled))
	seen := map[string]bool{}
	for _, name := range settings.PaymentMethodsPriority {
		if m, ok := enabled[name]; ok && !seen[name] {
			methods = append(methods, m)
			seen[name] = true
		}
	}
	for _, name := range []string{"bkash", "nagad", "rocket", "bank"} {
		if m, ok := enabled[name]; ok && !seen[name] {
			methods = append(methods, m)
		}
	}
	return methods
}
