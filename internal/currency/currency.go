// Package currency holds the static currency table and display
// formatting helpers. No cross-currency arithmetic lives here or
// anywhere else; amounts in different currencies are reported apart.
package currency

import (
	"strings"

	"casaspese/internal/core"
)

// Info describes one supported currency.
type Info struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Currencies is the supported set, in display order.
var Currencies = []Info{
	{"USD", "$", "US Dollar"},
	{"EUR", "€", "Euro"},
	{"GBP", "£", "British Pound"},
	{"JPY", "¥", "Japanese Yen"},
	{"CAD", "C$", "Canadian Dollar"},
	{"AUD", "A$", "Australian Dollar"},
	{"CHF", "CHF", "Swiss Franc"},
	{"CNY", "¥", "Chinese Yuan"},
	{"INR", "₹", "Indian Rupee"},
	{"KRW", "₩", "South Korean Won"},
	{"BRL", "R$", "Brazilian Real"},
	{"MXN", "MX$", "Mexican Peso"},
	{"SGD", "S$", "Singapore Dollar"},
	{"HKD", "HK$", "Hong Kong Dollar"},
	{"NOK", "kr", "Norwegian Krone"},
	{"SEK", "kr", "Swedish Krona"},
	{"DKK", "kr", "Danish Krone"},
	{"PLN", "zł", "Polish Zloty"},
	{"RUB", "₽", "Russian Ruble"},
	{"TRY", "₺", "Turkish Lira"},
	{"ZAR", "R", "South African Rand"},
	{"VND", "₫", "Vietnamese Dong"},
}

// suffixCodes place the symbol after the amount.
var suffixCodes = map[string]bool{
	"EUR": true, "NOK": true, "SEK": true, "DKK": true, "PLN": true,
}

// countryCurrency guesses a currency from the country part of a locale.
var countryCurrency = map[string]string{
	"US": "USD", "CA": "CAD", "GB": "GBP", "AU": "AUD",
	"JP": "JPY", "DE": "EUR", "FR": "EUR", "IT": "EUR",
	"ES": "EUR", "NL": "EUR", "BE": "EUR", "AT": "EUR",
	"CH": "CHF", "CN": "CNY", "IN": "INR", "KR": "KRW",
	"BR": "BRL", "MX": "MXN", "SG": "SGD", "HK": "HKD",
	"NO": "NOK", "SE": "SEK", "DK": "DKK", "PL": "PLN",
	"RU": "RUB", "TR": "TRY", "ZA": "ZAR", "VN": "VND",
}

// Get returns the currency info for a code, falling back to the
// default currency for unknown codes.
func Get(code string) Info {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range Currencies {
		if c.Code == code {
			return c
		}
	}
	return Get(core.DefaultCurrency)
}

// Valid reports whether code is in the supported table.
func Valid(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range Currencies {
		if c.Code == code {
			return true
		}
	}
	return false
}

// FormatAmount renders cents as a plain decimal with thousands
// separators, e.g. 123456789 -> "1,234,567.89".
func FormatAmount(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	units := cents / 100
	rem := cents % 100

	digits := []byte{}
	if units == 0 {
		digits = append(digits, '0')
	}
	for units > 0 {
		digits = append(digits, byte('0'+units%10))
		units /= 10
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i := len(digits) - 1; i >= 0; i-- {
		b.WriteByte(digits[i])
		if i > 0 && i%3 == 0 {
			b.WriteByte(',')
		}
	}
	b.WriteByte('.')
	b.WriteByte(byte('0' + rem/10))
	b.WriteByte(byte('0' + rem%10))
	return b.String()
}

// Format renders cents with the currency symbol in its conventional
// position: "$1,234.56" for most codes, "1.234,56 €"-style suffix
// placement for EUR and the Nordic/Polish currencies.
func Format(cents int64, code string) string {
	info := Get(code)
	amount := FormatAmount(cents)
	if suffixCodes[strings.ToUpper(strings.TrimSpace(code))] {
		return amount + " " + info.Symbol
	}
	return info.Symbol + amount
}

// Detect guesses a currency from a BCP-47-ish locale tag such as
// "en-US" or "it_IT". Unknown countries map to the default currency.
func Detect(locale string) string {
	locale = strings.ReplaceAll(locale, "_", "-")
	// Strip encoding suffixes like ".UTF-8" that POSIX locales carry.
	if i := strings.IndexByte(locale, '.'); i >= 0 {
		locale = locale[:i]
	}
	parts := strings.Split(locale, "-")
	if len(parts) < 2 {
		return core.DefaultCurrency
	}
	if code, ok := countryCurrency[strings.ToUpper(parts[1])]; ok {
		return code
	}
	return core.DefaultCurrency
}
