package internal

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MoneyFormatter renders an amount for people to read.
type MoneyFormatter interface {
	Format(amount decimal.Decimal) string
}

// PlainMoney prints amounts with two decimals and no symbol. It is the library default.
type PlainMoney struct{}

func (PlainMoney) Format(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// Currency formats amounts for one ISO currency in one locale.
type Currency struct {
	Code    string // "SEK", "USD", "VND"
	symbol  string
	prefix  bool
	printer *message.Printer
}

// symbolOverrides provides custom symbols where x/text defaults aren't ideal
var symbolOverrides = map[string]string{
	"SEK": "kr",
	"NOK": "kr",
	"DKK": "kr",
	"ISK": "kr",
	"VND": "₫",
}

// homeLocales is used when a currency is chosen without a system locale (e.g. --currency USD).
var homeLocales = map[string]language.Tag{
	"SEK": language.Swedish,
	"USD": language.AmericanEnglish,
	"EUR": language.German,
	"GBP": language.BritishEnglish,
	"NOK": language.Norwegian,
	"DKK": language.Danish,
	"CHF": language.German,
	"JPY": language.Japanese,
	"CAD": language.CanadianFrench,
	"AUD": language.MustParse("en-AU"),
	"BRL": language.BrazilianPortuguese,
	"INR": language.MustParse("en-IN"),
	"CNY": language.Chinese,
	"KRW": language.Korean,
	"PLN": language.Polish,
	"THB": language.Thai,
	"VND": language.Vietnamese,
	"IDR": language.Indonesian,
	"SGD": language.MustParse("en-SG"),
}

// prefixSymbols lists currencies written before the amount. x/text does not expose
// CLDR symbol placement, so this is maintained by hand.
var prefixSymbols = map[string]bool{
	"USD": true, "GBP": true, "JPY": true, "CAD": true, "AUD": true,
	"SGD": true, "INR": true, "CNY": true, "KRW": true, "THB": true,
}

// NewCurrency returns a formatter for code. The zero tag selects the currency's home locale.
func NewCurrency(code string, tag language.Tag) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	if tag == language.Und {
		if home, ok := homeLocales[code]; ok {
			tag = home
		} else {
			tag = language.English
		}
	}

	printer := message.NewPrinter(tag)
	symbol, ok := symbolOverrides[code]
	if !ok {
		if unit, err := currency.ParseISO(code); err == nil {
			symbol = printer.Sprint(currency.NarrowSymbol(unit))
		} else {
			// Unknown codes print as themselves
			symbol = code
		}
	}

	return Currency{
		Code:    code,
		symbol:  symbol,
		prefix:  prefixSymbols[code],
		printer: printer,
	}
}

// Format prints whole amounts without decimals and anything else with two.
func (c Currency) Format(amount decimal.Decimal) string {
	digits := 0
	if !amount.Equal(amount.Truncate(0)) {
		digits = 2
	}
	formatted := c.printer.Sprint(number.Decimal(amount.Round(int32(digits)).InexactFloat64(),
		number.MinFractionDigits(digits), number.MaxFractionDigits(digits)))

	if c.prefix {
		return c.symbol + formatted
	}
	return formatted + " " + c.symbol
}

// ResolveCurrency picks the currency to display: an explicit code wins, then the one
// implied by the locale environment, then USD. A detected locale always drives number formatting.
func ResolveCurrency(code string, getenv func(string) string) Currency {
	detected, tag := DetectCurrency(getenv)
	if code = strings.TrimSpace(code); code == "" {
		code = detected
	}
	if code == "" {
		code = "USD"
	}
	return NewCurrency(code, tag)
}

// DetectCurrency derives a currency code from LC_MONETARY, LC_ALL or LANG, in that order.
func DetectCurrency(getenv func(string) string) (string, language.Tag) {
	if getenv == nil {
		return "", language.Und
	}
	for _, key := range []string{"LC_MONETARY", "LC_ALL", "LANG"} {
		locale := getenv(key)
		if locale == "" || locale == "C" || locale == "POSIX" {
			continue
		}
		return parseCurrencyFromLocale(locale)
	}
	return "", language.Und
}

// parseCurrencyFromLocale extracts currency code and language tag from a locale string.
// Examples: "sv_SE.UTF-8" -> ("SEK", sv-SE), "vi_VN" -> ("VND", vi-VN)
func parseCurrencyFromLocale(locale string) (string, language.Tag) {
	base := locale
	if idx := strings.IndexAny(base, ".@"); idx != -1 {
		base = base[:idx]
	}

	tag, err := language.Parse(strings.Replace(base, "_", "-", 1))
	if err != nil {
		return "", language.Und
	}

	_, _, region := tag.Raw()
	if region.String() == "" || region.String() == "ZZ" {
		return "", language.Und
	}

	unit, ok := currency.FromRegion(region)
	if !ok {
		return "", language.Und
	}
	return unit.String(), tag
}
