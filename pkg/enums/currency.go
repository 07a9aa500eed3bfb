package enums

// Currency is an ISO 4217 code accepted for prices and payments.
type Currency string

const (
	CurrencyARS Currency = "ARS"
	CurrencyUSD Currency = "USD"
)

var currencies = set[Currency]{CurrencyARS, CurrencyUSD}

func (c Currency) String() string { return string(c) }
func (c Currency) IsValid() bool  { return currencies.has(c) }

// ParseCurrency expects the upper-case code.
func ParseCurrency(raw string) (Currency, error) { return currencies.parse("currency", raw) }
