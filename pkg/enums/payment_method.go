package enums

// PaymentMethod identifies how a buyer paid.
type PaymentMethod string

const (
	PaymentMethodMercadoPago PaymentMethod = "mercadopago"
	PaymentMethodTransfer    PaymentMethod = "transfer"
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodCash        PaymentMethod = "cash"
)

var paymentMethods = set[PaymentMethod]{
	PaymentMethodMercadoPago,
	PaymentMethodTransfer,
	PaymentMethodCard,
	PaymentMethodCash,
}

func (m PaymentMethod) String() string { return string(m) }
func (m PaymentMethod) IsValid() bool  { return paymentMethods.has(m) }

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	return paymentMethods.parse("payment method", raw)
}
