package enums

// PaymentStatus is the payment state machine: pending moves to exactly one
// of the terminal states and never leaves it.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

var (
	paymentStatuses  = set[PaymentStatus]{PaymentStatusPending, PaymentStatusApproved, PaymentStatusRejected, PaymentStatusCancelled}
	terminalStatuses = set[PaymentStatus]{PaymentStatusApproved, PaymentStatusRejected, PaymentStatusCancelled}
)

func (p PaymentStatus) String() string   { return string(p) }
func (p PaymentStatus) IsValid() bool    { return paymentStatuses.has(p) }
func (p PaymentStatus) IsTerminal() bool { return terminalStatuses.has(p) }

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	return paymentStatuses.parse("payment status", raw)
}

// ParsePaymentOutcome accepts only the statuses a settlement may move to.
func ParsePaymentOutcome(raw string) (PaymentStatus, error) {
	return terminalStatuses.parse("payment outcome", raw)
}
