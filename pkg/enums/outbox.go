package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregatePayment  OutboxAggregateType = "payment"
	AggregateProgress OutboxAggregateType = "progress"
	AggregateUser     OutboxAggregateType = "user"
)

var aggregateTypes = set[OutboxAggregateType]{AggregatePayment, AggregateProgress, AggregateUser}

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

// OutboxEventType is the event_type column of outbox_events. Every value
// produces one email.
type OutboxEventType string

const (
	EventUserRegistered    OutboxEventType = "user_registered"
	EventPaymentApproved   OutboxEventType = "payment_approved"
	EventPaymentRejected   OutboxEventType = "payment_rejected"
	EventCertificateIssued OutboxEventType = "certificate_issued"
)

var eventTypes = set[OutboxEventType]{
	EventUserRegistered,
	EventPaymentApproved,
	EventPaymentRejected,
	EventCertificateIssued,
}

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

// OutboxDLQErrorReason says why a row was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonDeliveryFailed OutboxDLQErrorReason = "delivery_failed"
	OutboxDLQReasonDecode         OutboxDLQErrorReason = "decode_failed"
)

var dlqReasons = set[OutboxDLQErrorReason]{OutboxDLQReasonDeliveryFailed, OutboxDLQReasonDecode}

func (r OutboxDLQErrorReason) IsValid() bool { return dlqReasons.has(r) }
