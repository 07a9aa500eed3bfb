// Package registry decodes outbox rows into the typed payloads the mail
// publisher renders.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox/payloads"
)

// Route binds an event type to the aggregate that emits it, the email
// template that renders it and the payload type it carries.
type Route struct {
	Event     enums.OutboxEventType
	Aggregate enums.OutboxAggregateType
	Template  string
	decode    func(json.RawMessage) (any, error)
}

// For builds a Route whose payload decodes into a *T.
func For[T any](event enums.OutboxEventType, aggregate enums.OutboxAggregateType, template string) Route {
	return Route{
		Event:     event,
		Aggregate: aggregate,
		Template:  template,
		decode: func(raw json.RawMessage) (any, error) {
			payload := new(T)
			if err := json.Unmarshal(raw, payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

// Decoded is an outbox row after Resolve.
type Decoded struct {
	Route    Route
	Envelope outbox.Envelope
	Payload  any
}

type Registry struct {
	routes map[enums.OutboxEventType]Route
}

func New(routes ...Route) *Registry {
	r := &Registry{routes: make(map[enums.OutboxEventType]Route, len(routes))}
	for _, route := range routes {
		r.routes[route.Event] = route
	}
	return r
}

// Mail returns the routes for every event that sends an email.
func Mail() *Registry {
	return New(
		For[payloads.UserRegisteredEvent](enums.EventUserRegistered, enums.AggregateUser, "welcome"),
		For[payloads.PaymentSettledEvent](enums.EventPaymentApproved, enums.AggregatePayment, "payment_approved"),
		For[payloads.PaymentSettledEvent](enums.EventPaymentRejected, enums.AggregatePayment, "payment_rejected"),
		For[payloads.CertificateIssuedEvent](enums.EventCertificateIssued, enums.AggregateProgress, "certificate_issued"),
	)
}

func (r *Registry) Lookup(event enums.OutboxEventType) (Route, bool) {
	route, ok := r.routes[event]
	return route, ok
}

// Resolve decodes the envelope and payload of row. Every failure is
// permanent: the row will not decode any better on the next attempt.
func (r *Registry) Resolve(row models.OutboxEvent) (*Decoded, error) {
	route, ok := r.routes[row.EventType]
	if !ok {
		return nil, Permanent(fmt.Errorf("no route for event %s", row.EventType))
	}
	if route.Aggregate != row.AggregateType {
		return nil, Permanent(fmt.Errorf("event %s emitted by %s, want %s", row.EventType, row.AggregateType, route.Aggregate))
	}

	var env outbox.Envelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, Permanent(fmt.Errorf("decode envelope: %w", err))
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, Permanent(fmt.Errorf("event %s has no data", row.EventType))
	}
	payload, err := route.decode(env.Data)
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode %s data: %w", row.EventType, err))
	}
	return &Decoded{Route: route, Envelope: env, Payload: payload}, nil
}

// PermanentError marks a delivery that must be dead-lettered instead of
// retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		err = errors.New("unspecified failure")
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}
