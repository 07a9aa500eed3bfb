package webhooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/coursevault-backend/internal/payments"
	paymentwebhook "github.com/angelmondragon/coursevault-backend/internal/webhooks/payments"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/idempotency"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

const testSecret = "whsec_test"

func TestPaymentWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","transaction_id":"mp-100","status":"approved"}`)
	service := &fakePaymentWebhookService{}
	guard := newGuard(t)
	handler := PaymentWebhook(service, testSecret, guard, nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
		req.Header.Set(paymentwebhook.SignatureHeader, paymentwebhook.Sign(testSecret, payload))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d (%s)", i, rec.Code, rec.Body.String())
		}
	}
	if service.calls != 1 {
		t.Fatalf("expected service to run once, ran %d times", service.calls)
	}
	if service.lastOutcome != enums.PaymentStatusApproved {
		t.Fatalf("expected approved outcome, got %s", service.lastOutcome)
	}
	if service.lastTransaction != "mp-100" {
		t.Fatalf("unexpected transaction %q", service.lastTransaction)
	}
}

func TestPaymentWebhook_RejectsBadSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_2","transaction_id":"mp-101","status":"approved"}`)
	service := &fakePaymentWebhookService{}
	handler := PaymentWebhook(service, testSecret, newGuard(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set(paymentwebhook.SignatureHeader, paymentwebhook.Sign("wrong", payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not run on bad signature")
	}
}

func TestPaymentWebhook_RejectsNonTerminalStatus(t *testing.T) {
	payload := []byte(`{"id":"evt_3","transaction_id":"mp-102","status":"pending"}`)
	handler := PaymentWebhook(&fakePaymentWebhookService{}, testSecret, newGuard(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set(paymentwebhook.SignatureHeader, "sha256="+paymentwebhook.Sign(testSecret, payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPaymentWebhook_ReleasesGuardOnFailure(t *testing.T) {
	payload := []byte(`{"id":"evt_4","transaction_id":"mp-103","status":"rejected"}`)
	service := &fakePaymentWebhookService{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	handler := PaymentWebhook(service, testSecret, newGuard(t), nil)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
		req.Header.Set(paymentwebhook.SignatureHeader, paymentwebhook.Sign(testSecret, payload))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	service.err = nil
	if code := send(); code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", code)
	}
	if service.calls != 2 {
		t.Fatalf("expected two service calls, got %d", service.calls)
	}
}

func TestPaymentWebhook_LogsFailedRelease(t *testing.T) {
	payload := []byte(`{"id":"evt_5","transaction_id":"mp-104","status":"approved"}`)
	var out bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "webhooks-test", Output: &out})
	service := &fakePaymentWebhookService{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	handler := PaymentWebhook(service, testSecret, stuckGuard{}, logg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set(paymentwebhook.SignatureHeader, paymentwebhook.Sign(testSecret, payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	logged := out.String()
	if !strings.Contains(logged, "webhook guard release failed") || !strings.Contains(logged, "evt_5") {
		t.Fatalf("expected release failure in logs, got %s", logged)
	}
}

type stuckGuard struct{}

func (stuckGuard) Claim(context.Context, string, string) (bool, error) { return true, nil }

func (stuckGuard) Release(context.Context, string, string) error {
	return errors.New("redis: connection refused")
}

func newGuard(t *testing.T) *idempotency.Guard {
	t.Helper()
	guard, err := idempotency.NewGuard(newInMemoryStore(), time.Minute)
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

type fakePaymentWebhookService struct {
	calls           int
	err             error
	lastOutcome     enums.PaymentStatus
	lastTransaction string
}

func (f *fakePaymentWebhookService) HandleEvent(_ context.Context, event *paymentwebhook.Event, outcome enums.PaymentStatus) (*payments.PaymentDTO, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.lastOutcome = outcome
	f.lastTransaction = event.TransactionID
	return &payments.PaymentDTO{ID: uuid.New(), Status: outcome, TransactionID: event.TransactionID}, nil
}

type inMemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{values: map[string]string{}}
}

func (s *inMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *inMemoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = fmt.Sprint(value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (s *inMemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(keys) == 0 {
		return errors.New("no keys")
	}
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}
