package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/coursevault-backend/internal/catalog"
	"github.com/angelmondragon/coursevault-backend/internal/entitlements"
	"github.com/angelmondragon/coursevault-backend/internal/users"
	"github.com/angelmondragon/coursevault-backend/pkg/db"
	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/metrics"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/coursevault-backend/pkg/pagination"
)

const maxTransactionIDLength = 255

// Service drives the payment lifecycle: pending → approved | rejected | cancelled.
type Service interface {
	CreatePayment(ctx context.Context, input CreatePaymentInput) (*PaymentDTO, error)
	SettlePayment(ctx context.Context, paymentID uuid.UUID, outcome enums.PaymentStatus) (*PaymentDTO, error)
	SettleByTransactionID(ctx context.Context, transactionID string, outcome enums.PaymentStatus, providerMetadata json.RawMessage) (*PaymentDTO, error)
	CancelPayment(ctx context.Context, userID, paymentID uuid.UUID) (*PaymentDTO, error)
	GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*PaymentDTO, error)
	ListPayments(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[PaymentDTO], error)
}

type ServiceParams struct {
	Repo         *Repository
	UserRepo     *users.Repository
	CatalogRepo  *catalog.Repository
	Entitlements entitlements.Service
	DB           *db.Client
	Outbox       outbox.Emitter
	Metrics      *metrics.Metrics
	Logger       *logger.Logger
}

type service struct {
	repo         *Repository
	userRepo     *users.Repository
	catalogRepo  *catalog.Repository
	entitlements entitlements.Service
	dbClient     *db.Client
	outbox       outbox.Emitter
	metrics      *metrics.Metrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("payment repository required")
	case params.UserRepo == nil:
		return nil, fmt.Errorf("user repository required")
	case params.CatalogRepo == nil:
		return nil, fmt.Errorf("catalog repository required")
	case params.Entitlements == nil:
		return nil, fmt.Errorf("entitlement service required")
	case params.DB == nil:
		return nil, fmt.Errorf("db client required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:         params.Repo,
		userRepo:     params.UserRepo,
		catalogRepo:  params.CatalogRepo,
		entitlements: params.Entitlements,
		dbClient:     params.DB,
		outbox:       params.Outbox,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreatePayment(ctx context.Context, input CreatePaymentInput) (*PaymentDTO, error) {
	input, err := validateCreate(input)
	if err != nil {
		return nil, err
	}

	courseID, packID := input.Target.Columns()
	now := s.now()
	payment := &models.Payment{
		ID:               uuid.New(),
		UserID:           input.UserID,
		CourseID:         courseID,
		PackID:           packID,
		Amount:           input.Amount,
		Currency:         input.Currency,
		Method:           input.Method,
		Status:           enums.PaymentStatusPending,
		TransactionID:    input.TransactionID,
		ProviderMetadata: datatypes.JSON(input.ProviderMetadata),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.entitlements.ResolveTargetCourses(ctx, tx, input.Target); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, "transaction_id") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction id already recorded")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id":  payment.ID.String(),
			"target_kind": input.Target.Kind,
			"method":      payment.Method,
		})
		s.logg.Info(logCtx, "payment created")
	}
	dto := NewPaymentDTO(*payment)
	return &dto, nil
}

func (s *service) SettlePayment(ctx context.Context, paymentID uuid.UUID, outcome enums.PaymentStatus) (*PaymentDTO, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	return s.settle(ctx, settleRequest{
		outcome: outcome,
		load: func(ctx context.Context, repo *Repository) (*models.Payment, error) {
			return repo.FindByID(ctx, paymentID)
		},
	})
}

// SettleByTransactionID applies a provider notification to the payment
// carrying that external transaction id.
func (s *service) SettleByTransactionID(ctx context.Context, transactionID string, outcome enums.PaymentStatus, providerMetadata json.RawMessage) (*PaymentDTO, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if len(providerMetadata) > 0 && !json.Valid(providerMetadata) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider metadata must be valid json")
	}
	return s.settle(ctx, settleRequest{
		outcome:  outcome,
		metadata: datatypes.JSON(providerMetadata),
		load: func(ctx context.Context, repo *Repository) (*models.Payment, error) {
			return repo.FindByTransactionID(ctx, transactionID)
		},
	})
}

// CancelPayment lets the owner abandon their own pending payment.
func (s *service) CancelPayment(ctx context.Context, userID, paymentID uuid.UUID) (*PaymentDTO, error) {
	if userID == uuid.Nil || paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and payment id are required")
	}
	return s.settle(ctx, settleRequest{
		outcome: enums.PaymentStatusCancelled,
		ownerID: &userID,
		load: func(ctx context.Context, repo *Repository) (*models.Payment, error) {
			return repo.FindByID(ctx, paymentID)
		},
	})
}

func (s *service) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*PaymentDTO, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, notFoundOrDependency(err)
	}
	if payment.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	dto := NewPaymentDTO(*payment)
	return &dto, nil
}

func (s *service) ListPayments(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[PaymentDTO], error) {
	rows, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return pagination.Page[PaymentDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return pagination.Page[PaymentDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list payments")
	}
	dtos := make([]PaymentDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewPaymentDTO(row))
	}
	return pagination.Paginate(dtos, params, func(p PaymentDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

type settleRequest struct {
	outcome  enums.PaymentStatus
	metadata datatypes.JSON
	ownerID  *uuid.UUID
	load     func(ctx context.Context, repo *Repository) (*models.Payment, error)
}

// settle performs the compare-and-set transition. Only the caller that flips
// the row out of pending grants entitlements and queues the notification; a
// repeat of the same outcome returns the stored payment untouched.
func (s *service) settle(ctx context.Context, req settleRequest) (*PaymentDTO, error) {
	if !req.outcome.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outcome must be approved, rejected or cancelled")
	}

	var (
		result       models.Payment
		transitioned bool
		granted      int
	)
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := req.load(ctx, repo)
		if err != nil {
			return notFoundOrDependency(err)
		}
		if req.ownerID != nil && payment.UserID != *req.ownerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		if payment.Status.IsTerminal() {
			if err := checkReplay(payment, req.outcome); err != nil {
				return err
			}
			result = *payment
			return nil
		}

		now := s.now()
		ok, err := repo.TransitionFromPending(ctx, payment.ID, req.outcome, now, req.metadata)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: settle payment")
		}
		if !ok {
			current, err := repo.FindByID(ctx, payment.ID)
			if err != nil {
				return notFoundOrDependency(err)
			}
			if err := checkReplay(current, req.outcome); err != nil {
				return err
			}
			result = *current
			return nil
		}

		payment.Status = req.outcome
		payment.SettledAt = &now
		payment.UpdatedAt = now
		if len(req.metadata) > 0 {
			payment.ProviderMetadata = req.metadata
		}

		var courseIDs []uuid.UUID
		if req.outcome == enums.PaymentStatusApproved {
			grant, err := s.grant(ctx, tx, payment)
			if err != nil {
				return err
			}
			granted = grant.Added
			courseIDs = grant.CourseIDs
		}
		if err := s.emitSettled(ctx, tx, payment, courseIDs); err != nil {
			return err
		}

		transitioned = true
		result = *payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		s.metrics.PaymentSettled(string(result.Status))
		if granted > 0 {
			s.metrics.EntitlementsGranted(string(enums.EntitlementSourcePurchase), granted)
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"payment_id": result.ID.String(),
				"user_id":    result.UserID.String(),
				"status":     result.Status,
				"granted":    granted,
			})
			s.logg.Info(logCtx, "payment settled")
		}
	}
	dto := NewPaymentDTO(result)
	return &dto, nil
}

func (s *service) grant(ctx context.Context, tx *gorm.DB, payment *models.Payment) (*entitlements.Grant, error) {
	target, err := entitlements.TargetFromIDs(payment.CourseID, payment.PackID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve payment target")
	}
	courseIDs, err := s.entitlements.ResolveTargetCourses(ctx, tx, target)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve target courses")
	}
	paymentID := payment.ID
	grant, err := s.entitlements.GrantEntitlement(ctx, tx, payment.UserID, courseIDs, enums.EntitlementSourcePurchase, &paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant entitlements")
	}
	return grant, nil
}

func (s *service) emitSettled(ctx context.Context, tx *gorm.DB, payment *models.Payment, courseIDs []uuid.UUID) error {
	var eventType enums.OutboxEventType
	switch payment.Status {
	case enums.PaymentStatusApproved:
		eventType = enums.EventPaymentApproved
	case enums.PaymentStatusRejected:
		eventType = enums.EventPaymentRejected
	default:
		return nil
	}

	user, err := s.userRepo.WithTx(tx).ByID(ctx, payment.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment user")
	}
	kind, title, err := s.targetTitle(ctx, tx, payment)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment target")
	}

	event := outbox.Event{
		Type:          eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         &outbox.Actor{UserID: payment.UserID},
		Data: payloads.PaymentSettledEvent{
			PaymentID:     payment.ID,
			UserID:        payment.UserID,
			Email:         user.Email,
			Name:          user.Name,
			TargetKind:    string(kind),
			TargetTitle:   title,
			Amount:        payment.Amount,
			Currency:      string(payment.Currency),
			Status:        string(payment.Status),
			TransactionID: payment.TransactionID,
			CourseIDs:     courseIDs,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue payment event")
	}
	return nil
}

func (s *service) targetTitle(ctx context.Context, tx *gorm.DB, payment *models.Payment) (enums.TargetKind, string, error) {
	repo := s.catalogRepo.WithTx(tx)
	if payment.PackID != nil {
		pack, err := repo.FindPackByID(ctx, *payment.PackID)
		if err != nil {
			return "", "", err
		}
		return enums.TargetKindPack, pack.Title, nil
	}
	if payment.CourseID == nil {
		return "", "", errors.New("payment has no target")
	}
	course, err := repo.FindCourseByID(ctx, *payment.CourseID)
	if err != nil {
		return "", "", err
	}
	return enums.TargetKindCourse, course.Title, nil
}

func checkReplay(payment *models.Payment, outcome enums.PaymentStatus) error {
	if payment.Status == outcome {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment already settled").WithDetails(map[string]any{
		"current_status":   payment.Status,
		"requested_status": outcome,
	})
}

func validateCreate(input CreatePaymentInput) (CreatePaymentInput, error) {
	if input.UserID == uuid.Nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := input.Target.Validate(); err != nil {
		return input, err
	}
	if !input.Amount.IsPositive() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if !input.Currency.IsValid() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if !input.Method.IsValid() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	input.TransactionID = strings.TrimSpace(input.TransactionID)
	if input.TransactionID == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if len(input.TransactionID) > maxTransactionIDLength {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is too long")
	}
	if len(input.ProviderMetadata) > 0 && !json.Valid(input.ProviderMetadata) {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "provider metadata must be valid json")
	}
	return input, nil
}

func notFoundOrDependency(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "payment not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
}
