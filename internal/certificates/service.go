package certificates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coursevault-backend/internal/catalog"
	"github.com/angelmondragon/coursevault-backend/internal/users"
	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/metrics"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox/payloads"
)

// Verification is the public answer for a certificate id. Everything but
// Valid is omitted on a miss.
type Verification struct {
	Valid          bool       `json:"valid"`
	CertificateID  string     `json:"certificate_id,omitempty"`
	CertificateURL string     `json:"certificate_url,omitempty"`
	StudentName    string     `json:"student_name,omitempty"`
	CourseID       *uuid.UUID `json:"course_id,omitempty"`
	CourseName     string     `json:"course_name,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
}

// Service issues certificates for completed progress and verifies them.
type Service interface {
	Issue(ctx context.Context, tx *gorm.DB, progress *models.Progress) (string, error)
	Verify(ctx context.Context, certificateID string) (*Verification, error)
}

type ServiceParams struct {
	Repo        *Repository
	UserRepo    *users.Repository
	CatalogRepo *catalog.Repository
	Outbox      outbox.Emitter
	Config      config.CertificatesConfig
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
}

type service struct {
	repo        *Repository
	userRepo    *users.Repository
	catalogRepo *catalog.Repository
	outbox      outbox.Emitter
	baseURL     string
	metrics     *metrics.Metrics
	logg        *logger.Logger
	now         func() time.Time
	newID       func() string
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("certificate repository required")
	case params.UserRepo == nil:
		return nil, fmt.Errorf("user repository required")
	case params.CatalogRepo == nil:
		return nil, fmt.Errorf("catalog repository required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:        params.Repo,
		userRepo:    params.UserRepo,
		catalogRepo: params.CatalogRepo,
		outbox:      params.Outbox,
		baseURL:     strings.TrimRight(strings.TrimSpace(params.Config.PublicBaseURL), "/"),
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}, nil
}

// Issue mints a certificate id for a completed progress record inside tx.
// Calling it again returns the id already stored.
func (s *service) Issue(ctx context.Context, tx *gorm.DB, progress *models.Progress) (string, error) {
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "certificate issuance requires a transaction")
	}
	if progress == nil || progress.ID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "progress is required")
	}
	if progress.CertificateIssued && progress.CertificateID != nil {
		return *progress.CertificateID, nil
	}
	if !progress.IsCompleted {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "course is not completed")
	}

	repo := s.repo.WithTx(tx)
	certificateID := s.newID()
	url := s.certificateURL(certificateID)
	now := s.now()

	issued, err := repo.MarkIssued(ctx, progress.ID, certificateID, url, now)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: issue certificate")
	}
	if !issued {
		current, err := repo.FindProgress(ctx, progress.ID)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload progress")
		}
		if !current.CertificateIssued || current.CertificateID == nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "course is not completed")
		}
		*progress = *current
		return *current.CertificateID, nil
	}

	progress.CertificateIssued = true
	progress.CertificateID = &certificateID
	progress.CertificateURL = &url
	progress.CertificateIssuedAt = &now

	if err := s.emitIssued(ctx, tx, progress, now); err != nil {
		return "", err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"progress_id": progress.ID.String(),
			"course_id":   progress.CourseID.String(),
		})
		s.logg.Info(logCtx, "certificate issued")
	}
	return certificateID, nil
}

// Verify never fails for an unknown or malformed id; it reports Valid=false.
func (s *service) Verify(ctx context.Context, certificateID string) (*Verification, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(certificateID))
	if err != nil {
		s.metrics.CertificateVerified(false)
		return &Verification{Valid: false}, nil
	}

	row, err := s.repo.FindIssued(ctx, parsed.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: verify certificate")
	}
	if row == nil {
		s.metrics.CertificateVerified(false)
		return &Verification{Valid: false}, nil
	}

	s.metrics.CertificateVerified(true)
	courseID := row.CourseID
	out := &Verification{
		Valid:         true,
		CertificateID: row.CertificateID,
		StudentName:   row.StudentName,
		CourseID:      &courseID,
		CourseName:    row.CourseTitle,
		CompletedAt:   row.CompletedAt,
		IssuedAt:      row.IssuedAt,
	}
	if row.CertificateURL != nil {
		out.CertificateURL = *row.CertificateURL
	}
	return out, nil
}

func (s *service) emitIssued(ctx context.Context, tx *gorm.DB, progress *models.Progress, at time.Time) error {
	user, err := s.userRepo.WithTx(tx).ByID(ctx, progress.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load certificate student")
	}
	course, err := s.catalogRepo.WithTx(tx).FindCourseByID(ctx, progress.CourseID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load certificate course")
	}

	event := outbox.Event{
		Type:          enums.EventCertificateIssued,
		AggregateType: enums.AggregateProgress,
		AggregateID:   progress.ID,
		Actor:         &outbox.Actor{UserID: progress.UserID},
		Data: payloads.CertificateIssuedEvent{
			ProgressID:     progress.ID,
			UserID:         user.ID,
			Email:          user.Email,
			Name:           user.Name,
			CourseID:       course.ID,
			CourseTitle:    course.Title,
			CertificateID:  *progress.CertificateID,
			CertificateURL: *progress.CertificateURL,
			IssuedAt:       at,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue certificate event")
	}
	return nil
}

func (s *service) certificateURL(certificateID string) string {
	if s.baseURL == "" {
		return certificateID
	}
	return s.baseURL + "/" + certificateID
}
