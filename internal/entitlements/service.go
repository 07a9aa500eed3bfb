package entitlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coursevault-backend/internal/catalog"
	"github.com/angelmondragon/coursevault-backend/pkg/db"
	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/metrics"
)

// Grant describes one entitlement write. CourseIDs are the courses the grant
// covered, whether or not the user owned some of them already.
type Grant struct {
	UserID    uuid.UUID
	CourseIDs []uuid.UUID
	Added     int
}

// OwnedCourseDTO is one course the user may watch.
type OwnedCourseDTO struct {
	Course    catalog.CourseSummaryDTO `json:"course"`
	Source    enums.EntitlementSource  `json:"source"`
	GrantedAt time.Time                `json:"granted_at"`
}

// Service owns the user_courses table.
type Service interface {
	GrantEntitlement(ctx context.Context, tx *gorm.DB, userID uuid.UUID, courseIDs []uuid.UUID, source enums.EntitlementSource, paymentID *uuid.UUID) (*Grant, error)
	ResolveTargetCourses(ctx context.Context, tx *gorm.DB, target Target) ([]uuid.UUID, error)
	ClaimFree(ctx context.Context, userID, courseID uuid.UUID) error
	HasCourse(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	ListOwned(ctx context.Context, userID uuid.UUID) ([]OwnedCourseDTO, error)
}

type ServiceParams struct {
	Repo        *Repository
	CatalogRepo *catalog.Repository
	DB          *db.Client
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
}

type service struct {
	repo        *Repository
	catalogRepo *catalog.Repository
	dbClient    *db.Client
	metrics     *metrics.Metrics
	logg        *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("entitlement repository required")
	}
	if params.CatalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{
		repo:        params.Repo,
		catalogRepo: params.CatalogRepo,
		dbClient:    params.DB,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// GrantEntitlement adds every course to the user's library inside tx. Courses
// already owned are skipped, so replaying a grant is harmless.
func (s *service) GrantEntitlement(ctx context.Context, tx *gorm.DB, userID uuid.UUID, courseIDs []uuid.UUID, source enums.EntitlementSource, paymentID *uuid.UUID) (*Grant, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "entitlement grant requires a transaction")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid entitlement source")
	}
	courseIDs = uniqueIDs(courseIDs)
	if len(courseIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one course is required")
	}

	rows := make([]models.UserCourse, 0, len(courseIDs))
	for _, courseID := range courseIDs {
		rows = append(rows, models.UserCourse{
			UserID:    userID,
			CourseID:  courseID,
			Source:    source,
			PaymentID: paymentID,
		})
	}

	txRepo := s.repo.WithTx(tx)
	added, err := txRepo.InsertIgnoringOwned(ctx, rows)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: grant entitlements")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id": userID.String(),
			"source":  source,
			"added":   added,
		})
		s.logg.Info(logCtx, "entitlements granted")
	}
	return &Grant{UserID: userID, CourseIDs: courseIDs, Added: int(added)}, nil
}

// ResolveTargetCourses expands a target to the course ids it unlocks.
func (s *service) ResolveTargetCourses(ctx context.Context, tx *gorm.DB, target Target) ([]uuid.UUID, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	repo := s.catalogRepo.WithTx(tx)

	switch target.Kind {
	case enums.TargetKindCourse:
		if _, err := repo.FindCourseByID(ctx, target.ID); err != nil {
			return nil, notFoundOrDependency(err, "course")
		}
		return []uuid.UUID{target.ID}, nil
	default:
		if _, err := repo.FindPackByID(ctx, target.ID); err != nil {
			return nil, notFoundOrDependency(err, "pack")
		}
		ids, err := repo.PackCourseIDs(ctx, target.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load pack courses")
		}
		if len(ids) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "pack has no courses")
		}
		return ids, nil
	}
}

// ClaimFree grants a free course to the user exactly once.
func (s *service) ClaimFree(ctx context.Context, userID, courseID uuid.UUID) error {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and course id are required")
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		course, err := s.catalogRepo.WithTx(tx).FindCourseByID(ctx, courseID)
		if err != nil {
			return notFoundOrDependency(err, "course")
		}
		if !course.IsPublished {
			return pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
		}
		if !course.IsFree {
			return pkgerrors.New(pkgerrors.CodeNotFree, "course is not free")
		}

		grant, err := s.GrantEntitlement(ctx, tx, userID, []uuid.UUID{courseID}, enums.EntitlementSourceFreeClaim, nil)
		if err != nil {
			return err
		}
		if grant.Added == 0 {
			return pkgerrors.New(pkgerrors.CodeAlreadyOwned, "course already owned")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.EntitlementsGranted(string(enums.EntitlementSourceFreeClaim), 1)
	return nil
}

func (s *service) HasCourse(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	ok, err := s.repo.Exists(ctx, userID, courseID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check entitlement")
	}
	return ok, nil
}

func (s *service) ListOwned(ctx context.Context, userID uuid.UUID) ([]OwnedCourseDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list entitlements")
	}
	if len(rows) == 0 {
		return []OwnedCourseDTO{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.CourseID)
	}
	courses, err := s.catalogRepo.FindCoursesByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load owned courses")
	}
	byID := make(map[uuid.UUID]models.Course, len(courses))
	for _, course := range courses {
		byID[course.ID] = course
	}

	out := make([]OwnedCourseDTO, 0, len(rows))
	for _, row := range rows {
		course, ok := byID[row.CourseID]
		if !ok {
			continue
		}
		out = append(out, OwnedCourseDTO{
			Course:    catalog.NewCourseSummaryDTO(course),
			Source:    row.Source,
			GrantedAt: row.GrantedAt,
		})
	}
	return out, nil
}

func notFoundOrDependency(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
