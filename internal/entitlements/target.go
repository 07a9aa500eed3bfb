package entitlements

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
)

// Target is what a purchase unlocks: exactly one course or one pack.
type Target struct {
	Kind enums.TargetKind
	ID   uuid.UUID
}

func CourseTarget(id uuid.UUID) Target {
	return Target{Kind: enums.TargetKindCourse, ID: id}
}

func PackTarget(id uuid.UUID) Target {
	return Target{Kind: enums.TargetKindPack, ID: id}
}

// TargetFromIDs builds a Target from nullable course/pack columns, rejecting
// rows where both or neither are set.
func TargetFromIDs(courseID, packID *uuid.UUID) (Target, error) {
	hasCourse := courseID != nil && *courseID != uuid.Nil
	hasPack := packID != nil && *packID != uuid.Nil
	switch {
	case hasCourse && hasPack:
		return Target{}, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of course_id or pack_id must be set")
	case hasCourse:
		return CourseTarget(*courseID), nil
	case hasPack:
		return PackTarget(*packID), nil
	default:
		return Target{}, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of course_id or pack_id must be set")
	}
}

// Validate checks the kind and id.
func (t Target) Validate() error {
	if !t.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid target kind")
	}
	if t.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "target id is required")
	}
	return nil
}

// Columns splits the target into the nullable course_id/pack_id pair.
func (t Target) Columns() (courseID, packID *uuid.UUID) {
	id := t.ID
	if t.Kind == enums.TargetKindPack {
		return nil, &id
	}
	return &id, nil
}
