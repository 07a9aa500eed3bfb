package enums

// TargetKind says whether a payment buys a single course or a pack.
type TargetKind string

const (
	TargetKindCourse TargetKind = "course"
	TargetKindPack   TargetKind = "pack"
)

var targetKinds = set[TargetKind]{TargetKindCourse, TargetKindPack}

func (k TargetKind) String() string { return string(k) }
func (k TargetKind) IsValid() bool  { return targetKinds.has(k) }

func ParseTargetKind(raw string) (TargetKind, error) { return targetKinds.parse("target kind", raw) }
