package enums

// EntitlementSource records why a user owns a course.
type EntitlementSource string

const (
	EntitlementSourcePurchase  EntitlementSource = "purchase"
	EntitlementSourceFreeClaim EntitlementSource = "free_claim"
)

var entitlementSources = set[EntitlementSource]{EntitlementSourcePurchase, EntitlementSourceFreeClaim}

func (s EntitlementSource) String() string { return string(s) }
func (s EntitlementSource) IsValid() bool  { return entitlementSources.has(s) }
