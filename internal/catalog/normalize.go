package catalog

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
)

const maxSlugLength = 96

// NormalizeCourse trims the input, derives the slug from the title when absent
// and checks pricing rules. It runs on every course write.
func NormalizeCourse(input CreateCourseInput) (CreateCourseInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}

	slug, err := normalizeSlug(input.Slug, input.Title)
	if err != nil {
		return input, err
	}
	input.Slug = slug

	if err := validatePrice(input.Price, input.Currency, input.IsFree); err != nil {
		return input, err
	}
	return input, nil
}

// NormalizePack applies the same slug and price rules to packs.
func NormalizePack(input CreatePackInput) (CreatePackInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	slug, err := normalizeSlug(input.Slug, input.Title)
	if err != nil {
		return input, err
	}
	input.Slug = slug

	if err := validatePrice(input.Price, input.Currency, false); err != nil {
		return input, err
	}
	if len(input.CourseIDs) == 0 {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "a pack needs at least one course")
	}
	return input, nil
}

func normalizeSlug(raw, title string) (string, error) {
	source := strings.TrimSpace(raw)
	if source == "" {
		source = title
	}
	slug := Slugify(source)
	if slug == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "slug must contain letters or digits")
	}
	return slug, nil
}

func validatePrice(price decimal.Decimal, currency enums.Currency, isFree bool) error {
	if !currency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if isFree && !price.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "free courses must have a zero price")
	}
	if !isFree && !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	return nil
}

// Slugify lower-cases s, strips accents and joins words with hyphens.
func Slugify(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))

	var b strings.Builder
	pendingDash := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}

	slug := b.String()
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}
