package pricing

import (
	"strings"
	"unicode"
)

// CategoryKey is one of the six fixed taxonomy keys.
type CategoryKey string

const (
	CategoryBasic       CategoryKey = "기본비용"
	CategoryBurial      CategoryKey = "매장묘"
	CategoryNicheGrave  CategoryKey = "봉안묘"
	CategoryColumbarium CategoryKey = "봉안당"
	CategoryNatural     CategoryKey = "수목장"
	CategoryOther       CategoryKey = "기타"
)

// categoryDef describes a taxonomy bucket.
type categoryDef struct {
	Key         CategoryKey
	DisplayName string
	Normalized  string
}

// taxonomy is ordered; the slice index is the category's OrderIndex.
var taxonomy = []categoryDef{
	{CategoryBasic, "기본비용", "basic"},
	{CategoryBurial, "매장묘", "burial"},
	{CategoryNicheGrave, "봉안묘", "niche_grave"},
	{CategoryColumbarium, "봉안당", "columbarium"},
	{CategoryNatural, "수목장", "natural"},
	{CategoryOther, "기타", "other"},
}

// Categories returns the taxonomy keys in display order.
func Categories() []CategoryKey {
	keys := make([]CategoryKey, len(taxonomy))
	for i, def := range taxonomy {
		keys[i] = def.Key
	}
	return keys
}

// Valid reports whether k is a taxonomy key.
func (k CategoryKey) Valid() bool {
	return k.OrderIndex() >= 0
}

// OrderIndex returns the fixed display position, or -1 for unknown keys.
func (k CategoryKey) OrderIndex() int {
	for i, def := range taxonomy {
		if def.Key == k {
			return i
		}
	}
	return -1
}

// DisplayName returns the human-facing category label.
func (k CategoryKey) DisplayName() string {
	if i := k.OrderIndex(); i >= 0 {
		return taxonomy[i].DisplayName
	}
	return string(k)
}

// Normalized returns the ASCII key emitted in the output schema.
func (k CategoryKey) Normalized() string {
	if i := k.OrderIndex(); i >= 0 {
		return taxonomy[i].Normalized
	}
	return "other"
}

// ParseCategoryKey accepts either a display name or a normalized key.
func ParseCategoryKey(s string) (CategoryKey, bool) {
	s = strings.TrimSpace(s)
	for _, def := range taxonomy {
		if s == string(def.Key) || strings.EqualFold(s, def.Normalized) {
			return def.Key, true
		}
	}
	return CategoryOther, false
}

// SuperGroup is a product family used for representative price selection.
type SuperGroup string

const (
	SuperGroupBurial      SuperGroup = "burial"
	SuperGroupColumbarium SuperGroup = "columbarium"
	SuperGroupNatural     SuperGroup = "natural"
)

// SuperGroups lists the families in summary order.
func SuperGroups() []SuperGroup {
	return []SuperGroup{SuperGroupBurial, SuperGroupColumbarium, SuperGroupNatural}
}

// SuperGroupOf maps a category onto its product family.
func SuperGroupOf(k CategoryKey) (SuperGroup, bool) {
	switch k {
	case CategoryBurial:
		return SuperGroupBurial, true
	case CategoryColumbarium, CategoryNicheGrave:
		return SuperGroupColumbarium, true
	case CategoryNatural:
		return SuperGroupNatural, true
	}
	return "", false
}

// administrativeMarkers flag lines that carry contact or page furniture
// rather than prices.
var administrativeMarkers = []string{
	"전화", "연락처", "tel", "팩스", "fax", "주소", "업데이트", "copyright", "사업자등록번호", "홈페이지",
}

// IsAdministrativeNoise reports whether text contains an administrative marker.
func IsAdministrativeNoise(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range administrativeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// CompareKey lower-cases s and drops all whitespace, for name comparison.
func CompareKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// InstitutionType separates publicly and privately operated facilities.
type InstitutionType string

const (
	InstitutionUnknown InstitutionType = ""
	InstitutionPublic  InstitutionType = "public"
	InstitutionPrivate InstitutionType = "private"
)

// publicMarkers in a facility name imply public operation.
var publicMarkers = []string{"공설", "시립", "군립", "구립", "도립", "시설관리공단"}

// InstitutionFromName infers the institution type from a facility name.
// Names without a public marker are private.
func InstitutionFromName(name string) InstitutionType {
	for _, m := range publicMarkers {
		if strings.Contains(name, m) {
			return InstitutionPublic
		}
	}
	return InstitutionPrivate
}

// ParseInstitutionType accepts public/private and their Korean labels.
func ParseInstitutionType(s string) InstitutionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public", "공설", "공공", "공립":
		return InstitutionPublic
	case "private", "사설", "법인", "민간":
		return InstitutionPrivate
	}
	return InstitutionUnknown
}
