// Package classify assigns line items to the fixed price taxonomy.
package classify

import (
	"strings"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// Rule is one entry of the ordered classification table.
type Rule struct {
	Name     string
	Category pricing.CategoryKey
	Match    func(n Name) bool
}

// Name is the text a rule looks at.
type Name struct {
	// Raw is the trimmed item name.
	Raw string
	// Compact is Raw without bracketed remarks, lower-cased and without
	// whitespace.
	Compact string
	// Key is the name with size qualifiers and remarks removed.
	Key string
}

// NewName prepares name for rule matching.
func NewName(name string) Name {
	raw := strings.TrimSpace(name)
	clean, _ := StripQualifiers(raw)
	label := strings.TrimSpace(remarkPattern.ReplaceAllString(raw, " "))
	if label == "" {
		label = raw
	}
	return Name{
		Raw:     raw,
		Compact: pricing.CompareKey(label),
		Key:     clean,
	}
}

// StoneworkLexicon lists burial-plot stone accessories.
var StoneworkLexicon = []string{
	"상석", "비석", "와비", "둘레석", "경계석", "묘테", "석관", "장대석",
	"망두석", "좌대", "북석", "혼유", "화병", "향로", "월석", "갓석",
}

// OccupancyPrefixes mark items sold per occupant rather than as accessories.
var OccupancyPrefixes = []string{"개인", "부부", "가족"}

var (
	laborKeywords       = []string{"작업비", "설치비", "개장", "수선비"}
	columbariumKeywords = []string{"봉안당", "봉안담", "개인단", "부부단", "탑형"}
	naturalKeywords     = []string{"수목", "정원형", "자연장", "평장"}
	plotKeywords        = []string{"매장", "묘역", "묘지", "분묘", "단분", "쌍분", "합장", "개인묘", "부부묘", "가족묘"}
)

// BasicFeeNames is the closed list of names that are base fees. Matching is
// exact on the qualifier-stripped name.
var BasicFeeNames = []string{"사용료", "묘지사용료", "관리비", "묘지관리비", "시설사용료"}

// DefaultRules is evaluated top to bottom; the first match wins.
var DefaultRules = []Rule{
	{
		Name:     "stonework",
		Category: pricing.CategoryBurial,
		Match: func(n Name) bool {
			return containsAny(n.Compact, StoneworkLexicon) && !hasAnyPrefix(n.Raw, OccupancyPrefixes)
		},
	},
	{
		Name:     "labor",
		Category: pricing.CategoryBurial,
		Match:    func(n Name) bool { return containsAny(n.Compact, laborKeywords) },
	},
	{
		Name:     "columbarium",
		Category: pricing.CategoryColumbarium,
		Match:    func(n Name) bool { return containsAny(n.Compact, columbariumKeywords) },
	},
	{
		Name:     "niche_grave",
		Category: pricing.CategoryNicheGrave,
		Match: func(n Name) bool {
			return strings.Contains(n.Compact, "봉안") && !strings.Contains(n.Compact, "봉안당")
		},
	},
	{
		Name:     "natural",
		Category: pricing.CategoryNatural,
		Match:    func(n Name) bool { return containsAny(n.Compact, naturalKeywords) },
	},
	{
		Name:     "basic_fee",
		Category: pricing.CategoryBasic,
		Match:    func(n Name) bool { return IsBasicFeeName(n.Key) },
	},
	{
		// Not one of the seven fixed rules. Plot rows such as "매장묘 3평"
		// would otherwise fall through to 기타 and leave the burial
		// representative empty. Runs after the exact fee rule so "묘지사용료"
		// stays a base fee.
		Name:     "burial_plot",
		Category: pricing.CategoryBurial,
		Match:    func(n Name) bool { return containsAny(n.Compact, plotKeywords) },
	},
}

// IsBasicFeeName reports whether name is exactly one of the base fee names.
func IsBasicFeeName(name string) bool {
	name = strings.TrimSpace(name)
	for _, fee := range BasicFeeNames {
		if name == fee {
			return true
		}
	}
	return false
}

// GroupRule maps a keyword to a group label inside one category.
type GroupRule struct {
	Keyword string
	Group   string
}

// DefaultGroups holds the category-scoped group tables. Occupancy comes
// first so "부부 상석" groups as 부부.
var DefaultGroups = map[pricing.CategoryKey][]GroupRule{
	pricing.CategoryBasic: {
		{"사용료", "사용료"},
		{"관리비", "관리비"},
	},
	pricing.CategoryBurial: {
		{"개인", "개인"},
		{"부부", "부부"},
		{"합장", "부부"},
		{"가족", "가족"},
		{"상석", "상석"},
		{"비석", "비석"},
		{"둘레석", "둘레석"},
		{"와비", "와비"},
		{"작업비", "작업비"},
		{"설치비", "작업비"},
		{"개장", "개장"},
		{"수선비", "수선비"},
		{"석", "석물"},
	},
	pricing.CategoryNicheGrave: {
		{"개인", "개인"},
		{"부부", "부부"},
		{"가족", "가족"},
	},
	pricing.CategoryColumbarium: {
		{"개인단", "개인"},
		{"부부단", "부부"},
		{"개인", "개인"},
		{"부부", "부부"},
		{"가족", "가족"},
		{"탑형", "탑형"},
		{"특실", "특실"},
		{"로얄", "로얄"},
		{"일반", "일반"},
	},
	pricing.CategoryNatural: {
		{"개인", "개인"},
		{"부부", "부부"},
		{"가족", "가족"},
		{"공동", "공동"},
		{"정원형", "정원형"},
		{"평장", "평장"},
		{"수목", "수목"},
	},
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
