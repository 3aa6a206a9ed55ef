package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

var (
	remarkPattern    = regexp.MustCompile(`\([^()]*\)|\[[^\[\]]*\]|（[^（）]*）`)
	sizeTokenPattern = regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:평형|평|㎡|m²|m2|자)`)
	basisPattern     = regexp.MustCompile(`기준`)
	qualifierSize    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*평`)
)

// canonicalNames folds base fee spellings onto one label.
var canonicalNames = map[string]string{
	"묘지사용료": "사용료",
	"묘지관리비": "관리비",
}

// StripQualifiers removes size tokens, "기준" and bracketed remarks from
// name and returns the cleaned name with the removed pieces in order.
func StripQualifiers(name string) (string, []string) {
	return stripQualifiers(name, true)
}

func stripQualifiers(name string, sizes bool) (string, []string) {
	var removed []string
	take := func(re *regexp.Regexp, s string) string {
		return re.ReplaceAllStringFunc(s, func(tok string) string {
			removed = append(removed, strings.TrimSpace(tok))
			return " "
		})
	}

	clean := take(remarkPattern, name)
	if sizes {
		clean = take(sizeTokenPattern, clean)
	}
	clean = take(basisPattern, clean)
	clean = strings.Join(strings.Fields(clean), " ")
	return clean, removed
}

// ExtractQualifiers rewrites item so its name carries only the product
// label. Removed qualifiers move into Detail and a 평 size found in the name
// or detail fills SizeValue when the normalizer did not. With stripSizes
// false, size tokens stay in the name since they tell products apart.
func ExtractQualifiers(item pricing.LineItem, stripSizes bool) pricing.LineItem {
	clean, removed := stripQualifiers(item.Name, stripSizes)
	if clean == "" {
		return item
	}
	if canonical, ok := canonicalNames[clean]; ok && item.Category == pricing.CategoryBasic {
		clean = canonical
	}
	item.Name = clean

	if len(removed) > 0 {
		qualifiers := joinQualifiers(removed)
		switch {
		case item.Detail == "":
			item.Detail = qualifiers
		case !strings.Contains(item.Detail, qualifiers):
			item.Detail = qualifiers + " " + item.Detail
		}
	}

	if item.SizeValue == nil {
		for _, text := range []string{item.Name, item.Detail} {
			m := qualifierSize.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				item.SizeValue, item.SizeUnit = &v, pricing.UnitPyeong
				break
			}
		}
	}
	return item
}

// joinQualifiers glues "1평형" and "기준" back into "1평형 기준".
func joinQualifiers(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
