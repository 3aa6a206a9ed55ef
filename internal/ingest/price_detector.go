package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// Default price guardrails, in 원.
const (
	DefaultMinPrice int64 = 100
	DefaultMaxPrice int64 = 5_000_000_000
)

// PriceDetectorConfig holds price detector configuration.
type PriceDetectorConfig struct {
	MinPrice int64
	MaxPrice int64
}

// PriceDetector splits a line into name, price and trailing qualifier.
type PriceDetector struct {
	minPrice int64
	maxPrice int64
}

// amountPattern matches a comma-grouped or plain number with an optional
// 원 or 만원 suffix.
var amountPattern = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)(\s*만\s*원|\s*만|\s*원)?`)

// NewPriceDetector creates a new price detector.
func NewPriceDetector(cfg PriceDetectorConfig) *PriceDetector {
	if cfg.MinPrice <= 0 {
		cfg.MinPrice = DefaultMinPrice
	}
	if cfg.MaxPrice <= 0 {
		cfg.MaxPrice = DefaultMaxPrice
	}
	return &PriceDetector{minPrice: cfg.MinPrice, maxPrice: cfg.MaxPrice}
}

// Detect returns the candidate for line, or false when the line carries no
// usable price or no usable name.
func (d *PriceDetector) Detect(line pricing.RawLine) (pricing.PriceCandidate, bool) {
	text := strings.TrimSpace(line.Text)
	if text == "" || pricing.IsAdministrativeNoise(text) {
		return pricing.PriceCandidate{}, false
	}

	start, end, price, ok := lastAmount(text)
	if !ok {
		return pricing.PriceCandidate{}, false
	}
	if price < d.minPrice || price > d.maxPrice {
		return pricing.PriceCandidate{}, false
	}

	name := trimName(text[:start])
	if !hasLetter(name) {
		return pricing.PriceCandidate{}, false
	}

	return pricing.PriceCandidate{
		NamePart: name,
		Price:    price,
		Detail:   strings.TrimSpace(text[end:]),
		RawLine:  line,
	}, true
}

// InRange reports whether price passes the detector's guardrails.
func (d *PriceDetector) InRange(price int64) bool {
	return price >= d.minPrice && price <= d.maxPrice
}

// ParsePrice parses a free-form price string such as "3,000,000원",
// "300만원" or "450000". Anything else is rejected.
func ParsePrice(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	start, end, price, ok := lastAmount(s)
	if !ok {
		return 0, false
	}
	if strings.TrimSpace(s[:start]) != "" || strings.TrimSpace(s[end:]) != "" {
		return 0, false
	}
	return price, true
}

// lastAmount finds the right-most currency token in text and returns its
// byte span and value in 원. Comma-grouped, 원 and 만원 amounts win over bare
// numbers; a bare number is used only when the line has no marked amount.
func lastAmount(text string) (int, int, int64, bool) {
	matches := amountPattern.FindAllStringSubmatchIndex(text, -1)
	bare := -1
	var bareValue int64
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		number := text[m[2]:m[3]]
		unit := ""
		if m[4] >= 0 {
			unit = strings.ReplaceAll(text[m[4]:m[5]], " ", "")
		}

		if m[0] > 0 {
			before, _ := utf8.DecodeLastRuneInString(text[:m[0]])
			if unicode.IsDigit(before) || before == ',' || before == '.' {
				continue
			}
		}
		if unit == "" && m[1] < len(text) {
			next, _ := utf8.DecodeRuneInString(text[m[1]:])
			if unicode.IsLetter(next) || unicode.IsDigit(next) || strings.ContainsRune("㎡²%,.", next) {
				continue
			}
		}

		value, ok := amountValue(number, unit)
		if !ok {
			continue
		}
		if unit != "" || strings.Contains(number, ",") {
			return m[0], m[1], value, true
		}
		if bare < 0 {
			bare, bareValue = i, value
		}
	}
	if bare < 0 {
		return 0, 0, 0, false
	}
	return matches[bare][0], matches[bare][1], bareValue, true
}

func amountValue(number, unit string) (int64, bool) {
	grouped := strings.Contains(number, ",")
	digits := strings.ReplaceAll(number, ",", "")

	switch unit {
	case "만원", "만":
		f, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return 0, false
		}
		return int64(math.Round(f * 10000)), true
	case "원":
		if strings.Contains(digits, ".") {
			return 0, false
		}
	default:
		// A bare number needs at least three digits to count as money.
		if strings.Contains(digits, ".") || (!grouped && len(digits) < 3) {
			return 0, false
		}
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// trimName drops separators left between a name and its price.
func trimName(s string) string {
	return strings.TrimRightFunc(strings.TrimSpace(s), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(":：-=·…~→", r) || r == '.'
	})
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
