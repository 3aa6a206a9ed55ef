package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// ErrInvalidCandidateJSON is returned when candidate JSON fails to decode
// or does not match the candidate schema.
var ErrInvalidCandidateJSON = errors.New("invalid candidate json")

// CandidateItem is one item of candidate JSON. Price is already parsed;
// items whose price could not be parsed are dropped during decoding.
type CandidateItem struct {
	Name     string
	Price    int64
	Detail   string
	Category string
}

const candidateSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "price"],
        "properties": {
          "name": {"type": "string"},
          "price": {"type": ["number", "string", "null"]},
          "detail": {"type": ["string", "null"]},
          "category": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var compiledCandidateSchema = jsonschema.MustCompileString("candidate.json", candidateSchema)

var codeFencePattern = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\\n(.*?)\\n?```\\s*$")

type rawCandidate struct {
	Name     string          `json:"name"`
	Price    json.RawMessage `json:"price"`
	Detail   *string         `json:"detail"`
	Category *string         `json:"category"`
}

// DecodeCandidates validates and decodes candidate JSON of the shape
// {"items": [{"name", "price", "detail"}]}. Markdown code fences around the
// payload are tolerated. Prices may be numbers or strings such as
// "3,000,000원" or "300만원".
func DecodeCandidates(data []byte) ([]CandidateItem, error) {
	data = stripCodeFence(data)

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCandidateJSON, err)
	}
	if err := compiledCandidateSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCandidateJSON, err)
	}

	var payload struct {
		Items []rawCandidate `json:"items"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCandidateJSON, err)
	}

	items := make([]CandidateItem, 0, len(payload.Items))
	for _, raw := range payload.Items {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			continue
		}
		price, ok := parseCandidatePrice(raw.Price)
		if !ok {
			continue
		}
		item := CandidateItem{Name: name, Price: price}
		if raw.Detail != nil {
			item.Detail = strings.TrimSpace(*raw.Detail)
		}
		if raw.Category != nil {
			item.Category = strings.TrimSpace(*raw.Category)
		}
		items = append(items, item)
	}
	return items, nil
}

// LineItem converts a candidate into an unclassified extracted item. Any
// category the extractor suggested is dropped so the rule table decides.
func (c CandidateItem) LineItem(docID string) pricing.LineItem {
	return pricing.LineItem{
		Name:        c.Name,
		Price:       c.Price,
		Detail:      c.Detail,
		SourceType:  pricing.SourceExtracted,
		SourceDocID: docID,
	}
}

// DecodeStructured reads operator-entered rows in the candidate JSON shape. A
// category naming a taxonomy key is kept; other rows go to the classifier.
func DecodeStructured(data []byte) ([]pricing.LineItem, error) {
	candidates, err := DecodeCandidates(data)
	if err != nil {
		return nil, err
	}
	items := make([]pricing.LineItem, len(candidates))
	for i, c := range candidates {
		item := c.LineItem("")
		item.SourceType = pricing.SourceStructured
		if key, ok := pricing.ParseCategoryKey(c.Category); ok {
			item.Category = key
		}
		items[i] = item
	}
	return items, nil
}

func parseCandidatePrice(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		return ParsePrice(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || f < 0 || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func stripCodeFence(data []byte) []byte {
	if m := codeFencePattern.FindSubmatch(data); m != nil {
		return m[1]
	}
	return data
}
