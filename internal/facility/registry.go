// Package facility holds facility metadata shared across a batch run.
package facility

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// ErrNotFound is returned when a facility is not registered.
var ErrNotFound = errors.New("facility not found")

// Facility is one registered facility.
type Facility struct {
	ID          string                  `yaml:"id" json:"id"`
	Name        string                  `yaml:"name" json:"name"`
	Region      string                  `yaml:"region" json:"region"`
	Address     string                  `yaml:"address,omitempty" json:"address,omitempty"`
	Operator    string                  `yaml:"operator,omitempty" json:"operator,omitempty"`
	Institution pricing.InstitutionType `yaml:"institution,omitempty" json:"institution,omitempty"`
}

// registryFile is the on-disk layout.
type registryFile struct {
	Facilities []Facility `yaml:"facilities" json:"facilities"`
}

// Registry is an immutable, in-memory index of facilities. Build it once at
// process start and pass it to the components that need it.
type Registry struct {
	byID  map[string]Facility
	order []string
	index map[string]string // id -> normalized search text
}

// NewRegistry indexes facilities. Later duplicates of an ID replace earlier
// ones.
func NewRegistry(facilities []Facility) *Registry {
	r := &Registry{
		byID:  make(map[string]Facility, len(facilities)),
		index: make(map[string]string, len(facilities)),
	}
	for _, f := range facilities {
		f.ID = strings.TrimSpace(f.ID)
		if f.ID == "" {
			continue
		}
		if f.Institution == pricing.InstitutionUnknown {
			f.Institution = pricing.InstitutionFromName(f.Name + " " + f.Operator)
		} else {
			f.Institution = pricing.ParseInstitutionType(string(f.Institution))
		}
		if _, seen := r.byID[f.ID]; !seen {
			r.order = append(r.order, f.ID)
		}
		r.byID[f.ID] = f
		r.index[f.ID] = searchKey(f.Name + " " + f.Region + " " + f.Address)
	}
	return r
}

// LoadRegistry reads a YAML or JSON registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var file registryFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse registry json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse registry yaml: %w", err)
		}
	}

	return NewRegistry(file.Facilities), nil
}

// Len returns the number of registered facilities.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Get returns the facility with id.
func (r *Registry) Get(id string) (Facility, error) {
	if r != nil {
		if f, ok := r.byID[id]; ok {
			return f, nil
		}
	}
	return Facility{}, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// All returns every facility in registration order.
func (r *Registry) All() []Facility {
	if r == nil {
		return nil
	}
	out := make([]Facility, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Search returns facilities whose name, region or address contains every
// whitespace-separated term of query, sorted by name.
func (r *Registry) Search(query string) []Facility {
	if r == nil {
		return nil
	}
	terms := strings.Fields(searchKey(query))
	var out []Facility
	for _, id := range r.order {
		text := r.index[id]
		matched := true
		for _, term := range terms {
			if !strings.Contains(text, term) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, r.byID[id])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// InstitutionType resolves public or private operation from registry
// metadata, falling back to name keywords when id is unknown.
func (r *Registry) InstitutionType(id, name string) pricing.InstitutionType {
	if f, err := r.Get(id); err == nil && f.Institution != pricing.InstitutionUnknown {
		return f.Institution
	}
	return pricing.InstitutionFromName(name)
}

func searchKey(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
