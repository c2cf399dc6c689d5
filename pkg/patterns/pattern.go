// Package patterns holds the field-pattern rule set used by the field
// extractor. Rules are loaded into immutable versioned snapshots swapped
// atomically, so concurrent extractions never observe a torn update.
package patterns

import (
	"fmt"
	"regexp"
	"sort"
)

// FieldPattern is one rule for locating an invoice field's value in raw
// text. Patterns are immutable once compiled into a snapshot.
type FieldPattern struct {
	ID        string `yaml:"id"`
	FieldName string `yaml:"field"`
	Category  string `yaml:"category,omitempty"`
	Regex     string `yaml:"regex"`
	// ContextKeywords gate the match: when non-empty, at least one keyword
	// must appear on the match line or an adjacent one.
	ContextKeywords []string `yaml:"context_keywords,omitempty"`
	// DateFormatHint names the Go layout expected for date fields.
	DateFormatHint string `yaml:"date_format,omitempty"`
	// Priority orders candidates per field; lower numbers run first and win
	// confidence ties.
	Priority         int     `yaml:"priority"`
	IsActive         bool    `yaml:"active"`
	ConfidenceWeight float64 `yaml:"confidence_weight"`

	compiled *regexp.Regexp
}

// Compile validates and caches the rule's regex. The regex must contain at
// least one capture group; group 1 is the extracted value.
func (p *FieldPattern) Compile() error {
	if p.ID == "" {
		return fmt.Errorf("pattern without id for field %q", p.FieldName)
	}
	if p.FieldName == "" {
		return fmt.Errorf("pattern %s: missing field name", p.ID)
	}
	re, err := regexp.Compile(p.Regex)
	if err != nil {
		return fmt.Errorf("pattern %s: %w", p.ID, err)
	}
	if re.NumSubexp() < 1 {
		return fmt.Errorf("pattern %s: regex needs a capture group", p.ID)
	}
	if p.ConfidenceWeight <= 0 || p.ConfidenceWeight > 1 {
		return fmt.Errorf("pattern %s: confidence_weight must be in (0,1], got %v", p.ID, p.ConfidenceWeight)
	}
	p.compiled = re
	return nil
}

// Match applies the compiled regex to a line and returns the captured value.
func (p *FieldPattern) Match(line string) (string, bool) {
	if p.compiled == nil {
		return "", false
	}
	m := p.compiled.FindStringSubmatch(line)
	if m == nil || len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// Snapshot is an immutable, versioned view of the active rule set. All
// reads go through a snapshot; the library swaps whole snapshots only.
type Snapshot struct {
	Version  string
	byField  map[string][]*FieldPattern
	patterns []*FieldPattern
}

// NewSnapshot compiles the given patterns into a snapshot. Inactive rules
// are kept out of the field index but preserved in the full listing.
func NewSnapshot(version string, pats []FieldPattern) (*Snapshot, error) {
	s := &Snapshot{
		Version: version,
		byField: make(map[string][]*FieldPattern),
	}
	for i := range pats {
		p := pats[i]
		if err := p.Compile(); err != nil {
			return nil, err
		}
		s.patterns = append(s.patterns, &p)
		if p.IsActive {
			s.byField[p.FieldName] = append(s.byField[p.FieldName], &p)
		}
	}
	for _, list := range s.byField {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority < list[j].Priority
		})
	}
	return s, nil
}

// ForField returns the active patterns for a field in ascending priority
// order. Callers must not mutate the returned slice.
func (s *Snapshot) ForField(field string) []*FieldPattern {
	return s.byField[field]
}

// Fields lists every field that has at least one active pattern.
func (s *Snapshot) Fields() []string {
	fields := make([]string, 0, len(s.byField))
	for f := range s.byField {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// All returns every pattern in the snapshot, active or not.
func (s *Snapshot) All() []*FieldPattern {
	return s.patterns
}

// Len returns the number of active patterns.
func (s *Snapshot) Len() int {
	n := 0
	for _, list := range s.byField {
		n += len(list)
	}
	return n
}
