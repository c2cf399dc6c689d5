// Package templates implements vendor-specific extraction overrides. A
// template bundles its own field patterns with a minimum confidence
// threshold; when a template matches confidently its fields replace the
// generic extractor's output for only the fields it defines.
package templates

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/paperglass/paperglass/pkg/fields"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
	"github.com/paperglass/paperglass/pkg/patterns"
)

// Template is one vendor's rule bundle.
type Template struct {
	Name string `yaml:"name"`
	// Vendor is informational; matching is driven purely by extraction
	// confidence, not vendor detection.
	Vendor        string                  `yaml:"vendor,omitempty"`
	MinConfidence float64                 `yaml:"min_confidence"`
	Patterns      []patterns.FieldPattern `yaml:"patterns"`

	snapshot *patterns.Snapshot
}

// Compile validates the template and builds its pattern snapshot.
func (t *Template) Compile() error {
	if t.Name == "" {
		return fmt.Errorf("template without a name")
	}
	if t.MinConfidence <= 0 || t.MinConfidence > 1 {
		return fmt.Errorf("template %s: min_confidence must be in (0,1], got %v", t.Name, t.MinConfidence)
	}
	if len(t.Patterns) == 0 {
		return fmt.Errorf("template %s: no patterns", t.Name)
	}
	snap, err := patterns.NewSnapshot("template:"+t.Name, t.Patterns)
	if err != nil {
		return fmt.Errorf("template %s: %w", t.Name, err)
	}
	t.snapshot = snap
	return nil
}

// MatchResult is a winning template's extraction output.
type MatchResult struct {
	Name   string
	Score  float64
	Fields []invoice.ExtractedField
}

// Matcher tries registered templates in order.
type Matcher struct {
	templates []Template
	extractor *fields.Extractor
	logger    logging.Logger
}

// NewMatcher compiles the templates and wires them to a field extractor.
// An empty template list is valid; Match then always reports no match.
func NewMatcher(tmpls []Template, logger logging.Logger) (*Matcher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	for i := range tmpls {
		if err := tmpls[i].Compile(); err != nil {
			return nil, err
		}
	}
	return &Matcher{
		templates: tmpls,
		extractor: fields.NewExtractor(logger),
		logger:    logger,
	}, nil
}

// Match runs templates in registration order and returns the first whose
// extraction scores at or above its own threshold.
func (m *Matcher) Match(text string, regs []invoice.TextRegion) (*MatchResult, bool) {
	for i := range m.templates {
		t := &m.templates[i]
		extracted := m.extractor.ExtractAll(text, regs, t.snapshot)
		score := templateScore(t.snapshot, extracted)
		if score >= t.MinConfidence {
			m.logger.Info("vendor template matched",
				logging.F("template", t.Name),
				logging.F("score", score),
				logging.F("fields", len(extracted)))
			return &MatchResult{Name: t.Name, Score: score, Fields: extracted}, true
		}
		m.logger.Debug("vendor template below threshold",
			logging.F("template", t.Name),
			logging.F("score", score),
			logging.F("threshold", t.MinConfidence))
	}
	return nil, false
}

// templateScore averages found-field confidence over every field the
// template defines, so missing fields drag the score down.
func templateScore(snap *patterns.Snapshot, extracted []invoice.ExtractedField) float64 {
	defined := snap.Fields()
	if len(defined) == 0 {
		return 0
	}
	var sum float64
	for _, f := range extracted {
		sum += f.Confidence
	}
	return sum / float64(len(defined))
}

// Apply overlays template extraction onto the generic result: template
// fields replace same-named generic fields; generic fields the template
// does not define pass through untouched.
func Apply(generic []invoice.ExtractedField, match *MatchResult) []invoice.ExtractedField {
	if match == nil {
		return generic
	}
	byName := make(map[string]invoice.ExtractedField, len(match.Fields))
	for _, f := range match.Fields {
		byName[f.Name] = f
	}

	out := make([]invoice.ExtractedField, 0, len(generic)+len(match.Fields))
	for _, g := range generic {
		if tf, ok := byName[g.Name]; ok {
			out = append(out, tf)
			delete(byName, g.Name)
			continue
		}
		out = append(out, g)
	}
	// Template fields the generic pass never found.
	for _, f := range match.Fields {
		if _, ok := byName[f.Name]; ok {
			out = append(out, f)
		}
	}
	return out
}

// templateFile is the on-disk YAML layout.
type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadFile reads vendor templates from a YAML file. Registration order is
// file order.
func LoadFile(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates %s: %w", path, err)
	}
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}
	return f.Templates, nil
}
