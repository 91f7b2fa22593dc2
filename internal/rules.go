package internal

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"golang.org/x/exp/maps"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

//go:embed namespacing-rules.yaml
var defaultRulesYAML []byte

// Scope is the outcome of looking up a resource kind in the namespacing
// rules.
type Scope int

const (
	// ScopeUnknown means no rule matched the kind.
	ScopeUnknown Scope = iota
	ScopeNamespaced
	ScopeCluster
)

func (s Scope) String() string {
	switch s {
	case ScopeNamespaced:
		return "namespaced"
	case ScopeCluster:
		return "cluster"
	default:
		return "unknown"
	}
}

// Rule declares whether resources of a given API group and kind live in a
// namespace. An empty APIGroup is the core API group.
type Rule struct {
	APIGroup   string
	Kind       string
	Namespaced bool
}

func (r Rule) groupKind() schema.GroupKind {
	return schema.GroupKind{Group: r.APIGroup, Kind: r.Kind}
}

// namespacer determines the scope of a resource kind.
type namespacer interface {
	Lookup(gk schema.GroupKind) Scope
}

// Rules is an ordered, read-only table of namespacing rules.
type Rules struct {
	rules []Rule
}

var _ namespacer = (*Rules)(nil)

func NewRules(rules ...Rule) *Rules {
	return &Rules{rules: slices.Clone(rules)}
}

// DefaultRules returns the rules embedded in the binary. They are parsed on
// first use and shared thereafter.
var DefaultRules = sync.OnceValues(func() (*Rules, error) {
	return loadRules("embedded rules", bytes.NewReader(defaultRulesYAML))
})

// LoadRules reads a rules table from r.
func LoadRules(r io.Reader) (*Rules, error) {
	return loadRules("reader", r)
}

// LoadRulesFile reads a rules table from the file at path.
func LoadRulesFile(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigLoadError{Source: path, Err: err}
	}
	defer f.Close()
	return loadRules(path, f)
}

type rulesFile struct {
	Rules *[]ruleRecord `yaml:"rules"`
}

type ruleRecord struct {
	APIGroup   string `yaml:"apiGroup"`
	Kind       string `yaml:"kind"`
	Namespaced *bool  `yaml:"namespaced"`
}

func loadRules(source string, r io.Reader) (*Rules, error) {
	var file rulesFile
	if err := yaml.NewDecoder(r, yaml.DisallowUnknownField()).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty rules table")
		}
		return nil, &ConfigLoadError{Source: source, Err: err}
	}
	if file.Rules == nil {
		return nil, &ConfigLoadError{Source: source, Err: errors.New("missing rules key")}
	}
	rules := make([]Rule, 0, len(*file.Rules))
	for i, rec := range *file.Rules {
		if rec.Kind == "" {
			return nil, &ConfigLoadError{Source: source, Err: fmt.Errorf("rule %d: kind is required", i)}
		}
		if rec.Namespaced == nil {
			return nil, &ConfigLoadError{Source: source, Err: fmt.Errorf("rule %d (%s): namespaced is required", i, rec.Kind)}
		}
		rules = append(rules, Rule{
			APIGroup:   rec.APIGroup,
			Kind:       rec.Kind,
			Namespaced: *rec.Namespaced,
		})
	}
	return &Rules{rules: rules}, nil
}

// Lookup returns the scope declared by the first rule matching gk, or
// ScopeUnknown if no rule matches.
func (r *Rules) Lookup(gk schema.GroupKind) Scope {
	for _, rule := range r.rules {
		if rule.groupKind() != gk {
			continue
		}
		if rule.Namespaced {
			return ScopeNamespaced
		}
		return ScopeCluster
	}
	return ScopeUnknown
}

func (r *Rules) Len() int { return len(r.rules) }

// Duplicates returns the group kinds declared by more than one rule, sorted
// by group then kind. Only the first of each is ever consulted.
func (r *Rules) Duplicates() []schema.GroupKind {
	counts := make(map[schema.GroupKind]int, len(r.rules))
	for _, rule := range r.rules {
		counts[rule.groupKind()]++
	}
	maps.DeleteFunc(counts, func(_ schema.GroupKind, n int) bool { return n < 2 })
	duplicates := maps.Keys(counts)
	slices.SortFunc(duplicates, func(a, b schema.GroupKind) int {
		if c := strings.Compare(a.Group, b.Group); c != 0 {
			return c
		}
		return strings.Compare(a.Kind, b.Kind)
	})
	return duplicates
}
