package internal

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	// manifestsDir is the repository directory holding all manifests.
	manifestsDir = "manifests"
	// resourcesDir separates the optional namespace from the kind in a
	// canonical path.
	resourcesDir = "resources"
	// defaultNamespace is applied to namespaced resources that do not name
	// one.
	defaultNamespace = "default"
)

var apiGroupVersionRegex = regexp.MustCompile(`^(?:([^/]+)/)?(.+)$`)

// Manifest is a read-only view of a single resource document.
type Manifest struct {
	document map[string]any
	rules    namespacer
}

// NewManifest wraps a parsed document. The document must not be modified
// afterwards.
func NewManifest(document map[string]any, rules namespacer) *Manifest {
	return &Manifest{document: document, rules: rules}
}

// APIGroupVersion is the apiVersion of a manifest split into its parts.
type APIGroupVersion struct {
	// APIGroup is empty for the core group.
	APIGroup string
	// Version is the version without the group.
	Version string
	// APIVersion is the unsplit apiVersion.
	APIVersion string
}

func (gv APIGroupVersion) GroupVersion() schema.GroupVersion {
	return schema.GroupVersion{Group: gv.APIGroup, Version: gv.Version}
}

func (m *Manifest) APIGroupVersion() (APIGroupVersion, error) {
	raw, found, err := unstructured.NestedFieldNoCopy(m.document, "apiVersion")
	if err != nil || !found || raw == nil {
		return APIGroupVersion{}, &FormatError{Field: "apiVersion", Reason: "field is absent"}
	}
	apiVersion, ok := raw.(string)
	if !ok {
		return APIGroupVersion{}, &FormatError{Field: "apiVersion", Reason: fmt.Sprintf("expected string, got %T", raw)}
	}
	matches := apiGroupVersionRegex.FindStringSubmatch(apiVersion)
	if matches == nil {
		return APIGroupVersion{}, &FormatError{Field: "apiVersion", Reason: fmt.Sprintf("%q is not of the form [group/]version", apiVersion)}
	}
	return APIGroupVersion{
		APIGroup:   matches[1],
		Version:    matches[2],
		APIVersion: apiVersion,
	}, nil
}

func (m *Manifest) Kind() (string, error) {
	return m.requiredString("kind")
}

func (m *Manifest) Name() (string, error) {
	return m.requiredString("metadata", "name")
}

func (m *Manifest) requiredString(fields ...string) (string, error) {
	field := strings.Join(fields, ".")
	raw, found, err := unstructured.NestedFieldNoCopy(m.document, fields...)
	if err != nil {
		return "", &FormatError{Field: field, Reason: err.Error()}
	}
	if !found || raw == nil {
		return "", &MissingFieldError{Field: field}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &FormatError{Field: field, Reason: fmt.Sprintf("expected string, got %T", raw)}
	}
	if s == "" {
		return "", &MissingFieldError{Field: field}
	}
	return s, nil
}

func (m *Manifest) GroupKind() (schema.GroupKind, error) {
	kind, err := m.Kind()
	if err != nil {
		return schema.GroupKind{}, err
	}
	gv, err := m.APIGroupVersion()
	if err != nil {
		return schema.GroupKind{}, err
	}
	return schema.GroupKind{Group: gv.APIGroup, Kind: kind}, nil
}

// Scope reports whether the manifest's kind is namespaced according to the
// rules. ScopeUnknown is returned as is when no rule matches.
func (m *Manifest) Scope() (Scope, error) {
	gk, err := m.GroupKind()
	if err != nil {
		return ScopeUnknown, err
	}
	return m.rules.Lookup(gk), nil
}

// Namespace resolves the namespace the manifest belongs to. The boolean is
// false when the manifest belongs to no namespace.
//
//	metadata.namespace   namespaced   cluster   unknown
//	null or empty        default      -         -
//	explicit ns          ns           -         ns
//	absent               default      -         -
func (m *Manifest) Namespace() (string, bool, error) {
	scope, err := m.Scope()
	if err != nil {
		return "", false, err
	}
	raw, found, err := unstructured.NestedFieldNoCopy(m.document, "metadata", "namespace")
	if err != nil {
		return "", false, &FormatError{Field: "metadata.namespace", Reason: err.Error()}
	}
	if !found || raw == nil || raw == "" {
		if scope == ScopeNamespaced {
			return defaultNamespace, true, nil
		}
		return "", false, nil
	}
	namespace, ok := raw.(string)
	if !ok {
		return "", false, &FormatError{Field: "metadata.namespace", Reason: fmt.Sprintf("expected string, got %T", raw)}
	}
	if scope == ScopeCluster {
		return "", false, nil
	}
	return namespace, true, nil
}

// CanonicalPath returns the repository-relative, slash-separated path at which
// the manifest belongs:
//
//	manifests/[<namespace>/]resources/<kind>/<name>.yaml
func (m *Manifest) CanonicalPath() (string, error) {
	kind, err := m.Kind()
	if err != nil {
		return "", err
	}
	name, err := m.Name()
	if err != nil {
		return "", err
	}
	namespace, namespaced, err := m.Namespace()
	if err != nil {
		return "", err
	}
	if err := checkPathSegment("kind", kind); err != nil {
		return "", err
	}
	if err := checkPathSegment("metadata.name", name); err != nil {
		return "", err
	}
	segments := []string{manifestsDir}
	if namespaced {
		if err := checkPathSegment("metadata.namespace", namespace); err != nil {
			return "", err
		}
		segments = append(segments, namespace)
	}
	segments = append(segments, resourcesDir, kind, name+".yaml")
	return path.Join(segments...), nil
}

// checkPathSegment rejects values that would not name a single entry
// beneath their parent directory.
func checkPathSegment(field, value string) error {
	if value == "." || value == ".." || strings.ContainsAny(value, `/\`) {
		return &FormatError{Field: field, Reason: fmt.Sprintf("%q is not a valid path segment", value)}
	}
	return nil
}

// MarshalYAML serializes the document with plain string keys.
func (m *Manifest) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(m.document)
}
