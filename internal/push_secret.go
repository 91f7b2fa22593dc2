package internal

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// decodeObject parses a single Kubernetes object from YAML.
func decodeObject(data []byte) (*unstructured.Unstructured, error) {
	var obj map[string]any
	if err := yaml.Unmarshal(data, &obj); err != nil {
		return nil, errors.Wrap(err, "decoding object")
	}
	if obj == nil {
		return nil, errors.New("decoding object: empty document")
	}
	return &unstructured.Unstructured{Object: obj}, nil
}

func encodeObject(obj *unstructured.Unstructured) ([]byte, error) {
	data, err := yaml.Marshal(obj.Object)
	if err != nil {
		return nil, errors.Wrap(err, "encoding object")
	}
	return data, nil
}

// addPushSecretMatch adds an entry to a PushSecret's spec.data pushing the
// Kubernetes secret key to remoteKey, unless an entry for remoteKey already
// exists. It reports whether an entry was added.
func addPushSecretMatch(obj *unstructured.Unstructured, remoteKey, secretKey string) (bool, error) {
	entries, _, err := unstructured.NestedSlice(obj.Object, "spec", "data")
	if err != nil {
		return false, errors.Wrap(err, "reading spec.data")
	}
	for _, entry := range entries {
		if matchRemoteKey(entry) == remoteKey {
			return false, nil
		}
	}
	entries = append(entries, map[string]any{
		"match": map[string]any{
			"remoteRef": map[string]any{
				"remoteKey": remoteKey,
			},
			"secretKey": secretKey,
		},
	})
	if err := unstructured.SetNestedSlice(obj.Object, entries, "spec", "data"); err != nil {
		return false, errors.Wrap(err, "writing spec.data")
	}
	return true, nil
}

// sortPushSecretMatches orders a PushSecret's spec.data by remote key.
func sortPushSecretMatches(obj *unstructured.Unstructured) error {
	entries, found, err := unstructured.NestedSlice(obj.Object, "spec", "data")
	if err != nil {
		return errors.Wrap(err, "reading spec.data")
	}
	if !found {
		return nil
	}
	slices.SortStableFunc(entries, func(a, b any) int {
		return strings.Compare(matchRemoteKey(a), matchRemoteKey(b))
	})
	return errors.Wrap(unstructured.SetNestedSlice(obj.Object, entries, "spec", "data"), "writing spec.data")
}

func matchRemoteKey(entry any) string {
	m, ok := entry.(map[string]any)
	if !ok {
		return ""
	}
	key, _, _ := unstructured.NestedString(m, "match", "remoteRef", "remoteKey")
	return key
}
