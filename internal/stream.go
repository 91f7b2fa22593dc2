package internal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
)

// documentMarkerRegex matches the lines starting ("---") or ending ("...") a
// document. A marker at the start of a line always ends the document before
// it, so no document spans one.
var documentMarkerRegex = regexp.MustCompile(`^(---|\.\.\.)(?:[ \t]|$)`)

// ParseManifest parses src, which must hold exactly one YAML document.
func ParseManifest(src []byte, rules namespacer) (*Manifest, error) {
	file, err := parser.ParseBytes(src, 0)
	if err != nil {
		return nil, newParseError(0, 1, err)
	}
	bodies := documentBodies(file)
	if len(bodies) != 1 {
		return nil, &ParseError{Err: fmt.Errorf("expected a single document, found %d", len(bodies))}
	}
	document, err := decodeBody(bodies[0])
	if err != nil {
		return nil, newParseError(0, 1, err)
	}
	return NewManifest(document, rules), nil
}

// ParseManifests returns a sequence of the manifests in a multi-document YAML
// stream, in stream order. Documents are parsed one at a time and empty ones
// are skipped. The sequence stops after yielding the first error and can
// only be consumed once.
func ParseManifests(r io.Reader, rules namespacer) iter.Seq2[*Manifest, error] {
	return func(yield func(*Manifest, error) bool) {
		src, err := io.ReadAll(r)
		if err != nil {
			yield(nil, &ParseError{Err: err})
			return
		}
		for i, doc := range splitDocuments(src) {
			file, err := parser.ParseBytes(doc.src, 0)
			if err != nil {
				yield(nil, newParseError(i, doc.line, err))
				return
			}
			for _, body := range documentBodies(file) {
				document, err := decodeBody(body)
				if err != nil {
					yield(nil, newParseError(i, doc.line, err))
					return
				}
				if !yield(NewManifest(document, rules), nil) {
					return
				}
			}
		}
	}
}

// rawDocument is the source of one document in a stream.
type rawDocument struct {
	src []byte
	// line is the line of the stream the document starts on, counting from
	// one.
	line int
}

// splitDocuments splits a stream at its document markers. Text before the
// first "---", or after a "...", only counts as a document if it holds more
// than comments and directives.
func splitDocuments(src []byte) []rawDocument {
	var (
		docs     []rawDocument
		doc      = rawDocument{line: 1}
		explicit bool
	)
	flush := func() {
		if explicit || hasContent(doc.src) {
			docs = append(docs, doc)
		}
	}
	for i, line := range bytes.SplitAfter(src, []byte("\n")) {
		marker := documentMarkerRegex.FindSubmatch(bytes.TrimRight(line, "\r\n"))
		switch {
		case marker == nil:
			doc.src = append(doc.src, line...)
		case string(marker[1]) == "---":
			flush()
			doc = rawDocument{src: slices.Clone(line), line: i + 1}
			explicit = true
		default:
			doc.src = append(doc.src, line...)
			flush()
			doc = rawDocument{line: i + 2}
			explicit = false
		}
	}
	flush()
	return docs
}

func hasContent(src []byte) bool {
	for line := range bytes.Lines(src) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 && line[0] != '#' && line[0] != '%' {
			return true
		}
	}
	return false
}

// documentBodies returns the bodies of the non-empty documents in file.
func documentBodies(file *ast.File) []ast.Node {
	var bodies []ast.Node
	for _, doc := range file.Docs {
		if !isEmptyDocument(doc) {
			bodies = append(bodies, doc.Body)
		}
	}
	return bodies
}

func decodeBody(body ast.Node) (map[string]any, error) {
	var v any
	if err := yaml.NodeToValue(body, &v); err != nil {
		return nil, err
	}
	return toDocument(v)
}

// newParseError reports err for the document with the given index that
// starts on line of the stream. The line is narrowed to where the parser
// found the problem when it says.
func newParseError(index, line int, err error) *ParseError {
	parseErr := &ParseError{Index: index, Line: line, Err: err}
	var yamlErr yaml.Error
	if errors.As(err, &yamlErr) {
		if tk := yamlErr.GetToken(); tk != nil && tk.Position != nil {
			parseErr.Line = line + tk.Position.Line - 1
		}
	}
	return parseErr
}

func isEmptyDocument(doc *ast.DocumentNode) bool {
	if doc.Body == nil {
		return true
	}
	switch doc.Body.Type() {
	case ast.NullType, ast.CommentType:
		return true
	}
	return false
}

func toDocument(v any) (map[string]any, error) {
	switch normalized := normalizeKeys(v).(type) {
	case map[string]any:
		return normalized, nil
	default:
		return nil, fmt.Errorf("expected a mapping, got %T", v)
	}
}

// normalizeKeys converts every mapping, at any depth, into one keyed by plain
// strings, so fields are looked up the same way however the decoder typed
// the keys.
func normalizeKeys(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, e := range v {
			v[k] = normalizeKeys(e)
		}
		return v
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[fmt.Sprint(k)] = normalizeKeys(e)
		}
		return m
	case yaml.MapSlice:
		m := make(map[string]any, len(v))
		for _, item := range v {
			m[fmt.Sprint(item.Key)] = normalizeKeys(item.Value)
		}
		return m
	case []any:
		for i, e := range v {
			v[i] = normalizeKeys(e)
		}
		return v
	default:
		return v
	}
}
