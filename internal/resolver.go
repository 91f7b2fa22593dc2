package internal

import (
	"fmt"
	"io"
	"log/slog"
)

// Resolver works out where manifests belong in the repository.
type Resolver struct {
	Rules namespacer
	// Out receives one canonical path per line when Writer is nil.
	Out io.Writer
	// Writer, if set, materializes each manifest at its canonical path
	// instead of printing the path.
	Writer  *FileWriter
	Logger  *slog.Logger
	Metrics *metrics
}

// Resolve handles each manifest in the stream r in turn, stopping at the first
// error.
func (r *Resolver) Resolve(in io.Reader) error {
	i := 0
	for manifest, err := range ParseManifests(in, r.Rules) {
		if err != nil {
			return err
		}
		if err := r.resolve(manifest); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		i++
	}
	return nil
}

func (r *Resolver) resolve(manifest *Manifest) error {
	scope, err := manifest.Scope()
	if err != nil {
		return err
	}
	path, err := manifest.CanonicalPath()
	if err != nil {
		return err
	}
	r.Metrics.documents.WithLabelValues(scope.String()).Inc()
	r.Logger.Debug("classified manifest", "path", path, "scope", scope)

	if r.Writer == nil {
		_, err := fmt.Fprintln(r.Out, path)
		return err
	}
	content, err := manifest.MarshalYAML()
	if err != nil {
		return fmt.Errorf("serializing %s: %w", path, err)
	}
	_, err = r.Writer.Create(path, content)
	return err
}
