package internal

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// secretsNamespace is the namespace holding all ExternalSecrets and
// PushSecrets.
const secretsNamespace = "secrets"

// SecretOptions describes the secret to sync from 1Password to Vault.
type SecretOptions struct {
	SecretName string
	// Repos are the org/repo names the secret is pushed for.
	Repos []string
	// Template names the kind of secret, e.g. dockerhub or aws.
	Template string
	// SecretType is one of repo, org or branch.
	SecretType           string
	Org                  string
	SecretPath           string
	PrivateKeySecretPath string
	TokenApp             string
}

// remoteKey is the Vault path of the secret for repo.
func (o SecretOptions) remoteKey(t resolvedTemplate, repo string) string {
	if o.SecretPath != "" {
		return o.SecretPath
	}
	return fmt.Sprintf("secret/data/github/%s/%s/%s", o.SecretType, repo, t.pathSuffix)
}

// SecretGenerator generates an ExternalSecret importing a secret from
// 1Password, and a PushSecret exporting it to Vault for each repository.
type SecretGenerator struct {
	Rules     namespacer
	Templates fs.FS
	// Files locates existing manifests and, when WriteToFiles is set,
	// receives generated ones.
	Files        *FileWriter
	WriteToFiles bool
	// Out receives generated manifests when WriteToFiles is unset.
	Out     io.Writer
	Logger  *slog.Logger
	Metrics *metrics
}

func (g *SecretGenerator) Generate(opts SecretOptions) error {
	if opts.SecretName == "" {
		return errors.New("a secret name is required")
	}
	if opts.Template == "" {
		return errors.New("a template is required")
	}
	if len(opts.Repos) == 0 && opts.SecretPath == "" {
		return errors.New("at least one repository is required unless the secret path is given")
	}
	if opts.SecretType == "" {
		opts.SecretType = "repo"
	}
	tmpl, err := resolveTemplate(opts)
	if err != nil {
		return err
	}
	file, err := loadTemplateFile(g.Templates, tmpl.file)
	if err != nil {
		return err
	}

	var firstRepo string
	if len(opts.Repos) > 0 {
		firstRepo = opts.Repos[0]
	}
	data := templateData{
		SecretName:           opts.SecretName,
		PrivateKeySecretPath: opts.PrivateKeySecretPath,
		ExternalSecretName:   "import-" + opts.SecretName,
		PushSecretName:       "export-" + opts.SecretName,
		Namespace:            secretsNamespace,
		CredentialsJSON:      tmpl.credentialsJSON,
		KubeSecretKey:        tmpl.secretKey,
		SecretPath:           opts.remoteKey(tmpl, firstRepo),
	}

	if err := g.generateExternalSecret(file, data); err != nil {
		return err
	}
	return g.generatePushSecret(file, data, opts, tmpl)
}

func (g *SecretGenerator) generateExternalSecret(file *templateFile, data templateData) error {
	obj, path, err := g.renderObject(file.externalSecret, data)
	if err != nil {
		return err
	}
	exists, err := g.Files.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		g.Logger.Info("external secret already exists", "path", path)
		return nil
	}
	return g.emit(path, obj, false)
}

func (g *SecretGenerator) generatePushSecret(file *templateFile, data templateData, opts SecretOptions, tmpl resolvedTemplate) error {
	obj, path, err := g.renderObject(file.pushSecret, data)
	if err != nil {
		return err
	}
	exists, err := g.Files.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		g.Logger.Info("push secret already exists", "path", path)
		existing, err := g.Files.Read(path)
		if err != nil {
			return err
		}
		if obj, err = decodeObject(existing); err != nil {
			return errors.Wrapf(err, "loading %s", path)
		}
	}

	for _, repo := range opts.Repos {
		remoteKey := opts.remoteKey(tmpl, repo)
		added, err := addPushSecretMatch(obj, remoteKey, tmpl.secretKey)
		if err != nil {
			return errors.Wrapf(err, "adding match for %s", repo)
		}
		outcome := "added"
		if !added {
			outcome = "exists"
			g.Logger.Info("match already exists in push secret", "secret_path", remoteKey, "push_secret", data.PushSecretName)
		}
		g.Metrics.matches.WithLabelValues(outcome).Inc()
	}
	if err := sortPushSecretMatches(obj); err != nil {
		return err
	}
	return g.emit(path, obj, exists)
}

// renderObject renders a template and works out where the resulting object
// belongs in the repository.
func (g *SecretGenerator) renderObject(t *template.Template, data templateData) (*unstructured.Unstructured, string, error) {
	rendered, err := render(t, data)
	if err != nil {
		return nil, "", err
	}
	obj, err := decodeObject(rendered)
	if err != nil {
		return nil, "", errors.Wrapf(err, "decoding %s", t.Name())
	}
	path, err := NewManifest(obj.Object, g.Rules).CanonicalPath()
	if err != nil {
		return nil, "", errors.Wrapf(err, "classifying %s", t.Name())
	}
	return obj, path, nil
}

// emit writes the object to its path or prints it. An existing file is only
// replaced when overwrite is set.
func (g *SecretGenerator) emit(path string, obj *unstructured.Unstructured, overwrite bool) error {
	content, err := encodeObject(obj)
	if err != nil {
		return err
	}
	if !g.WriteToFiles {
		_, err := fmt.Fprintf(g.Out, "---\n%s", content)
		return err
	}
	w := *g.Files
	w.Force = overwrite
	w.Skip = false
	_, err = w.Create(path, content)
	return err
}

// ReadRepoList reads org/repo names, one per line, ignoring blank lines.
func ReadRepoList(r io.Reader) ([]string, error) {
	var repos []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			repos = append(repos, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading repository list")
	}
	return repos, nil
}
