package internal

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"text/template"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

//go:embed templates/*.yaml
var embeddedTemplates embed.FS

// DefaultTemplates returns the secret templates embedded in the binary.
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

type templateKind string

const (
	dockerhubTemplate      templateKind = "dockerhub"
	githubTokenTemplate    templateKind = "githubtoken"
	githubAppTemplate      templateKind = "githubapp"
	primeTemplate          templateKind = "prime"
	passwordTemplate       templateKind = "password"
	apiTokenTemplate       templateKind = "apitoken"
	awsTemplate            templateKind = "aws"
	primeArtifactsTemplate templateKind = "prime-artifacts"
)

const (
	credentialsSecretKey = "credentials"
	tokenSecretKey       = "token"
)

// secretTemplate describes one kind of secret that can be synced.
type secretTemplate struct {
	kind    templateKind
	pattern *regexp.Regexp
	file    string
	// credentialsJSON is an external-secrets template building the secret
	// value from the 1Password item's fields.
	credentialsJSON string
	secretKey       string
	// pathSuffix returns the last part of the Vault path of the secret.
	pathSuffix func(SecretOptions) (string, error)
}

// secretTemplates are matched against the requested template name in order.
var secretTemplates = []secretTemplate{
	{
		kind:            dockerhubTemplate,
		pattern:         regexp.MustCompile(`(?i)^d(ocker)?h(ub)?$`),
		file:            "default.yaml",
		credentialsJSON: `{"username":"{{  .username }}","password":"{{ .password }}"}`,
		secretKey:       credentialsSecretKey,
		pathSuffix: func(opts SecretOptions) (string, error) {
			if opts.Org == "" {
				return "", errors.New("--org is required for dockerhub secrets")
			}
			return fmt.Sprintf("dockerhub/%s/credentials", opts.Org), nil
		},
	},
	{
		kind:            githubTokenTemplate,
		pattern:         regexp.MustCompile(`(?i)^git(hub)?(token)?$`),
		file:            "default.yaml",
		credentialsJSON: `{"owner":"{{  .owner }}","token":"{{ .token }}"}`,
		secretKey:       credentialsSecretKey,
		pathSuffix: func(opts SecretOptions) (string, error) {
			if opts.Org == "" {
				return "", errors.New("--org is required for github token secrets")
			}
			return fmt.Sprintf("github/rancherbot/%s/credentials", opts.Org), nil
		},
	},
	{
		kind:            githubAppTemplate,
		pattern:         regexp.MustCompile(`(?i)^git(hub)app?$`),
		file:            "github-app.yaml",
		credentialsJSON: `{"appId":"{{  .appId }}","privateKey":"{{ .privateKey }}"}`,
		secretKey:       credentialsSecretKey,
		pathSuffix: func(SecretOptions) (string, error) {
			return "github/app-credentials", nil
		},
	},
	{
		kind:            primeTemplate,
		pattern:         regexp.MustCompile(`(?i)^prime?$`),
		file:            "default.yaml",
		credentialsJSON: `{"username":"{{  .username }}","password":"{{ .password}}","registry":"{{ .registry}}"}`,
		secretKey:       credentialsSecretKey,
		pathSuffix:      tokenAppSuffix("rancher-prime-registry", "credentials"),
	},
	{
		kind:            passwordTemplate,
		pattern:         regexp.MustCompile(`(?i)^password?$`),
		file:            "default.yaml",
		credentialsJSON: `{{ .password }}`,
		secretKey:       credentialsSecretKey,
		pathSuffix:      requiredTokenAppSuffix("credentials"),
	},
	{
		kind:       apiTokenTemplate,
		pattern:    regexp.MustCompile(`(?i)^api(token)?$`),
		file:       "apitoken.yaml",
		secretKey:  tokenSecretKey,
		pathSuffix: requiredTokenAppSuffix("token"),
	},
	{
		kind:            awsTemplate,
		pattern:         regexp.MustCompile(`(?i)^(aws|amazon)$`),
		file:            "default.yaml",
		credentialsJSON: `{"accessKeyId":"{{  .accessKeyId }}","secretAccessKey":"{{ .secretAccessKey }}"}`,
		secretKey:       credentialsSecretKey,
		pathSuffix: func(opts SecretOptions) (string, error) {
			return fmt.Sprintf("aws/%s/credentials", opts.SecretName), nil
		},
	},
	{
		kind:            primeArtifactsTemplate,
		pattern:         regexp.MustCompile(`(?i)^prime-artifacts$`),
		file:            "default.yaml",
		credentialsJSON: `{"accessKeyId":"{{  .accessKeyId }}","secretAccessKey":"{{ .secretAccessKey}}","primeArtifactsBucketName":"{{ .primeArtifactsBucketName }}"}`,
		secretKey:       credentialsSecretKey,
		pathSuffix:      tokenAppSuffix("rancher-prime-artifacts", "credentials"),
	},
}

// tokenAppSuffix names the secret after the application it belongs to,
// falling back to defaultApp. No suffix is needed when the secret path is
// given explicitly.
func tokenAppSuffix(defaultApp, leaf string) func(SecretOptions) (string, error) {
	return func(opts SecretOptions) (string, error) {
		if opts.SecretPath != "" {
			return "", nil
		}
		app := opts.TokenApp
		if app == "" {
			app = defaultApp
		}
		return app + "/" + leaf, nil
	}
}

func requiredTokenAppSuffix(leaf string) func(SecretOptions) (string, error) {
	return func(opts SecretOptions) (string, error) {
		if opts.SecretPath == "" && opts.TokenApp == "" {
			return "", errors.New("either --secretpath or --tokenapp is required")
		}
		return tokenAppSuffix("", leaf)(opts)
	}
}

// resolvedTemplate is a secret template applied to a set of options.
type resolvedTemplate struct {
	kind            templateKind
	file            string
	credentialsJSON string
	secretKey       string
	pathSuffix      string
}

func resolveTemplate(opts SecretOptions) (resolvedTemplate, error) {
	for _, t := range secretTemplates {
		if !t.pattern.MatchString(opts.Template) {
			continue
		}
		suffix, err := t.pathSuffix(opts)
		if err != nil {
			return resolvedTemplate{}, errors.Wrapf(err, "%s template", t.kind)
		}
		return resolvedTemplate{
			kind:            t.kind,
			file:            t.file,
			credentialsJSON: t.credentialsJSON,
			secretKey:       t.secretKey,
			pathSuffix:      suffix,
		}, nil
	}
	return resolvedTemplate{}, errors.Errorf("no template for %q", opts.Template)
}

// templateData is passed to both templates in a template file.
type templateData struct {
	SecretName           string
	PrivateKeySecretPath string
	ExternalSecretName   string
	PushSecretName       string
	Namespace            string
	CredentialsJSON      string
	KubeSecretKey        string
	SecretPath           string
}

// templateFile holds the ExternalSecret and PushSecret templates for a kind
// of secret.
type templateFile struct {
	externalSecret *template.Template
	pushSecret     *template.Template
}

func loadTemplateFile(fsys fs.FS, name string) (*templateFile, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrap(err, "reading template file")
	}
	var raw struct {
		ExternalSecret string `yaml:"external_secret_template"`
		PushSecret     string `yaml:"push_secret_template"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing template file %s", name)
	}
	if raw.ExternalSecret == "" || raw.PushSecret == "" {
		return nil, errors.Errorf("template file %s must define external_secret_template and push_secret_template", name)
	}
	external, err := newTemplate(name+"#external_secret_template", raw.ExternalSecret)
	if err != nil {
		return nil, err
	}
	push, err := newTemplate(name+"#push_secret_template", raw.PushSecret)
	if err != nil {
		return nil, err
	}
	return &templateFile{externalSecret: external, pushSecret: push}, nil
}

func newTemplate(name, text string) (*template.Template, error) {
	t, err := template.New(name).
		Option("missingkey=error").
		Funcs(template.FuncMap{"quote": strconv.Quote}).
		Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", name)
	}
	return t, nil
}

func render(t *template.Template, data templateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, errors.Wrapf(err, "rendering %s", t.Name())
	}
	return buf.Bytes(), nil
}
