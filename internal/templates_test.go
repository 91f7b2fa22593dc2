package internal

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTemplate(t *testing.T) {
	tests := []struct {
		name       string
		opts       SecretOptions
		wantKind   templateKind
		wantFile   string
		wantKey    string
		wantSuffix string
	}{
		{"dockerhub", SecretOptions{Template: "dockerhub", Org: "rancher"}, dockerhubTemplate, "default.yaml", "credentials", "dockerhub/rancher/credentials"},
		{"dh", SecretOptions{Template: "DH", Org: "rancher"}, dockerhubTemplate, "default.yaml", "credentials", "dockerhub/rancher/credentials"},
		{"git", SecretOptions{Template: "git", Org: "rancher"}, githubTokenTemplate, "default.yaml", "credentials", "github/rancherbot/rancher/credentials"},
		{"githubtoken", SecretOptions{Template: "GitHubToken", Org: "rancher"}, githubTokenTemplate, "default.yaml", "credentials", "github/rancherbot/rancher/credentials"},
		{"githubapp", SecretOptions{Template: "githubapp"}, githubAppTemplate, "github-app.yaml", "credentials", "github/app-credentials"},
		{"prime", SecretOptions{Template: "prime"}, primeTemplate, "default.yaml", "credentials", "rancher-prime-registry/credentials"},
		{"prime with app", SecretOptions{Template: "prim", TokenApp: "registry"}, primeTemplate, "default.yaml", "credentials", "registry/credentials"},
		{"prime with path", SecretOptions{Template: "prime", SecretPath: "secret/data/x"}, primeTemplate, "default.yaml", "credentials", ""},
		{"password", SecretOptions{Template: "password", TokenApp: "slack"}, passwordTemplate, "default.yaml", "credentials", "slack/credentials"},
		{"password with path", SecretOptions{Template: "passwor", SecretPath: "secret/data/x"}, passwordTemplate, "default.yaml", "credentials", ""},
		{"api", SecretOptions{Template: "api", TokenApp: "slack"}, apiTokenTemplate, "apitoken.yaml", "token", "slack/token"},
		{"aws", SecretOptions{Template: "aws", SecretName: "s3-upload"}, awsTemplate, "default.yaml", "credentials", "aws/s3-upload/credentials"},
		{"amazon", SecretOptions{Template: "Amazon", SecretName: "s3-upload"}, awsTemplate, "default.yaml", "credentials", "aws/s3-upload/credentials"},
		{"prime-artifacts", SecretOptions{Template: "prime-artifacts"}, primeArtifactsTemplate, "default.yaml", "credentials", "rancher-prime-artifacts/credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveTemplate(tt.opts)
			require.NoError(t, err)

			assert.Equal(t, tt.wantKind, got.kind)
			assert.Equal(t, tt.wantFile, got.file)
			assert.Equal(t, tt.wantKey, got.secretKey)
			assert.Equal(t, tt.wantSuffix, got.pathSuffix)
		})
	}
}

func TestResolveTemplate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		opts    SecretOptions
		wantErr string
	}{
		{"unknown", SecretOptions{Template: "ftp"}, `no template for "ftp"`},
		{"dockerhub without org", SecretOptions{Template: "dockerhub"}, "--org is required"},
		{"github without org", SecretOptions{Template: "github"}, "--org is required"},
		{"password without app", SecretOptions{Template: "password"}, "either --secretpath or --tokenapp is required"},
		{"apitoken without app", SecretOptions{Template: "apitoken"}, "either --secretpath or --tokenapp is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveTemplate(tt.opts)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestResolveTemplate_CredentialsJSON(t *testing.T) {
	got, err := resolveTemplate(SecretOptions{Template: "dockerhub", Org: "rancher"})
	require.NoError(t, err)

	assert.Equal(t, `{"username":"{{  .username }}","password":"{{ .password }}"}`, got.credentialsJSON)
}

func TestDefaultTemplatesLoad(t *testing.T) {
	for _, tmpl := range secretTemplates {
		t.Run(string(tmpl.kind), func(t *testing.T) {
			_, err := loadTemplateFile(DefaultTemplates(), tmpl.file)
			assert.NoError(t, err)
		})
	}
}

func TestLoadTemplateFile_Invalid(t *testing.T) {
	fsys := fstest.MapFS{
		"partial.yaml": {Data: []byte("external_secret_template: |\n  kind: ExternalSecret\n")},
		"broken.yaml":  {Data: []byte("external_secret_template: '{{ .Nope'\npush_secret_template: x\n")},
	}

	_, err := loadTemplateFile(fsys, "partial.yaml")
	assert.ErrorContains(t, err, "must define")

	_, err = loadTemplateFile(fsys, "broken.yaml")
	assert.Error(t, err)

	_, err = loadTemplateFile(fsys, "missing.yaml")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	tmpl, err := newTemplate("test", "name: {{ .SecretName }}\n")
	require.NoError(t, err)

	got, err := render(tmpl, templateData{SecretName: "foo"})
	require.NoError(t, err)
	assert.Equal(t, "name: foo\n", string(got))
}
