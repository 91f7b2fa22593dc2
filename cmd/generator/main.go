package main

import (
	"log"
	"os"
	"slices"

	"github.com/alecthomas/kong"
	"github.com/leg100/gitops-tools/internal"
)

type cli struct {
	SecretName           string `name:"secretname" required:"" help:"The name of the secret."`
	RepoName             string `name:"reponame" help:"The org/repo name, e.g. rancher/rancher-agent."`
	RepoList             string `name:"repolist" type:"existingfile" help:"File listing org/repo names, one per line."`
	Template             string `required:"" help:"The kind of secret (dockerhub, githubtoken, githubapp, prime, password, apitoken, aws or prime-artifacts)."`
	SecretType           string `name:"secrettype" default:"repo" enum:"repo,org,branch" help:"The Vault secret type (${enum})."`
	Org                  string `help:"The org name for the Vault secret path."`
	SecretPath           string `name:"secretpath" help:"The Vault secret path, overriding the derived one."`
	PrivateKeySecretPath string `name:"privatekey-secretpath" help:"The 1Password item holding a GitHub app's private key."`
	TokenApp             string `name:"tokenapp" help:"The application an API token or password belongs to."`
	WriteToFiles         bool   `negatable:"" help:"Write manifests to their canonical paths instead of printing them."`
	Root                 string `default:"." help:"Repository root that canonical paths are relative to."`
	LogFile              string `default:"logs.log" help:"File to append log messages to."`
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("generator"),
		kong.Description("Generate an ExternalSecret importing a secret from 1Password and a PushSecret exporting it to Vault."),
		kong.UsageOnError(),
	)
	if err := c.run(); err != nil {
		log.Fatal(err)
	}
}

func (c *cli) run() error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	logFile, err := internal.OpenLogFile(c.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := internal.NewLogger(logFile, cfg.LogLevel)

	rules, err := cfg.LoadRules(logger)
	if err != nil {
		return err
	}
	templates := internal.DefaultTemplates()
	if cfg.TemplatesDir != "" {
		templates = os.DirFS(cfg.TemplatesDir)
	}

	var repos []string
	if c.RepoList != "" {
		f, err := os.Open(c.RepoList)
		if err != nil {
			return err
		}
		repos, err = internal.ReadRepoList(f)
		f.Close()
		if err != nil {
			return err
		}
	}
	if c.RepoName != "" && !slices.Contains(repos, c.RepoName) {
		repos = append(repos, c.RepoName)
	}

	metrics := internal.NewMetrics()
	g := &internal.SecretGenerator{
		Rules:     rules,
		Templates: templates,
		Files: &internal.FileWriter{
			Root:    c.Root,
			Logger:  logger,
			Metrics: metrics,
		},
		WriteToFiles: c.WriteToFiles,
		Out:          os.Stdout,
		Logger:       logger,
		Metrics:      metrics,
	}
	err = g.Generate(internal.SecretOptions{
		SecretName:           c.SecretName,
		Repos:                repos,
		Template:             c.Template,
		SecretType:           c.SecretType,
		Org:                  c.Org,
		SecretPath:           c.SecretPath,
		PrivateKeySecretPath: c.PrivateKeySecretPath,
		TokenApp:             c.TokenApp,
	})
	if err != nil {
		return err
	}
	return metrics.WriteTextfile(cfg.MetricsFile)
}
