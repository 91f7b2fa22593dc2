package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/alecthomas/kong"
	"github.com/leg100/gitops-tools/internal"
)

type cli struct {
	Files        []string `arg:"" optional:"" name:"file" help:"Manifest files to read; - or none reads stdin."`
	Force        bool     `negatable:"" help:"Overwrite existing files."`
	Skip         bool     `negatable:"" help:"Leave existing files alone."`
	WriteToFiles bool     `negatable:"" help:"Write each manifest to its canonical path instead of printing the path."`
	Root         string   `default:"." help:"Repository root that canonical paths are relative to."`
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("where-does-it-go"),
		kong.Description("Print or create the canonical path of each Kubernetes manifest."),
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
	logger := internal.NewLogger(os.Stderr, cfg.LogLevel)
	rules, err := cfg.LoadRules(logger)
	if err != nil {
		return err
	}
	metrics := internal.NewMetrics()

	resolver := &internal.Resolver{
		Rules:   rules,
		Out:     os.Stdout,
		Logger:  logger,
		Metrics: metrics,
	}
	if c.WriteToFiles {
		resolver.Writer = &internal.FileWriter{
			Root:    c.Root,
			Force:   c.Force,
			Skip:    c.Skip,
			Logger:  logger,
			Metrics: metrics,
		}
	}

	files := c.Files
	if len(files) == 0 {
		files = []string{"-"}
	}
	for _, name := range files {
		if err := resolveFile(resolver, name); err != nil {
			return err
		}
	}
	return metrics.WriteTextfile(cfg.MetricsFile)
}

func resolveFile(resolver *internal.Resolver, name string) error {
	var in io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	if err := resolver.Resolve(in); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
