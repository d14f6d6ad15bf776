package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/kagi-unofficial/kagi-go/internal/config"
	"github.com/kagi-unofficial/kagi-go/kagi"
)

type cli struct {
	Token     string        `env:"KAGI_API_KEY" help:"Kagi API token."`
	BaseURL   string        `name:"base" help:"Override the API base URL (for testing)."`
	UserAgent string        `name:"ua" help:"Custom User-Agent header."`
	Timeout   time.Duration `default:"30s" help:"Request timeout."`
	LogLevel  string        `default:"info" help:"Log level (debug, info, warn, error)."`
	LogFormat string        `default:"text" enum:"text,json" help:"Log format."`

	FastGPT   fastGPTCmd   `cmd:"" name:"fastgpt" help:"Ask FastGPT and print the answer with references."`
	Enrich    enrichCmd    `cmd:"" help:"Fetch non-commercial web or news results for a query."`
	Summarize summarizeCmd `cmd:"" help:"Summarize a URL or raw text."`
}

type app struct {
	ctx    context.Context
	client *kagi.Client
	out    io.Writer
}

func (a *app) printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(out))
	return err
}

type fastGPTCmd struct {
	NoCache bool   `help:"Bypass the API-side cache."`
	Query   string `arg:"" help:"Query text."`
}

func (cmd *fastGPTCmd) Run(a *app) error {
	var opts []kagi.GenerateOption
	if cmd.NoCache {
		opts = append(opts, kagi.WithoutCache())
	}
	resp, err := a.client.Generate(a.ctx, cmd.Query, opts...)
	if err != nil {
		return err
	}
	return a.printJSON(resp)
}

type enrichCmd struct {
	News  bool   `help:"Search the news index instead of the web index."`
	Query string `arg:"" help:"Query text."`
}

func (cmd *enrichCmd) Run(a *app) error {
	var (
		resp *kagi.EnrichResponse
		err  error
	)
	if cmd.News {
		resp, err = a.client.EnrichNews(a.ctx, cmd.Query)
	} else {
		resp, err = a.client.EnrichWeb(a.ctx, cmd.Query)
	}
	if err != nil {
		return err
	}
	return a.printJSON(resp)
}

type summarizeCmd struct {
	URL      string `xor:"input" help:"URL to summarize."`
	Text     string `xor:"input" help:"Raw text to summarize."`
	Engine   string `help:"Summarization engine (cecil, agnes, daphne, muriel)."`
	Type     string `help:"Summary type (summary, takeaway)."`
	Language string `help:"Target language code."`
	NoCache  bool   `help:"Bypass the API-side cache."`
}

func (cmd *summarizeCmd) Run(a *app) error {
	resp, err := a.client.Summarize(a.ctx, kagi.SummarizeRequest{
		URL:            cmd.URL,
		Text:           cmd.Text,
		Engine:         kagi.SummarizationEngine(cmd.Engine),
		SummaryType:    kagi.SummaryType(cmd.Type),
		TargetLanguage: cmd.Language,
		NoCache:        cmd.NoCache,
	})
	if err != nil {
		return err
	}
	return a.printJSON(resp)
}

func newLogger(level, format string) *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("invalid log level %q, using 'info'", level)
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

func main() {
	var flags cli
	kctx := kong.Parse(&flags,
		kong.Name("kagi"),
		kong.Description("Unofficial CLI for the Kagi API."),
		kong.Configuration(config.YAML, config.DefaultPath()),
		kong.UsageOnError(),
	)

	if flags.Token == "" {
		fmt.Fprintln(os.Stderr, "missing API token: set --token or KAGI_API_KEY")
		os.Exit(2)
	}

	log := newLogger(flags.LogLevel, flags.LogFormat)
	opts := []kagi.Option{
		kagi.WithTimeout(flags.Timeout),
		kagi.WithLogger(log),
	}
	if flags.BaseURL != "" {
		opts = append(opts, kagi.WithBaseURL(flags.BaseURL))
	}
	if flags.UserAgent != "" {
		opts = append(opts, kagi.WithUserAgent(flags.UserAgent))
	}

	err := kctx.Run(&app{
		ctx:    context.Background(),
		client: kagi.NewClient(flags.Token, opts...),
		out:    os.Stdout,
	})
	kctx.FatalIfErrorf(err)
}
