package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v3/ffcli"
	"go.uber.org/zap"

	"roleinventory/internal/app"
	"roleinventory/internal/health"
	"roleinventory/internal/report"
	"roleinventory/ioc"
)

var collectArgs struct {
	failTier string
}

var collectCmd = &ffcli.Command{
	Name:       "collect",
	ShortUsage: "collector [flags] collect [-fail-tier Red]",
	ShortHelp:  "Traverse all servers, write reports and print a summary",
	FlagSet: (func() *flag.FlagSet {
		fs := flag.NewFlagSet("collect", flag.ContinueOnError)
		fs.StringVar(&collectArgs.failTier, "fail-tier", "", "exit with status 3 when the risk tier is at least this tier")
		return fs
	})(),
	Exec: runCollect,
}

var validateCmd = &ffcli.Command{
	Name:       "validate",
	ShortUsage: "collector [flags] validate",
	ShortHelp:  "Check the config file and fixture without contacting servers",
	Exec:       runValidate,
}

var serversCmd = &ffcli.Command{
	Name:       "servers",
	ShortUsage: "collector [flags] servers",
	ShortHelp:  "List the servers a collect run would traverse",
	Exec:       runServers,
}

// loadConfig 读取配置文件并应用命令行覆盖。
func loadConfig() (app.Config, error) {
	cfg, err := app.LoadConfig(rootArgs.config)
	if err != nil {
		return cfg, err
	}
	if s := strings.TrimSpace(rootArgs.servers); s != "" {
		cfg.Collect.Servers = []string{s}
	}
	if rootArgs.fixture != "" {
		cfg.Source.Kind = app.SourceStatic
		cfg.Source.Fixture = rootArgs.fixture
	}
	if rootArgs.out != "" {
		cfg.Report.OutputDir = rootArgs.out
	}
	if rootArgs.parallel > 0 {
		cfg.Collect.ParallelServers = rootArgs.parallel
	}
	if rootArgs.logLevel != "" {
		cfg.Log.Level = rootArgs.logLevel
	}
	return cfg, cfg.Validate()
}

func newService(ctx context.Context) (*app.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := ioc.InitLogger(cfg)
	if err != nil {
		return nil, err
	}
	client, err := ioc.InitRoleClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return app.NewService(ctx, cfg, client, logger)
}

func runCollect(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %q", args)
	}
	var failTier health.Tier
	if collectArgs.failTier != "" {
		t, err := health.ParseTier(collectArgs.failTier)
		if err != nil {
			return err
		}
		failTier = t
	}

	svc, err := newService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())

	run, err := svc.Collect(ctx)
	if err != nil {
		return err
	}
	if err := report.PrintSummary(os.Stdout, run.Bundle); err != nil {
		return err
	}
	for _, p := range run.Files {
		fmt.Println(p)
	}
	if run.GraphErr != "" {
		fmt.Fprintln(os.Stderr, "graph export failed:", run.GraphErr)
	}
	if failTier != "" && run.Risk.Tier.Rank() >= failTier.Rank() {
		return exitError(3)
	}
	return nil
}

func runValidate(_ context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %q", args)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := ioc.InitRoleClient(cfg, zap.NewNop()); err != nil {
		return err
	}
	if _, err := report.NewEmitter(cfg.Report, nil); err != nil {
		return err
	}
	fmt.Printf("config ok: source=%s dns=%s roles=%s formats=%s\n",
		cfg.Source.Kind, cfg.Source.DNS.Mode,
		strings.Join(cfg.Collect.Roles, ","), strings.Join(cfg.Report.Formats, ","))
	return nil
}

func runServers(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %q", args)
	}
	svc, err := newService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())

	servers, err := svc.Servers(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tNAME\tADDRESS")
	for _, s := range servers {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Role, s.Name, s.Address)
	}
	return w.Flush()
}
