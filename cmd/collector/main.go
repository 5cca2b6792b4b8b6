// Command collector 执行一次性的 DHCP/DNS 角色清单采集。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ParseAndRun(ctx, os.Args[1:])
	var exit exitError
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case errors.Is(err, errNoSubcommand):
		fmt.Fprintln(os.Stderr, ffcli.DefaultUsageFunc(rootCmd))
		os.Exit(2)
	case errors.As(err, &exit):
		os.Exit(int(exit))
	default:
		fmt.Fprintln(os.Stderr, "collector:", err)
		os.Exit(1)
	}
}

var rootArgs struct {
	config   string
	servers  string
	fixture  string
	out      string
	parallel int
	logLevel string
}

var rootCmd = &ffcli.Command{
	Name:       "collector",
	ShortUsage: "collector [flags] <collect|validate|servers> [subcommand flags]",
	ShortHelp:  "Inventory DHCP/DNS server roles and score scope health",
	FlagSet: (func() *flag.FlagSet {
		fs := flag.NewFlagSet("collector", flag.ContinueOnError)
		fs.StringVar(&rootArgs.config, "config", "configs/config.yaml", "config file path")
		fs.StringVar(&rootArgs.servers, "servers", "", "comma-separated servers, prefix with dns: for DNS role; skips discovery")
		fs.StringVar(&rootArgs.fixture, "fixture", "", "read a YAML snapshot instead of querying servers")
		fs.StringVar(&rootArgs.out, "out", "", "report output directory")
		fs.IntVar(&rootArgs.parallel, "parallel", 0, "servers traversed concurrently")
		fs.StringVar(&rootArgs.logLevel, "log-level", "", "debug|info|warn|error")
		return fs
	})(),
	Options:     []ff.Option{ff.WithEnvVarPrefix("ROLEINV")},
	Subcommands: []*ffcli.Command{collectCmd, validateCmd, serversCmd},
	Exec: func(context.Context, []string) error {
		return errNoSubcommand
	},
}

var errNoSubcommand = errors.New("subcommand required")

// exitError 携带非零退出码但不打印错误。
type exitError int

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}
