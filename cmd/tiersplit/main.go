// Command tiersplit deploys and operates tiered payment splitter contracts
// stored in a local database, and serves them over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/bitfsorg/tiersplit-go/config"
	"github.com/bitfsorg/tiersplit-go/logging"
	"github.com/bitfsorg/tiersplit-go/store"
)

// errUsage marks command-line mistakes; main exits 2 for them.
var errUsage = errors.New("usage")

type command struct {
	summary string
	run     func(a *app, args []string) error
}

var commands = map[string]command{
	"deploy":    {"deploy a contract from a manifest", cmdDeploy},
	"status":    {"show roles, prices, escrow and balance of a contract", cmdStatus},
	"quote":     {"show the amount due for a tier", cmdQuote},
	"pay":       {"pay for a tier", cmdPay},
	"approve":   {"approve releasing the retained balance", cmdApprove},
	"set-price": {"change a tier's list price", cmdSetPrice},
	"set-role":  {"rotate a role holder", cmdSetRole},
	"transfer":  {"transfer value between accounts", cmdTransfer},
	"mint":      {"credit a development account", cmdMint},
	"balance":   {"show an account balance", cmdBalance},
	"keygen":    {"generate a signing key", cmdKeygen},
	"serve":     {"serve contracts over HTTP", cmdServe},
}

// app carries what every command needs.
type app struct {
	ctx     context.Context
	cfg     config.Config
	log     *zap.Logger
	out     io.Writer
	openDB  func() (store.Store, error)
	st      store.Store
	onClose []func()
}

func (a *app) close() {
	for i := len(a.onClose) - 1; i >= 0; i-- {
		a.onClose[i]()
	}
}

// db opens the contract database once. It is closed when the command returns.
func (a *app) db() (store.Store, error) {
	if a.st != nil {
		return a.st, nil
	}
	st, err := a.openDB()
	if err != nil {
		return nil, err
	}
	a.st = st
	a.onClose = append(a.onClose, func() { _ = st.Close() })
	return st, nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: tiersplit [--datadir dir] <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := pflag.NewFlagSet("tiersplit", pflag.ContinueOnError)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	dataDir := global.String("datadir", config.DefaultDataDir(), "data directory")
	logLevel := global.String("loglevel", "", "override the configured log level")
	network := global.String("network", "", "override the configured network")
	global.Usage = func() { usage(stderr) }
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if global.NArg() == 0 {
		usage(stderr)
		return errUsage
	}

	cfg, err := config.LoadConfig(config.ConfigPath(*dataDir))
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return err
	}
	cfg.DataDir = *dataDir
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *network != "" {
		cfg.Network = *network
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	name := global.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		usage(stderr)
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	log, _, err := logging.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a := &app{
		ctx: ctx,
		cfg: cfg,
		log: log.With(zap.String("command", name)),
		out: stdout,
		openDB: func() (store.Store, error) {
			return store.OpenBoltStore(config.DBPath(cfg.DataDir))
		},
	}
	defer a.close()
	return cmd.run(a, global.Args()[1:])
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err == nil {
		return
	}
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	fmt.Fprintln(os.Stderr, "tiersplit:", err)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	os.Exit(1)
}
