package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/branched-services/go-tzcall/internal/client"
	"github.com/branched-services/go-tzcall/internal/config"
	"github.com/branched-services/go-tzcall/internal/store"
)

// app carries the resolved settings and handles shared by all commands.
type app struct {
	home     string
	network  string
	logLevel string
	dryRun   bool

	cfg config.Config

	// runner overrides process execution; tests install a fake.
	runner client.Runner
	// logStore overrides the bbolt operation log.
	logStore store.LogStore
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "tzcall",
		Short:         "Deploy and call Tezos smart contracts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.home, "home", "", "tzcall home directory (default $TZCALL_HOME or ~/.tzcall)")
	flags.StringVar(&a.network, "network", "", "network to use (overrides config)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.BoolVar(&a.dryRun, "dry-run", false, "print client commands instead of running them")

	root.AddCommand(
		newEncodeCmd(a),
		newDecodeCmd(a),
		newReceiptCmd(a),
		newEventsCmd(a),
		newTraceCmd(a),
		newDeployCmd(a),
		newCallCmd(a),
		newBatchCmd(a),
		newRunCmd(a),
		newAccountCmd(a),
		newContractCmd(a),
		newLogCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.home == "" {
		home, err := config.DefaultHome()
		if err != nil {
			return err
		}
		a.home = home
	}
	cfg, err := config.Load(a.home)
	if err != nil {
		return err
	}
	if a.network != "" {
		cfg.Network = a.network
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	w := cmd.ErrOrStderr()
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(w, lvl, useColor(w))))
	log.Debug("Loaded configuration", "home", cfg.Home, "network", cfg.Network)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "", "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func (a *app) runnerFor(cmd *cobra.Command) client.Runner {
	switch {
	case a.dryRun:
		return client.PrintRunner{W: cmd.OutOrStdout()}
	case a.runner != nil:
		return a.runner
	}
	return client.ExecRunner{}
}

func (a *app) node(cmd *cobra.Command) *client.NodeClient {
	opts := []client.Option{
		client.WithBinary(a.cfg.ClientBinary),
		client.WithBurnCap(a.cfg.BurnCap),
		client.WithTimeout(a.cfg.Timeout),
	}
	if endpoint, ok := a.cfg.Endpoint(); ok {
		opts = append(opts, client.WithEndpoint(endpoint))
	}
	return client.NewNodeClient(a.runnerFor(cmd), opts...)
}

func (a *app) compiler(cmd *cobra.Command) *client.Compiler {
	return client.NewCompiler(a.runnerFor(cmd), a.cfg.CompilerBinary)
}

func (a *app) accounts() *store.Accounts {
	return store.NewAccounts(a.cfg.AccountsPath())
}

func (a *app) contracts() *store.Contracts {
	return store.NewContracts(a.cfg.ContractsPath())
}

func (a *app) operationLog() (store.LogStore, error) {
	if a.logStore != nil {
		return a.logStore, nil
	}
	if err := os.MkdirAll(a.cfg.Home, 0o700); err != nil {
		return nil, err
	}
	l, err := store.OpenBoltLog(a.cfg.LogPath())
	if err != nil {
		return nil, err
	}
	a.logStore = l
	return l, nil
}

// close releases the operation log if a command opened it.
func (a *app) close() error {
	if a.logStore == nil {
		return nil
	}
	err := a.logStore.Close()
	a.logStore = nil
	return err
}

// record appends an invocation to the operation log. The operation has
// already been injected, so failures are reported and otherwise ignored.
func (a *app) record(kind string, inv client.Invocation, receipt any) {
	if a.dryRun {
		return
	}
	e := store.Entry{
		Kind:    kind,
		Command: inv.Command,
		Stdout:  inv.Output.Stdout,
		Stderr:  inv.Output.Stderr,
		Failed:  inv.Output.Failed,
	}
	if receipt != nil {
		if err := e.SetReceipt(receipt); err != nil {
			log.Warn("Receipt not recorded", "kind", kind, "err", err)
		}
	}
	l, err := a.operationLog()
	if err == nil {
		e, err = l.Append(e)
	}
	if err != nil {
		log.Warn("Operation log unavailable", "kind", kind, "err", err)
		return
	}
	log.Debug("Recorded operation", "id", e.ID, "kind", kind)
}

// source resolves --from, falling back to the configured default account.
// Known account names map to their address; anything else is passed to the
// client as is.
func (a *app) source(from string) (string, error) {
	if from == "" {
		from = a.cfg.DefaultAccount
	}
	if from == "" {
		return "", errors.New("no source account: pass --from or set default_account")
	}
	acc, err := a.accounts().Get(from)
	switch {
	case err == nil:
		return acc.Address, nil
	case errors.Is(err, store.ErrNotFound):
		return from, nil
	}
	return "", err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput returns the named file, or stdin when the name is empty or "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(args[0])
	return string(data), err
}
