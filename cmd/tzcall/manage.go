package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/branched-services/go-tzcall/internal/store"
)

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage named accounts",
	}

	add := &cobra.Command{
		Use:   "add <name> [address]",
		Short: "Add an account; the address is looked up from the client when omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			acc := store.Account{Name: args[0], Network: a.cfg.Network}
			if len(args) == 2 {
				acc.Address = args[1]
			} else {
				addr, err := a.node(cmd).ShowAddress(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				acc.Address = addr
			}
			return a.accounts().Put(acc)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := a.accounts().List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tADDRESS\tNETWORK")
			for _, acc := range accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", acc.Name, acc.Address, acc.Network)
			}
			return w.Flush()
		},
	}

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.accounts().Remove(args[0])
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

func newContractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Inspect deployed contracts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded contracts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			contracts, err := a.contracts().List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tADDRESS\tNETWORK\tSOURCE")
			for _, c := range contracts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, c.Address, c.Network, c.Source)
			}
			return w.Flush()
		},
	}

	show := &cobra.Command{
		Use:   "show <name|address>",
		Short: "Show a contract and its entrypoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := a.loadContract(cmd, args[0])
			if err != nil {
				return err
			}
			entrypoints := map[string]string{}
			for _, name := range contract.EntrypointNames() {
				t, _ := contract.EntrypointType(name)
				entrypoints[name] = t.String()
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"address":     contract.Address(),
				"parameter":   contract.ParameterType().String(),
				"entrypoints": entrypoints,
			})
		},
	}

	storage := &cobra.Command{
		Use:   "storage <name|address>",
		Short: "Print the current storage of a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			if rec, err := a.contracts().Resolve(args[0]); err == nil {
				address = rec.Address
			}
			s, err := a.node(cmd).ContractStorage(cmd.Context(), address)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
			return err
		},
	}

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Forget a recorded contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.contracts().Remove(args[0])
		},
	}

	cmd.AddCommand(list, show, storage, remove)
	return cmd
}

func newLogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect the operation log",
	}

	var filter store.Filter
	list := &cobra.Command{
		Use:   "list",
		Short: "List logged operations, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.operationLog()
			if err != nil {
				return err
			}
			entries, err := l.List(filter)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tKIND\tFAILED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", e.ID, e.Date.Format("2006-01-02 15:04:05"), e.Kind, e.Failed)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&filter.Kind, "kind", "", "only entries of this kind")
	list.Flags().IntVarP(&filter.Limit, "limit", "n", 0, "only the most recent entries")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a logged operation as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.operationLog()
			if err != nil {
				return err
			}
			e, err := l.Get(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "# home: %s\n", a.cfg.Home)
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting and save the config file",
		Example: `  tzcall config set network sandbox
  tzcall config set networks.sandbox http://localhost:20000
  tzcall config set timeout 5m`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.cfg.Save()
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}
