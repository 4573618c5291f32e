package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	tzcall "github.com/branched-services/go-tzcall"
	"github.com/branched-services/go-tzcall/internal/store"
)

// batchItem is one call of a batch file.
type batchItem struct {
	Contract   string `yaml:"contract"`
	Entrypoint string `yaml:"entrypoint"`
	Arg        any    `yaml:"arg"`
	Amount     string `yaml:"amount"`
}

// loadBatchFile reads a YAML (or JSON) list of calls.
func loadBatchFile(path string) ([]batchItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []batchItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("batch file: %w", err)
	}
	return items, nil
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		from  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Inject several contract calls as one operation group",
		Long: `Inject the calls listed in a YAML or JSON file as a single operation group.

Each item names a contract, an optional entrypoint, the argument and an
optional amount:

  - contract: bank
    entrypoint: deposit
    arg: "1tz"
    amount: 1tz
  - contract: KT1...
    entrypoint: transfer
    arg: [tz1..., 5]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := loadBatchFile(args[0])
			if err != nil {
				return err
			}
			src, err := a.source(from)
			if err != nil {
				return err
			}

			batch := tzcall.NewBatch(tzcall.WithMaxOperations(limit))
			contracts := map[string]*tzcall.Contract{}
			for i, item := range items {
				contract, ok := contracts[item.Contract]
				if !ok {
					if contract, err = a.loadContract(cmd, item.Contract); err != nil {
						return fmt.Errorf("item %d: %w", i, err)
					}
					contracts[item.Contract] = contract
				}
				call, err := contract.Invoke(item.Entrypoint, item.Arg)
				if err != nil {
					return fmt.Errorf("item %d: %w", i, err)
				}
				if item.Amount != "" {
					if call, err = call.WithAmount(item.Amount); err != nil {
						return fmt.Errorf("item %d: %w", i, err)
					}
				}
				if err := batch.Add(call); err != nil {
					return err
				}
			}

			inv, err := a.node(cmd).MultipleTransfers(cmd.Context(), src, batch)
			if err != nil {
				return err
			}
			if a.dryRun {
				return nil
			}

			receipt := callReceipt{
				TransactionReceipt: tzcall.ParseTransaction(tzcall.TransferRequest{Source: src}, inv.Output),
				Events:             tzcall.ExtractEvents(inv.Output.Combined()),
			}
			a.record(store.KindBatch, inv, receipt)
			if err := printJSON(cmd.OutOrStdout(), receipt); err != nil {
				return err
			}
			if f := receipt.Failure; f != nil {
				return fmt.Errorf("batch failed (%s): %s", f.Kind, f.Value)
			}
			log.Info("Batch injected", "operations", batch.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source account (default from config)")
	cmd.Flags().IntVar(&limit, "max-operations", 256, "maximum number of calls in the batch")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var storage, input string
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Interpret a script locally and print its trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.compiler(cmd).Compile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			trace, inv, err := a.node(cmd).RunScript(cmd.Context(), code, storage, input)
			if a.dryRun {
				return nil
			}
			if err != nil {
				a.record(store.KindRun, inv, nil)
				return err
			}
			a.record(store.KindRun, inv, trace)
			return printJSON(cmd.OutOrStdout(), trace)
		},
	}
	cmd.Flags().StringVar(&storage, "storage", "Unit", "initial storage in Michelson syntax")
	cmd.Flags().StringVar(&input, "input", "Unit", "parameter in Michelson syntax")
	return cmd
}
