package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	tzcall "github.com/branched-services/go-tzcall"
	"github.com/branched-services/go-tzcall/internal/client"
	"github.com/branched-services/go-tzcall/internal/store"
)

// storageArg encodes the initial storage. A JSON value is encoded against
// the script's storage type; --init-michelson is passed through verbatim.
func storageArg(script tzcall.SeqNode, initJSON, initMichelson string) (string, error) {
	if initMichelson != "" {
		if _, err := tzcall.ParseNode(initMichelson); err != nil {
			return "", fmt.Errorf("initial storage: %w", err)
		}
		return initMichelson, nil
	}
	section, ok := tzcall.ScriptSection(script, "storage")
	if !ok {
		return "", &tzcall.ParseError{Section: "storage"}
	}
	t, err := tzcall.ParseType(section)
	if err != nil {
		return "", err
	}
	v, err := tzcall.ParseValue([]byte(initJSON))
	if err != nil {
		return "", err
	}
	n, err := tzcall.Encode(t, v)
	if err != nil {
		return "", fmt.Errorf("initial storage: %w", err)
	}
	return tzcall.FormatNode(n), nil
}

func newDeployCmd(a *app) *cobra.Command {
	var (
		name          string
		from          string
		amount        string
		initJSON      string
		initMichelson string
	)
	cmd := &cobra.Command{
		Use:   "deploy <source>",
		Short: "Compile and originate a contract",
		Example: `  tzcall deploy counter.tz --name counter --from alice --init 0
  tzcall deploy bank.mligo --name bank --init '[]' --amount 1tz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if initJSON == "" && initMichelson == "" {
				return fmt.Errorf("initial storage required: pass --init or --init-michelson")
			}
			src, err := a.source(from)
			if err != nil {
				return err
			}
			code, err := a.compiler(cmd).Compile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			script, err := tzcall.ParseScript(code)
			if err != nil {
				return fmt.Errorf("compiled script: %w", err)
			}
			initArg, err := storageArg(script, initJSON, initMichelson)
			if err != nil {
				return err
			}
			mutez, ok := tzcall.ParseTez(amount)
			if !ok {
				return fmt.Errorf("invalid amount %q", amount)
			}
			tez := tzcall.FormatTez(mutez)

			inv, err := a.node(cmd).Originate(cmd.Context(), client.Origination{
				Alias:  name,
				Source: src,
				Amount: tez,
				Script: code,
				Init:   initArg,
			})
			if err != nil {
				return err
			}
			if a.dryRun {
				return nil
			}

			receipt := tzcall.ParseOrigination(tzcall.OriginationRequest{Source: src, Storage: initArg, Amount: tez}, inv.Output)
			a.record(store.KindOrigination, inv, receipt)
			if inv.Output.Failed {
				_ = printJSON(cmd.OutOrStdout(), receipt)
				return fmt.Errorf("origination failed: %s", tzcall.ClassifyFailure(inv.Output.Combined()).Value)
			}

			if receipt.Address != nil {
				a.saveContract(name, *receipt.Address, args[0], script, receipt.OperationHash)
			} else {
				log.Warn("Originated address not found in client output")
			}
			return printJSON(cmd.OutOrStdout(), receipt)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "alias for the new contract")
	cmd.Flags().StringVar(&from, "from", "", "source account (default from config)")
	cmd.Flags().StringVar(&amount, "amount", "0", "initial balance, e.g. 1tz, 500utz or 500 (mutez)")
	cmd.Flags().StringVar(&initJSON, "init", "", "initial storage as a JSON value")
	cmd.Flags().StringVar(&initMichelson, "init-michelson", "", "initial storage in Michelson syntax")
	_ = cmd.MarkFlagRequired("name")
	cmd.MarkFlagsMutuallyExclusive("init", "init-michelson")
	return cmd
}

// saveContract records a deployed contract. The origination already
// happened, so failures only produce a warning.
func (a *app) saveContract(name, address, source string, script tzcall.SeqNode, opHash *string) {
	rec := store.Contract{
		Name:    name,
		Address: address,
		Network: a.cfg.Network,
		Source:  source,
	}
	if p, ok := tzcall.ScriptSection(script, "parameter"); ok {
		rec.ParameterType = tzcall.FormatNode(p)
	}
	if s, ok := tzcall.ScriptSection(script, "storage"); ok {
		rec.StorageType = tzcall.FormatNode(s)
	}
	if opHash != nil {
		rec.OperationHash = *opHash
	}
	if err := a.contracts().Put(rec); err != nil {
		log.Warn("Contract not recorded", "name", name, "address", address, "err", err)
		return
	}
	log.Info("Contract originated", "name", name, "address", address)
}
