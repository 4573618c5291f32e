package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	tzcall "github.com/branched-services/go-tzcall"
	"github.com/branched-services/go-tzcall/internal/store"
)

// callReceipt is what the call and batch commands print and log.
type callReceipt struct {
	*tzcall.TransactionReceipt
	Events []tzcall.EventRecord `json:"events"`
}

// loadContract resolves ref (a stored name or an address) to a Contract.
// Contracts without a recorded parameter type have their script fetched
// from the node.
func (a *app) loadContract(cmd *cobra.Command, ref string) (*tzcall.Contract, error) {
	rec, err := a.contracts().Resolve(ref)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound) && strings.HasPrefix(ref, "KT1"):
		rec = store.Contract{Address: ref}
	default:
		return nil, err
	}

	if rec.ParameterType != "" {
		t, err := tzcall.ParseTypeString(rec.ParameterType)
		if err != nil {
			return nil, fmt.Errorf("contract %s: parameter type: %w", ref, err)
		}
		return tzcall.NewContract(rec.Address, t), nil
	}

	log.Debug("Fetching contract script", "address", rec.Address)
	script, err := a.node(cmd).ContractScript(cmd.Context(), rec.Address)
	if err != nil {
		return nil, err
	}
	return tzcall.NewContractFromScript(rec.Address, script)
}

func newCallCmd(a *app) *cobra.Command {
	var (
		entrypoint string
		arg        string
		from       string
		amount     string
	)
	cmd := &cobra.Command{
		Use:   "call <contract>",
		Short: "Call a contract entrypoint",
		Example: `  tzcall call bank --entrypoint deposit --arg '"1tz"' --amount 1tz
  tzcall call KT1... --entrypoint transfer --arg '["tz1...", 5]'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.source(from)
			if err != nil {
				return err
			}
			contract, err := a.loadContract(cmd, args[0])
			if err != nil {
				return err
			}
			value, err := tzcall.ParseValue([]byte(arg))
			if err != nil {
				return err
			}
			call, err := contract.Invoke(entrypoint, value)
			if err != nil {
				return err
			}
			if call, err = call.WithAmount(amount); err != nil {
				return err
			}

			inv, err := a.node(cmd).Transfer(cmd.Context(), src, call)
			if err != nil {
				return err
			}
			if a.dryRun {
				return nil
			}

			receipt := callReceipt{
				TransactionReceipt: tzcall.ParseTransaction(tzcall.TransferRequest{
					Source:      src,
					Destination: call.Destination(),
					Entrypoint:  call.Entrypoint(),
					Amount:      call.AmountTez(),
					Arg:         call.ArgText(),
				}, inv.Output),
				Events: tzcall.ExtractEvents(inv.Output.Combined()),
			}
			a.record(store.KindTransaction, inv, receipt)
			if err := printJSON(cmd.OutOrStdout(), receipt); err != nil {
				return err
			}
			if f := receipt.Failure; f != nil {
				return fmt.Errorf("call failed (%s): %s", f.Kind, f.Value)
			}
			log.Info("Contract called", "contract", call.Destination(), "entrypoint", call.Entrypoint(), "events", len(receipt.Events))
			return nil
		},
	}
	cmd.Flags().StringVarP(&entrypoint, "entrypoint", "e", "", "entrypoint name (default entrypoint when empty)")
	cmd.Flags().StringVar(&arg, "arg", "null", "argument as a JSON value")
	cmd.Flags().StringVar(&from, "from", "", "source account (default from config)")
	cmd.Flags().StringVar(&amount, "amount", "0", "amount to transfer, e.g. 1tz or 500utz")
	return cmd
}
