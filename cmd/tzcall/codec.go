package main

import (
	"fmt"

	"github.com/spf13/cobra"

	tzcall "github.com/branched-services/go-tzcall"
)

func newEncodeCmd(_ *app) *cobra.Command {
	var (
		typ    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "encode <value-json>",
		Short: "Encode a JSON value against a Michelson type",
		Example: `  tzcall encode --type 'pair (address %to) (mutez %amount)' '["tz1...", "2tz"]'
  tzcall encode --type 'map string nat' --json '[{"key": "a", "value": 1}]'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tzcall.ParseTypeString(typ)
			if err != nil {
				return fmt.Errorf("type: %w", err)
			}
			v, err := tzcall.ParseValue([]byte(args[0]))
			if err != nil {
				return err
			}
			n, err := tzcall.Encode(t, v)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := tzcall.MarshalNode(n)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tzcall.FormatNode(n))
			return err
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "Michelson type")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print Micheline JSON instead of Michelson")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newDecodeCmd(_ *app) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "decode <michelson>",
		Short: "Decode a Michelson expression into its JSON value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tzcall.ParseTypeString(typ)
			if err != nil {
				return fmt.Errorf("type: %w", err)
			}
			n, err := tzcall.ParseNode(args[0])
			if err != nil {
				return err
			}
			v, err := tzcall.Decode(t, n)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "Michelson type")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newReceiptCmd(_ *app) *cobra.Command {
	var (
		kind   string
		failed bool
	)
	cmd := &cobra.Command{
		Use:   "receipt [file]",
		Short: "Parse saved client output into a receipt",
		Long:  "Parse octez-client output read from a file or stdin into a transaction or origination receipt.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			out := tzcall.Output{Stdout: text, Failed: failed}
			switch kind {
			case "transaction":
				return printJSON(cmd.OutOrStdout(), tzcall.ParseTransaction(tzcall.TransferRequest{}, out))
			case "origination":
				return printJSON(cmd.OutOrStdout(), tzcall.ParseOrigination(tzcall.OriginationRequest{}, out))
			}
			return fmt.Errorf("unknown receipt kind %q", kind)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "transaction", "receipt kind: transaction or origination")
	cmd.Flags().BoolVar(&failed, "failed", false, "the command exited non-zero; classify the failure")
	return cmd
}

func newEventsCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events [file]",
		Short: "Extract contract events from saved client output",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tzcall.ExtractEvents(text))
		},
	}
}

func newTraceCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trace [file]",
		Short: "Parse saved \"run script\" output into an interpretation trace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			tr, err := tzcall.ParseInterpretationTrace(text)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tr)
		},
	}
}
