package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	tzcall "github.com/branched-services/go-tzcall"
)

// Invocation is one node client run: the argv and what it printed.
type Invocation struct {
	Command []string
	Output  tzcall.Output
}

// NodeClient builds and runs octez-client commands.
type NodeClient struct {
	runner   Runner
	binary   string
	endpoint string
	burnCap  string
	timeout  time.Duration
}

// Option configures a NodeClient.
type Option func(*NodeClient)

// WithBinary sets the client executable. Default is "octez-client".
func WithBinary(path string) Option {
	return func(c *NodeClient) {
		if path != "" {
			c.binary = path
		}
	}
}

// WithEndpoint selects the node the client talks to.
func WithEndpoint(url string) Option {
	return func(c *NodeClient) {
		c.endpoint = url
	}
}

// WithBurnCap sets the --burn-cap passed to injecting commands.
func WithBurnCap(tez string) Option {
	return func(c *NodeClient) {
		c.burnCap = tez
	}
}

// WithTimeout bounds every command. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *NodeClient) {
		c.timeout = d
	}
}

// NewNodeClient creates a client that executes through runner.
func NewNodeClient(runner Runner, opts ...Option) *NodeClient {
	c := &NodeClient{
		runner:  runner,
		binary:  "octez-client",
		burnCap: "1",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *NodeClient) argv(args ...string) []string {
	argv := []string{c.binary}
	if c.endpoint != "" {
		argv = append(argv, "--endpoint", c.endpoint)
	}
	return append(argv, args...)
}

func (c *NodeClient) run(ctx context.Context, args ...string) (Invocation, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	argv := c.argv(args...)
	out, err := c.runner.Run(ctx, argv[0], argv[1:]...)
	return Invocation{Command: argv, Output: out}, err
}

// query runs a read-only command and fails on a non-zero exit.
func (c *NodeClient) query(ctx context.Context, args ...string) (string, error) {
	inv, err := c.run(ctx, args...)
	if err != nil {
		return "", err
	}
	if inv.Output.Failed {
		return "", &CommandError{Command: inv.Command, Output: inv.Output}
	}
	return strings.TrimSpace(inv.Output.Stdout), nil
}

// Origination describes a contract deployment.
type Origination struct {
	Alias  string
	Source string
	Amount string // tez
	Script string // Michelson source or path
	Init   string // initial storage in Michelson syntax
}

// Originate deploys a contract. A rejected operation is not an error; it
// is reported through Output.Failed for receipt classification.
func (c *NodeClient) Originate(ctx context.Context, o Origination) (Invocation, error) {
	amount := o.Amount
	if amount == "" {
		amount = "0"
	}
	log.Info("Originating contract", "alias", o.Alias, "source", o.Source, "amount", amount)
	return c.run(ctx,
		"originate", "contract", o.Alias,
		"transferring", amount,
		"from", o.Source,
		"running", o.Script,
		"--init", o.Init,
		"--burn-cap", c.burnCap,
		"--force",
	)
}

// Transfer injects one contract call.
func (c *NodeClient) Transfer(ctx context.Context, source string, call *tzcall.Call) (Invocation, error) {
	args := []string{
		"transfer", call.AmountTez(),
		"from", source,
		"to", call.Destination(),
	}
	if ep := call.Entrypoint(); ep != "" && ep != tzcall.DefaultEntrypoint {
		args = append(args, "--entrypoint", ep)
	}
	args = append(args, "--arg", call.ArgText(), "--burn-cap", c.burnCap)

	log.Info("Calling contract", "contract", call.Destination(), "entrypoint", call.Entrypoint(), "amount", call.AmountTez())
	return c.run(ctx, args...)
}

// MultipleTransfers injects a batch as one operation group.
func (c *NodeClient) MultipleTransfers(ctx context.Context, source string, batch *tzcall.Batch) (Invocation, error) {
	payload, err := batch.JSON()
	if err != nil {
		return Invocation{}, err
	}
	log.Info("Injecting batch", "source", source, "operations", batch.Len())
	return c.run(ctx,
		"multiple", "transfers", "from", source,
		"using", string(payload),
		"--burn-cap", c.burnCap,
	)
}

// RunScript interprets a script locally and returns the parsed trace.
// The invocation is returned alongside for logging.
func (c *NodeClient) RunScript(ctx context.Context, script, storage, input string) (*tzcall.Trace, Invocation, error) {
	inv, err := c.run(ctx,
		"run", "script", script,
		"on", "storage", storage,
		"and", "input", input,
	)
	if err != nil {
		return nil, inv, err
	}
	if inv.Output.Failed {
		return nil, inv, &CommandError{Command: inv.Command, Output: inv.Output}
	}
	trace, err := tzcall.ParseInterpretationTrace(inv.Output.Stdout)
	return trace, inv, err
}

// EntrypointType asks the node for the parameter type of an entrypoint.
func (c *NodeClient) EntrypointType(ctx context.Context, contract, entrypoint string) (*tzcall.Type, error) {
	if entrypoint == "" {
		entrypoint = tzcall.DefaultEntrypoint
	}
	out, err := c.query(ctx, "get", "contract", "entrypoint", "type", "of", entrypoint, "for", contract)
	if err != nil {
		return nil, err
	}
	// Output has the form "Entrypoint <name>: <type>".
	_, typ, ok := strings.Cut(out, ":")
	if !ok {
		return nil, fmt.Errorf("client: unexpected entrypoint type output %q", out)
	}
	return tzcall.ParseTypeString(strings.TrimSpace(typ))
}

// ContractScript fetches the code of a deployed contract.
func (c *NodeClient) ContractScript(ctx context.Context, contract string) (string, error) {
	return c.query(ctx, "get", "contract", "code", "for", contract)
}

// ContractStorage fetches the current storage of a contract in Michelson syntax.
func (c *NodeClient) ContractStorage(ctx context.Context, contract string) (string, error) {
	return c.query(ctx, "get", "contract", "storage", "for", contract)
}

// ShowAddress resolves a client alias to its address.
func (c *NodeClient) ShowAddress(ctx context.Context, alias string) (string, error) {
	out, err := c.query(ctx, "show", "address", alias)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if addr, ok := strings.CutPrefix(strings.TrimSpace(line), "Hash:"); ok {
			return strings.TrimSpace(addr), nil
		}
	}
	return "", fmt.Errorf("client: no address for alias %q", alias)
}
