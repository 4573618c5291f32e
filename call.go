package tzcall

import (
	"encoding/json"
	"math/big"
	"strings"
)

// Call represents a pending contract call.
// Call is immutable - modifier methods return new instances.
type Call struct {
	contract   *Contract
	entrypoint string
	argType    *Type
	arg        Node
	amount     *big.Int // mutez
}

// newCall encodes the raw argument against the entrypoint type.
func newCall(contract *Contract, entrypoint string, t *Type, raw any) (*Call, error) {
	val, err := NewValue(raw)
	if err != nil {
		return nil, &CallError{Entrypoint: entrypoint, Err: err}
	}
	arg, err := contract.encoder.Encode(t, val)
	if err != nil {
		return nil, &CallError{Entrypoint: entrypoint, Err: err}
	}
	return &Call{
		contract:   contract,
		entrypoint: entrypoint,
		argType:    t,
		arg:        arg,
		amount:     new(big.Int),
	}, nil
}

// Contract returns the target contract for this call.
func (c *Call) Contract() *Contract {
	return c.contract
}

// Destination returns the target contract address.
func (c *Call) Destination() string {
	return c.contract.address
}

// Entrypoint returns the entrypoint name.
func (c *Call) Entrypoint() string {
	return c.entrypoint
}

// ArgType returns the type the argument was encoded against.
func (c *Call) ArgType() *Type {
	return c.argType
}

// Arg returns the encoded argument.
func (c *Call) Arg() Node {
	return c.arg
}

// ArgText returns the argument in Michelson syntax, as passed to the client.
func (c *Call) ArgText() string {
	return FormatNode(c.arg)
}

// ArgJSON returns the argument as Micheline JSON.
func (c *Call) ArgJSON() (json.RawMessage, error) {
	return MarshalNode(c.arg)
}

// Amount returns the transferred amount in mutez.
func (c *Call) Amount() *big.Int {
	return new(big.Int).Set(c.amount)
}

// AmountTez returns the amount in tez as a decimal string, the unit the
// node client expects.
func (c *Call) AmountTez() string {
	return FormatTez(c.amount)
}

// WithAmount attaches a transfer amount, given in the mutez shorthand
// accepted by the encoder ("2tz", "150utz" or a plain mutez integer).
//
// Returns a new Call with the amount set.
func (c *Call) WithAmount(amount string) (*Call, error) {
	n, err := c.contract.encoder.Encode(Scalar(TMutez), StringValue(amount))
	if err != nil {
		return nil, &CallError{Entrypoint: c.entrypoint, Err: err}
	}
	clone := c.clone()
	clone.amount = n.(IntNode).BigInt()
	return clone, nil
}

// clone creates a shallow copy of the Call.
func (c *Call) clone() *Call {
	clone := *c
	clone.amount = new(big.Int).Set(c.amount)
	return &clone
}

// FormatTez renders a mutez amount in tez without trailing zeros.
func FormatTez(mutez *big.Int) string {
	s := new(big.Rat).SetFrac(mutez, big.NewInt(mutezPerTez)).FloatString(6)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
