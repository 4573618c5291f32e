package tzcall

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Node is a Micheline expression.
// This is a sealed interface - only types within this package can implement it.
type Node interface {
	isNode()
}

// IntNode is an integer literal, kept in decimal form.
type IntNode struct {
	Value string
}

// StringNode is a string literal.
type StringNode struct {
	Value string
}

// BytesNode is a bytes literal holding hex digits without the 0x prefix.
type BytesNode struct {
	Value string
}

// PrimNode is a primitive application such as Pair, Left or Elt.
type PrimNode struct {
	Prim   string
	Args   []Node
	Annots []string
}

// SeqNode is a bare sequence of nodes.
type SeqNode []Node

func (IntNode) isNode()    {}
func (StringNode) isNode() {}
func (BytesNode) isNode()  {}
func (PrimNode) isNode()   {}
func (SeqNode) isNode()    {}

// Int creates an integer literal.
func Int(v int64) IntNode {
	return IntNode{Value: big.NewInt(v).String()}
}

// BigInt creates an integer literal from a *big.Int.
func BigInt(v *big.Int) IntNode {
	return IntNode{Value: v.String()}
}

// String creates a string literal.
func String(v string) StringNode {
	return StringNode{Value: v}
}

// Bytes creates a bytes literal from hex digits.
func Bytes(hex string) BytesNode {
	return BytesNode{Value: hex}
}

// Prim creates a primitive application.
func Prim(name string, args ...Node) PrimNode {
	return PrimNode{Prim: name, Args: args}
}

// Seq creates a sequence.
func Seq(nodes ...Node) SeqNode {
	if nodes == nil {
		return SeqNode{}
	}
	return SeqNode(nodes)
}

// BigInt returns the literal as a *big.Int, or nil if it is malformed.
func (n IntNode) BigInt() *big.Int {
	v, ok := new(big.Int).SetString(n.Value, 10)
	if !ok {
		return nil
	}
	return v
}

// Decode returns the raw bytes of the literal.
func (n BytesNode) Decode() ([]byte, error) {
	return hexutil.Decode("0x" + n.Value)
}

// nodeJSON is the canonical Micheline JSON shape of a single non-sequence node.
type nodeJSON struct {
	Int    *string           `json:"int,omitempty"`
	String *string           `json:"string,omitempty"`
	Bytes  *string           `json:"bytes,omitempty"`
	Prim   string            `json:"prim,omitempty"`
	Args   []json.RawMessage `json:"args,omitempty"`
	Annots []string          `json:"annots,omitempty"`
}

// MarshalNode renders a node as Micheline JSON.
func MarshalNode(n Node) ([]byte, error) {
	v, err := nodeToJSON(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func nodeToJSON(n Node) (any, error) {
	switch node := n.(type) {
	case IntNode:
		return nodeJSON{Int: &node.Value}, nil
	case StringNode:
		return nodeJSON{String: &node.Value}, nil
	case BytesNode:
		return nodeJSON{Bytes: &node.Value}, nil
	case PrimNode:
		out := nodeJSON{Prim: node.Prim, Annots: node.Annots}
		for _, arg := range node.Args {
			b, err := MarshalNode(arg)
			if err != nil {
				return nil, err
			}
			out.Args = append(out.Args, b)
		}
		return out, nil
	case SeqNode:
		items := make([]json.RawMessage, 0, len(node))
		for _, item := range node {
			b, err := MarshalNode(item)
			if err != nil {
				return nil, err
			}
			items = append(items, b)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("tzcall: cannot marshal node %T", n)
	}
}

// UnmarshalNode parses Micheline JSON.
func UnmarshalNode(data []byte) (Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		seq := make(SeqNode, 0, len(raw))
		for _, item := range raw {
			n, err := UnmarshalNode(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, n)
		}
		return seq, nil
	}

	var obj nodeJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	switch {
	case obj.Int != nil:
		if _, ok := new(big.Int).SetString(*obj.Int, 10); !ok {
			return nil, fmt.Errorf("tzcall: invalid int literal %q", *obj.Int)
		}
		return IntNode{Value: *obj.Int}, nil
	case obj.String != nil:
		return StringNode{Value: *obj.String}, nil
	case obj.Bytes != nil:
		return BytesNode{Value: *obj.Bytes}, nil
	case obj.Prim != "":
		prim := PrimNode{Prim: obj.Prim, Annots: obj.Annots}
		for _, arg := range obj.Args {
			n, err := UnmarshalNode(arg)
			if err != nil {
				return nil, err
			}
			prim.Args = append(prim.Args, n)
		}
		return prim, nil
	default:
		return nil, fmt.Errorf("tzcall: unrecognised micheline json %s", data)
	}
}
