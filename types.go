package tzcall

import (
	"strings"
)

// TypePrim identifies a Michelson type constructor.
type TypePrim uint8

// Type primitives. The set is closed: ParseType rejects anything else.
const (
	TInt TypePrim = iota + 1
	TNat
	TMutez
	TTimestamp
	TBytes
	TAddress
	TBool
	TString
	TKey
	TKeyHash
	TSignature
	TChainID
	TUnit
	TOperation
	TContract
	TLambda
	TNever
	TTicket
	TSaplingState
	TSaplingTransaction
	TBLS12381Fr
	TBLS12381G1
	TBLS12381G2
	TChest
	TChestKey
	TPair
	TOr
	TOption
	TList
	TSet
	TMap
	TBigMap
)

var typePrimNames = map[TypePrim]string{
	TInt:                "int",
	TNat:                "nat",
	TMutez:              "mutez",
	TTimestamp:          "timestamp",
	TBytes:              "bytes",
	TAddress:            "address",
	TBool:               "bool",
	TString:             "string",
	TKey:                "key",
	TKeyHash:            "key_hash",
	TSignature:          "signature",
	TChainID:            "chain_id",
	TUnit:               "unit",
	TOperation:          "operation",
	TContract:           "contract",
	TLambda:             "lambda",
	TNever:              "never",
	TTicket:             "ticket",
	TSaplingState:       "sapling_state",
	TSaplingTransaction: "sapling_transaction",
	TBLS12381Fr:         "bls12_381_fr",
	TBLS12381G1:         "bls12_381_g1",
	TBLS12381G2:         "bls12_381_g2",
	TChest:              "chest",
	TChestKey:           "chest_key",
	TPair:               "pair",
	TOr:                 "or",
	TOption:             "option",
	TList:               "list",
	TSet:                "set",
	TMap:                "map",
	TBigMap:             "big_map",
}

var typePrimByName = func() map[string]TypePrim {
	m := make(map[string]TypePrim, len(typePrimNames))
	for p, name := range typePrimNames {
		m[name] = p
	}
	return m
}()

// minArity is the minimum number of type arguments per constructor.
var minArity = map[TypePrim]int{
	TPair:     2,
	TOr:       2,
	TMap:      2,
	TBigMap:   2,
	TLambda:   2,
	TOption:   1,
	TList:     1,
	TSet:      1,
	TContract: 1,
	TTicket:   1,
}

func (p TypePrim) String() string {
	if name, ok := typePrimNames[p]; ok {
		return name
	}
	return "unknown"
}

// LookupTypePrim returns the primitive with the given Michelson name.
func LookupTypePrim(name string) (TypePrim, bool) {
	p, ok := typePrimByName[name]
	return p, ok
}

// Type is a recursive Michelson type descriptor.
type Type struct {
	Prim   TypePrim
	Args   []*Type
	Annots []string
}

// NewType creates a type descriptor, enforcing the constructor's minimum arity.
func NewType(prim TypePrim, args ...*Type) (*Type, error) {
	if _, ok := typePrimNames[prim]; !ok {
		return nil, ErrUnknownPrimitive
	}
	if want := minArity[prim]; len(args) < want {
		return nil, &ArityError{Prim: prim, Expected: want, Got: len(args)}
	}
	return &Type{Prim: prim, Args: args}, nil
}

// MustType is like NewType but panics on error.
// Use only with compile-time constant descriptors.
func MustType(prim TypePrim, args ...*Type) *Type {
	t, err := NewType(prim, args...)
	if err != nil {
		panic(err)
	}
	return t
}

// Scalar returns a descriptor for an argument-less primitive.
func Scalar(prim TypePrim) *Type {
	return MustType(prim)
}

// PairOf creates a pair type with two or more fields.
func PairOf(fields ...*Type) *Type { return MustType(TPair, fields...) }

// OrOf creates a variant type.
func OrOf(left, right *Type) *Type { return MustType(TOr, left, right) }

// OptionOf creates an option type.
func OptionOf(t *Type) *Type { return MustType(TOption, t) }

// ListOf creates a list type.
func ListOf(t *Type) *Type { return MustType(TList, t) }

// SetOf creates a set type.
func SetOf(t *Type) *Type { return MustType(TSet, t) }

// MapOf creates a map type.
func MapOf(key, value *Type) *Type { return MustType(TMap, key, value) }

// BigMapOf creates a big_map type.
func BigMapOf(key, value *Type) *Type { return MustType(TBigMap, key, value) }

// WithAnnots returns a copy of the type carrying the given annotations.
func (t *Type) WithAnnots(annots ...string) *Type {
	clone := *t
	clone.Annots = append([]string(nil), annots...)
	return &clone
}

// FieldName returns the %field annotation without its sigil, or "".
func (t *Type) FieldName() string {
	for _, a := range t.Annots {
		if strings.HasPrefix(a, "%") {
			return a[1:]
		}
	}
	return ""
}

// Node renders the descriptor as a Micheline expression.
func (t *Type) Node() Node {
	n := PrimNode{Prim: t.Prim.String(), Annots: t.Annots}
	for _, arg := range t.Args {
		n.Args = append(n.Args, arg.Node())
	}
	return n
}

// String renders the descriptor in Michelson type syntax.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return FormatNode(t.Node())
}

// ParseType builds a descriptor from a Micheline type expression.
func ParseType(n Node) (*Type, error) {
	prim, ok := n.(PrimNode)
	if !ok {
		return nil, &SyntaxError{Msg: "type expression must be a primitive, got " + FormatNode(n)}
	}
	p, ok := LookupTypePrim(prim.Prim)
	if !ok {
		return nil, &EncodingError{Type: prim.Prim, Err: ErrUnknownPrimitive}
	}
	args := make([]*Type, 0, len(prim.Args))
	for _, a := range prim.Args {
		child, err := ParseType(a)
		if err != nil {
			return nil, err
		}
		args = append(args, child)
	}
	t, err := NewType(p, args...)
	if err != nil {
		return nil, err
	}
	if len(prim.Annots) > 0 {
		t.Annots = append([]string(nil), prim.Annots...)
	}
	return t, nil
}

// ParseTypeString parses Michelson type syntax, e.g. "pair (int %a) (string %b)".
func ParseTypeString(src string) (*Type, error) {
	n, err := ParseNode(src)
	if err != nil {
		return nil, err
	}
	return ParseType(n)
}

// MustParseType is like ParseTypeString but panics on error.
func MustParseType(src string) *Type {
	t, err := ParseTypeString(src)
	if err != nil {
		panic(err)
	}
	return t
}

// ScriptSection returns the argument of a top-level script section such as
// "parameter" or "storage".
func ScriptSection(script SeqNode, name string) (Node, bool) {
	for _, item := range script {
		prim, ok := item.(PrimNode)
		if !ok || prim.Prim != name || len(prim.Args) == 0 {
			continue
		}
		return prim.Args[0], true
	}
	return nil, false
}
