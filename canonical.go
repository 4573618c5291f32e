package tzcall

import (
	"math/big"
	"strings"
)

// Address prefixes accepted by the address check. Only the prefix is
// inspected; checksums are not verified.
var (
	addressPrefixes = []string{"tz1", "tz2", "tz3", "tz4", "KT1", "sr1", "txr1"}
	keyHashPrefixes = []string{"tz1", "tz2", "tz3", "tz4"}
)

func hasPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// canonicalEncode encodes scalar primitives and the None case of option.
func (e *Encoder) canonicalEncode(t *Type, v Value) (Node, error) {
	switch t.Prim {
	case TInt:
		return e.encodeInteger(t, v, false)

	case TNat, TMutez, TTimestamp:
		return e.encodeInteger(t, v, t.Prim != TTimestamp)

	case TString, TKey, TSignature, TChainID:
		s, ok := v.(StringValue)
		if !ok {
			return nil, newEncodingError(t, v, ErrTypeMismatch, "string expected")
		}
		return String(string(s)), nil

	case TAddress, TContract:
		return e.encodeAddress(t, v, addressPrefixes)

	case TKeyHash:
		return e.encodeAddress(t, v, keyHashPrefixes)

	case TBool:
		b, ok := v.(BoolValue)
		if !ok {
			return nil, newEncodingError(t, v, ErrTypeMismatch, "boolean expected")
		}
		if b {
			return Prim("True"), nil
		}
		return Prim("False"), nil

	case TUnit:
		switch val := v.(type) {
		case NullValue:
			return Prim("Unit"), nil
		case StringValue:
			if val == "Unit" {
				return Prim("Unit"), nil
			}
		}
		return nil, newEncodingError(t, v, ErrTypeMismatch, "unit expects null")

	case TOption:
		if _, ok := v.(NullValue); ok {
			return Prim("None"), nil
		}
		return nil, newEncodingError(t, v, ErrTypeMismatch, "null expected")

	case TBytes, TBLS12381G1, TBLS12381G2, TChest, TChestKey, TSaplingTransaction:
		return e.encodeBytes(t, v)

	case TBLS12381Fr:
		if _, ok := v.(StringValue); ok {
			return e.encodeBytes(t, v)
		}
		return e.encodeInteger(t, v, false)

	case TSaplingState:
		if list, ok := v.(ListValue); ok && len(list) == 0 {
			return Seq(), nil
		}
		return e.encodeInteger(t, v, true)

	case TLambda:
		s, ok := v.(StringValue)
		if !ok {
			return nil, newEncodingError(t, v, ErrTypeMismatch, "lambda expects michelson code")
		}
		code, err := ParseNode(string(s))
		if err != nil {
			return nil, newEncodingError(t, v, ErrTypeMismatch, err.Error())
		}
		if _, ok := code.(SeqNode); !ok {
			return nil, newEncodingError(t, v, ErrTypeMismatch, "lambda body must be a sequence")
		}
		return code, nil

	case TTicket:
		return e.encodeTicket(t, v)

	case TOperation, TNever:
		return nil, newEncodingError(t, v, ErrTypeMismatch, "type has no literal values")

	default:
		return nil, newEncodingError(t, v, ErrUnknownPrimitive, "")
	}
}

func (e *Encoder) encodeInteger(t *Type, v Value, nonNegative bool) (Node, error) {
	var text string
	switch val := v.(type) {
	case NumberValue:
		text = string(val)
	case StringValue:
		text = string(val)
	default:
		return nil, newEncodingError(t, v, ErrTypeMismatch, "integer expected")
	}
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, newEncodingError(t, v, ErrTypeMismatch, "integer expected")
	}
	if nonNegative && n.Sign() < 0 {
		return nil, newEncodingError(t, v, ErrTypeMismatch, "negative value")
	}
	return BigInt(n), nil
}

func (e *Encoder) encodeAddress(t *Type, v Value, prefixes []string) (Node, error) {
	s, ok := v.(StringValue)
	if !ok {
		return nil, newEncodingError(t, v, ErrTypeMismatch, "address string expected")
	}
	if e.cfg.checkAddress && !hasPrefix(string(s), prefixes) {
		return nil, newEncodingError(t, v, ErrTypeMismatch, "unknown address prefix")
	}
	return String(string(s)), nil
}

// encodeTicket encodes {ticketer, value, amount} as a ticket pair.
func (e *Encoder) encodeTicket(t *Type, v Value) (Node, error) {
	obj, ok := v.(ObjectValue)
	if !ok {
		return nil, newEncodingError(t, v, ErrTypeMismatch, "ticket expects ticketer, value and amount")
	}
	ticketer, ok1 := obj.Field("ticketer")
	content, ok2 := obj.Field("value")
	amount, ok3 := obj.Field("amount")
	if !ok1 || !ok2 || !ok3 {
		return nil, newEncodingError(t, v, ErrTypeMismatch, "ticket expects ticketer, value and amount")
	}
	tn, err := e.Encode(Scalar(TAddress), ticketer)
	if err != nil {
		return nil, err
	}
	cn, err := e.Encode(t.Args[0], content)
	if err != nil {
		return nil, err
	}
	an, err := e.Encode(Scalar(TNat), amount)
	if err != nil {
		return nil, err
	}
	return Prim("Pair", tn, cn, an), nil
}

// Decode converts a Micheline node back to a native value shaped by t.
// It is the inverse of Encode for canonical values: lower-case variant
// kinds, bytes without 0x and timestamps as seconds.
func Decode(t *Type, n Node) (Value, error) {
	if t == nil {
		return nil, newEncodingError(t, nil, ErrUnknownPrimitive, "nil type")
	}
	mismatch := func() (Value, error) {
		return nil, newEncodingError(t, nil, ErrTypeMismatch, "cannot decode "+FormatNode(n))
	}

	switch t.Prim {
	case TInt, TNat, TMutez:
		if i, ok := n.(IntNode); ok {
			return NumberValue(i.Value), nil
		}
		return mismatch()

	case TTimestamp:
		switch node := n.(type) {
		case IntNode:
			return NumberValue(node.Value), nil
		case StringNode:
			return StringValue(node.Value), nil
		}
		return mismatch()

	case TString, TAddress, TContract, TKey, TKeyHash, TSignature, TChainID:
		switch node := n.(type) {
		case StringNode:
			return StringValue(node.Value), nil
		case BytesNode:
			return StringValue(node.Value), nil
		}
		return mismatch()

	case TBytes, TBLS12381G1, TBLS12381G2, TChest, TChestKey, TSaplingTransaction:
		if b, ok := n.(BytesNode); ok {
			return StringValue(b.Value), nil
		}
		return mismatch()

	case TBLS12381Fr:
		switch node := n.(type) {
		case IntNode:
			return NumberValue(node.Value), nil
		case BytesNode:
			return StringValue(node.Value), nil
		}
		return mismatch()

	case TBool:
		if p, ok := n.(PrimNode); ok && len(p.Args) == 0 {
			switch p.Prim {
			case "True":
				return BoolValue(true), nil
			case "False":
				return BoolValue(false), nil
			}
		}
		return mismatch()

	case TUnit:
		if p, ok := n.(PrimNode); ok && p.Prim == "Unit" {
			return NullValue{}, nil
		}
		return mismatch()

	case TOption:
		p, ok := n.(PrimNode)
		if !ok {
			return mismatch()
		}
		switch {
		case p.Prim == "None" && len(p.Args) == 0:
			return NullValue{}, nil
		case p.Prim == "Some" && len(p.Args) == 1:
			return Decode(t.Args[0], p.Args[0])
		}
		return mismatch()

	case TOr:
		p, ok := n.(PrimNode)
		if !ok || len(p.Args) != 1 {
			return mismatch()
		}
		switch p.Prim {
		case "Left":
			inner, err := Decode(t.Args[0], p.Args[0])
			if err != nil {
				return nil, err
			}
			return Left(inner), nil
		case "Right":
			inner, err := Decode(t.Args[1], p.Args[0])
			if err != nil {
				return nil, err
			}
			return Right(inner), nil
		}
		return mismatch()

	case TPair:
		args, ok := pairArgs(n)
		if !ok || len(args) < len(t.Args) {
			return mismatch()
		}
		if len(args) > len(t.Args) {
			last := len(t.Args) - 1
			tail := Prim("Pair", args[last:]...)
			args = append(append([]Node(nil), args[:last]...), tail)
		}
		out := make(ListValue, 0, len(t.Args))
		for i, field := range t.Args {
			v, err := Decode(field, args[i])
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case TList, TSet:
		seq, ok := n.(SeqNode)
		if !ok {
			return mismatch()
		}
		out := make(ListValue, 0, len(seq))
		for _, item := range seq {
			v, err := Decode(t.Args[0], item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case TMap, TBigMap:
		if id, ok := n.(IntNode); ok && t.Prim == TBigMap {
			return NumberValue(id.Value), nil
		}
		seq, ok := n.(SeqNode)
		if !ok {
			return mismatch()
		}
		out := make(ListValue, 0, len(seq))
		for _, item := range seq {
			elt, ok := item.(PrimNode)
			if !ok || elt.Prim != "Elt" || len(elt.Args) != 2 {
				return mismatch()
			}
			k, err := Decode(t.Args[0], elt.Args[0])
			if err != nil {
				return nil, err
			}
			v, err := Decode(t.Args[1], elt.Args[1])
			if err != nil {
				return nil, err
			}
			out = append(out, Entry(k, v))
		}
		return out, nil

	case TLambda:
		if _, ok := n.(SeqNode); ok {
			return StringValue(FormatNode(n)), nil
		}
		return mismatch()

	case TTicket:
		args, ok := pairArgs(n)
		if !ok || len(args) != 3 {
			return mismatch()
		}
		ticketer, err := Decode(Scalar(TAddress), args[0])
		if err != nil {
			return nil, err
		}
		content, err := Decode(t.Args[0], args[1])
		if err != nil {
			return nil, err
		}
		amount, err := Decode(Scalar(TNat), args[2])
		if err != nil {
			return nil, err
		}
		return ObjectValue{"ticketer": ticketer, "value": content, "amount": amount}, nil

	case TSaplingState:
		switch node := n.(type) {
		case IntNode:
			return NumberValue(node.Value), nil
		case SeqNode:
			if len(node) == 0 {
				return ListValue{}, nil
			}
		}
		return mismatch()

	default:
		return mismatch()
	}
}

// pairArgs accepts both Pair applications and the comb sequence form.
func pairArgs(n Node) ([]Node, bool) {
	switch node := n.(type) {
	case PrimNode:
		if node.Prim == "Pair" && len(node.Args) >= 2 {
			return node.Args, true
		}
	case SeqNode:
		if len(node) >= 2 {
			return node, true
		}
	}
	return nil, false
}
