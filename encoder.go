package tzcall

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Currency suffixes accepted by mutez values: "2tz" is two tez, "150utz"
// is 150 mutez.
const (
	tezSuffix      = "tz"
	microTezSuffix = "utz"
	mutezPerTez    = 1_000_000
)

// Encoder converts native values into Micheline nodes, directed by a type.
// An Encoder is stateless after construction and safe for concurrent use.
type Encoder struct {
	cfg *encoderConfig
}

// NewEncoder creates an Encoder with the given options.
func NewEncoder(opts ...EncoderOption) *Encoder {
	cfg := defaultEncoderConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Encoder{cfg: cfg}
}

var defaultEncoder = NewEncoder()

// Encode converts v into a Micheline node using the default Encoder.
func Encode(t *Type, v Value) (Node, error) {
	return defaultEncoder.Encode(t, v)
}

// Encode converts v into a Micheline node shaped by t.
// Encoding is fail-fast: on error the returned node is always nil and the
// error is an *EncodingError naming the innermost offending type and value.
func (e *Encoder) Encode(t *Type, v Value) (Node, error) {
	if t == nil {
		return nil, newEncodingError(t, v, ErrUnknownPrimitive, "nil type")
	}
	if v == nil {
		v = NullValue{}
	}
	if want := minArity[t.Prim]; len(t.Args) < want {
		return nil, newEncodingError(t, v, ErrInvalidArity, fmt.Sprintf("%s needs %d type arguments, has %d", t.Prim, want, len(t.Args)))
	}

	switch t.Prim {
	case TBytes, TBLS12381G1, TBLS12381G2, TChest, TChestKey, TSaplingTransaction:
		return e.encodeBytes(t, v)

	case TMutez:
		return e.encodeMutez(t, v)

	case TTimestamp:
		return e.encodeTimestamp(t, v)

	case TMap, TBigMap:
		return e.encodeMap(t, v)

	case TOr:
		return e.encodeOr(t, v)

	case TPair:
		return e.encodePair(t, v)

	case TList, TSet:
		return e.encodeList(t, v)

	case TOption:
		if _, isNull := v.(NullValue); isNull {
			return e.canonicalEncode(t, v)
		}
		inner, err := e.Encode(t.Args[0], v)
		if err != nil {
			return nil, err
		}
		return Prim("Some", inner), nil

	case TInt, TNat, TAddress, TBool, TString, TKey, TKeyHash, TSignature,
		TChainID, TUnit, TOperation, TContract, TLambda, TNever, TTicket,
		TSaplingState, TBLS12381Fr:
		return e.canonicalEncode(t, v)

	default:
		return nil, newEncodingError(t, v, ErrUnknownPrimitive, "")
	}
}

// encodeBytes strips an optional 0x prefix and wraps the rest verbatim.
func (e *Encoder) encodeBytes(t *Type, v Value) (Node, error) {
	s, ok := v.(StringValue)
	if !ok {
		return nil, newEncodingError(t, v, ErrTypeMismatch, "bytes must be a hex string")
	}
	hex := strings.TrimPrefix(string(s), "0x")
	if e.cfg.validateHex {
		if _, err := hexutil.Decode("0x" + hex); err != nil {
			return nil, newEncodingError(t, v, ErrTypeMismatch, err.Error())
		}
	}
	return Bytes(hex), nil
}

// encodeMutez accepts "<decimal>tz" and "<decimal>utz" shorthands.
func (e *Encoder) encodeMutez(t *Type, v Value) (Node, error) {
	s, ok := v.(StringValue)
	if !ok || !strings.HasSuffix(string(s), tezSuffix) {
		return e.canonicalEncode(t, v)
	}
	amount, ok := ParseTez(string(s))
	if !ok {
		return nil, newEncodingError(t, v, ErrTypeMismatch, "not an integer number of mutez")
	}
	return BigInt(amount), nil
}

// ParseTez converts an amount such as "1.5tz", "150utz" or "150" to mutez.
// A bare number is already in mutez, as it is for Encode. It reports false
// when the text is malformed or the amount is not a whole number of mutez.
func ParseTez(s string) (*big.Int, bool) {
	digits := s
	scale := big.NewRat(1, 1)
	switch {
	case strings.HasSuffix(s, microTezSuffix):
		digits = strings.TrimSuffix(s, microTezSuffix)
	case strings.HasSuffix(s, tezSuffix):
		digits = strings.TrimSuffix(s, tezSuffix)
		scale = big.NewRat(mutezPerTez, 1)
	}
	digits = strings.TrimSpace(digits)
	if !isDecimal(digits) {
		return nil, false
	}
	r, ok := new(big.Rat).SetString(digits)
	if !ok {
		return nil, false
	}
	r.Mul(r, scale)
	if !r.IsInt() {
		return nil, false
	}
	return new(big.Int).Set(r.Num()), true
}

// isDecimal reports whether s is an unsigned decimal such as "12" or "0.5".
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	seenDot := false
	seenDigit := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.' && !seenDot:
			seenDot = true
		default:
			return false
		}
	}
	return seenDigit
}

// encodeTimestamp converts calendar strings to Unix seconds before
// delegating to the canonical encoder.
func (e *Encoder) encodeTimestamp(t *Type, v Value) (Node, error) {
	s, ok := v.(StringValue)
	if !ok {
		return e.canonicalEncode(t, v)
	}
	if isInteger(string(s)) {
		return e.canonicalEncode(t, NumberValue(s))
	}
	for _, layout := range e.cfg.timeLayouts {
		ts, err := time.ParseInLocation(layout, string(s), e.cfg.location)
		if err == nil {
			return e.canonicalEncode(t, NumberValue(strconv.FormatInt(ts.Unix(), 10)))
		}
	}
	return nil, newEncodingError(t, v, ErrTypeMismatch, "unrecognised date")
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// encodeMap emits one Elt per entry in input order. Entries are neither
// sorted nor deduplicated.
func (e *Encoder) encodeMap(t *Type, v Value) (Node, error) {
	list, ok := v.(ListValue)
	if !ok {
		return nil, newEncodingError(t, v, ErrShapeMismatch, "")
	}
	out := make(SeqNode, 0, len(list))
	for _, item := range list {
		entry, ok := item.(ObjectValue)
		if !ok {
			return nil, newEncodingError(t, item, ErrMapEntryMissingField, "")
		}
		key, hasKey := entry.Field("key")
		val, hasVal := entry.Field("value")
		if !hasKey || !hasVal {
			return nil, newEncodingError(t, item, ErrMapEntryMissingField, "")
		}
		k, err := e.Encode(t.Args[0], key)
		if err != nil {
			return nil, err
		}
		ev, err := e.Encode(t.Args[1], val)
		if err != nil {
			return nil, err
		}
		out = append(out, Prim("Elt", k, ev))
	}
	return out, nil
}

func (e *Encoder) encodeOr(t *Type, v Value) (Node, error) {
	obj, ok := v.(ObjectValue)
	if !ok {
		return nil, newEncodingError(t, v, ErrOrMissingField, "")
	}
	kind, hasKind := obj.Field("kind")
	val, hasVal := obj.Field("value")
	if !hasKind || !hasVal {
		return nil, newEncodingError(t, v, ErrOrMissingField, "")
	}
	ks, _ := kind.(StringValue)
	switch {
	case strings.EqualFold(string(ks), "left"):
		inner, err := e.Encode(t.Args[0], val)
		if err != nil {
			return nil, err
		}
		return Prim("Left", inner), nil
	case strings.EqualFold(string(ks), "right"):
		inner, err := e.Encode(t.Args[1], val)
		if err != nil {
			return nil, err
		}
		return Prim("Right", inner), nil
	default:
		return nil, newEncodingError(t, v, ErrUnknownVariant, "")
	}
}

// encodePair encodes the first len(t.Args) elements. Longer sequences are
// accepted and the surplus ignored.
func (e *Encoder) encodePair(t *Type, v Value) (Node, error) {
	list, ok := v.(ListValue)
	if !ok {
		return nil, newEncodingError(t, v, ErrShapeMismatch, "")
	}
	if len(list) < len(t.Args) {
		return nil, newEncodingError(t, v, ErrPairLengthMismatch, "")
	}
	args := make([]Node, 0, len(t.Args))
	for i, field := range t.Args {
		n, err := e.Encode(field, list[i])
		if err != nil {
			return nil, err
		}
		args = append(args, n)
	}
	return Prim("Pair", args...), nil
}

// encodeList handles list and set; sets are not deduplicated.
func (e *Encoder) encodeList(t *Type, v Value) (Node, error) {
	list, ok := v.(ListValue)
	if !ok {
		return nil, newEncodingError(t, v, ErrShapeMismatch, "")
	}
	out := make(SeqNode, 0, len(list))
	for _, item := range list {
		n, err := e.Encode(t.Args[0], item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
