package tzcall

import (
	"errors"
	"math/big"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		typ  *Type
		node Node
		want Value
	}{
		{"int", Scalar(TInt), Int(-1), NumberValue("-1")},
		{"string", Scalar(TString), String("a"), StringValue("a")},
		{"bytes", Scalar(TBytes), Bytes("ff"), StringValue("ff")},
		{"bool", Scalar(TBool), Prim("True"), BoolValue(true)},
		{"unit", Scalar(TUnit), Prim("Unit"), NullValue{}},
		{"none", OptionOf(Scalar(TInt)), Prim("None"), NullValue{}},
		{"some", OptionOf(Scalar(TInt)), Prim("Some", Int(3)), NumberValue("3")},
		{"left", OrOf(Scalar(TInt), Scalar(TString)), Prim("Left", Int(1)), Left(NumberValue("1"))},
		{"right", OrOf(Scalar(TInt), Scalar(TString)), Prim("Right", String("x")), Right(StringValue("x"))},
		{"pair", PairOf(Scalar(TInt), Scalar(TString)), Prim("Pair", Int(1), String("a")), ListValue{NumberValue("1"), StringValue("a")}},
		{
			"right comb pair",
			PairOf(Scalar(TInt), PairOf(Scalar(TInt), Scalar(TInt))),
			Prim("Pair", Int(1), Int(2), Int(3)),
			ListValue{NumberValue("1"), ListValue{NumberValue("2"), NumberValue("3")}},
		},
		{"pair as sequence", PairOf(Scalar(TInt), Scalar(TInt)), Seq(Int(1), Int(2)), ListValue{NumberValue("1"), NumberValue("2")}},
		{"list", ListOf(Scalar(TNat)), Seq(Int(1), Int(2)), ListValue{NumberValue("1"), NumberValue("2")}},
		{
			"map",
			MapOf(Scalar(TString), Scalar(TNat)),
			Seq(Prim("Elt", String("b"), Int(2)), Prim("Elt", String("a"), Int(1))),
			ListValue{Entry(StringValue("b"), NumberValue("2")), Entry(StringValue("a"), NumberValue("1"))},
		},
		{"big_map id", BigMapOf(Scalar(TString), Scalar(TNat)), Int(17), NumberValue("17")},
		{"timestamp string", Scalar(TTimestamp), String("2024-01-01T00:00:00Z"), StringValue("2024-01-01T00:00:00Z")},
		{"lambda", MustType(TLambda, Scalar(TInt), Scalar(TInt)), Seq(Prim("DROP")), StringValue("{ DROP }")},
		{
			"ticket",
			MustType(TTicket, Scalar(TNat)),
			Prim("Pair", String(testContract), Int(1), Int(10)),
			ObjectValue{"ticketer": StringValue(testContract), "value": NumberValue("1"), "amount": NumberValue("10")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.typ, tt.node)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  *Type
		node Node
	}{
		{"int from string", Scalar(TInt), String("1")},
		{"bool from int", Scalar(TBool), Int(1)},
		{"option garbage", OptionOf(Scalar(TInt)), Prim("Maybe", Int(1))},
		{"or without arg", OrOf(Scalar(TInt), Scalar(TInt)), Prim("Left")},
		{"pair too short", PairOf(Scalar(TInt), Scalar(TInt), Scalar(TInt)), Prim("Pair", Int(1), Int(2))},
		{"map with non Elt", MapOf(Scalar(TInt), Scalar(TInt)), Seq(Int(1))},
		{"list from int", ListOf(Scalar(TInt)), Int(1)},
		{"operation", Scalar(TOperation), Bytes("00")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.typ, tt.node); !errors.Is(err, ErrTypeMismatch) {
				t.Errorf("Expected ErrTypeMismatch, got %v", err)
			}
		})
	}
}

// roundTrip encodes then decodes, reporting whether the value survived.
func roundTrip(typ *Type, v Value) bool {
	n, err := Encode(typ, v)
	if err != nil {
		return false
	}
	back, err := Decode(typ, n)
	if err != nil {
		return false
	}
	return cmp.Equal(v, back)
}

func TestRoundTripProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("int survives encode then decode", prop.ForAll(
		func(i int64) bool {
			return roundTrip(Scalar(TInt), NumberValue(strconv.FormatInt(i, 10)))
		},
		gen.Int64(),
	))

	properties.Property("nat and mutez survive encode then decode", prop.ForAll(
		func(u uint64) bool {
			v := NumberValue(strconv.FormatUint(u, 10))
			return roundTrip(Scalar(TNat), v) && roundTrip(Scalar(TMutez), v)
		},
		gen.UInt64(),
	))

	properties.Property("big integers survive encode then decode", prop.ForAll(
		func(hi, lo int64) bool {
			n := new(big.Int).Lsh(big.NewInt(hi), 64)
			n.Add(n, big.NewInt(lo))
			return roundTrip(Scalar(TInt), NumberValue(n.String()))
		},
		gen.Int64(),
		gen.Int64(),
	))

	properties.Property("strings survive encode then decode", prop.ForAll(
		func(s string) bool {
			return roundTrip(Scalar(TString), StringValue(s))
		},
		gen.AnyString(),
	))

	properties.Property("bytes survive encode then decode", prop.ForAll(
		func(b []byte) bool {
			v, err := NewValue(b)
			if err != nil {
				return false
			}
			n, err := Encode(Scalar(TBytes), v)
			if err != nil {
				return false
			}
			back, err := Decode(Scalar(TBytes), n)
			if err != nil {
				return false
			}
			// Canonical bytes carry no 0x prefix.
			return "0x"+string(back.(StringValue)) == string(v.(StringValue))
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("bool survives encode then decode", prop.ForAll(
		func(b bool) bool {
			return roundTrip(Scalar(TBool), BoolValue(b))
		},
		gen.Bool(),
	))

	properties.Property("timestamps in seconds survive encode then decode", prop.ForAll(
		func(sec int64) bool {
			return roundTrip(Scalar(TTimestamp), NumberValue(strconv.FormatInt(sec, 10)))
		},
		gen.Int64Range(0, 1<<40),
	))

	properties.Property("compound values survive encode then decode", prop.ForAll(
		func(keys []string, n int64, left bool) bool {
			typ := PairOf(
				MapOf(Scalar(TString), Scalar(TInt)),
				OrOf(Scalar(TInt), OptionOf(Scalar(TString))),
			)
			entries := make(ListValue, 0, len(keys))
			for i, k := range keys {
				entries = append(entries, Entry(StringValue(k), NumberValue(strconv.Itoa(i))))
			}
			var variant Value = Right(NullValue{})
			if left {
				variant = Left(NumberValue(strconv.FormatInt(n, 10)))
			}
			return roundTrip(typ, ListValue{entries, variant})
		},
		gen.SliceOf(gen.AlphaString()),
		gen.Int64(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestMapOrderProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("reversing map input reverses Elt output", prop.ForAll(
		func(keys []string) bool {
			typ := MapOf(Scalar(TString), Scalar(TUnit))
			forward := make(ListValue, 0, len(keys))
			backward := make(ListValue, 0, len(keys))
			for i := range keys {
				forward = append(forward, Entry(StringValue(keys[i]), NullValue{}))
				backward = append(backward, Entry(StringValue(keys[len(keys)-1-i]), NullValue{}))
			}
			a, err := Encode(typ, forward)
			if err != nil {
				return false
			}
			b, err := Encode(typ, backward)
			if err != nil {
				return false
			}
			seqA, seqB := a.(SeqNode), b.(SeqNode)
			for i := range seqA {
				if !cmp.Equal(seqA[i], seqB[len(seqB)-1-i]) {
					return false
				}
			}
			return len(seqA) == len(keys)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
