package tzcall

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNodeConstructors(t *testing.T) {
	t.Run("Int", func(t *testing.T) {
		if Int(-9).Value != "-9" {
			t.Errorf("Expected -9, got %s", Int(-9).Value)
		}
	})

	t.Run("BigInt", func(t *testing.T) {
		v := new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)
		n := BigInt(v)
		if n.BigInt().Cmp(v) != 0 {
			t.Errorf("Expected %s, got %s", v, n.BigInt())
		}
	})

	t.Run("malformed IntNode", func(t *testing.T) {
		if (IntNode{Value: "x"}).BigInt() != nil {
			t.Error("Expected nil for malformed literal")
		}
	})

	t.Run("Seq never nil", func(t *testing.T) {
		if Seq() == nil {
			t.Error("Seq() should return an empty, non-nil sequence")
		}
	})

	t.Run("BytesNode.Decode", func(t *testing.T) {
		b, err := Bytes("cafe").Decode()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(b, []byte{0xca, 0xfe}) {
			t.Errorf("Expected cafe, got %x", b)
		}
		if _, err := Bytes("xyz").Decode(); err == nil {
			t.Error("Expected error for invalid hex")
		}
	})
}

func TestMarshalNode(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"int", Int(1), `{"int":"1"}`},
		{"string", String("a"), `{"string":"a"}`},
		{"empty string", String(""), `{"string":""}`},
		{"bytes", Bytes("00ff"), `{"bytes":"00ff"}`},
		{"prim", Prim("Unit"), `{"prim":"Unit"}`},
		{"prim with args", Prim("Pair", Int(1), String("a")), `{"prim":"Pair","args":[{"int":"1"},{"string":"a"}]}`},
		{"annots", PrimNode{Prim: "nat", Annots: []string{"%n"}}, `{"prim":"nat","annots":["%n"]}`},
		{"sequence", Seq(Int(1), Seq()), `[{"int":"1"},[]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalNode(tt.node)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}

			back, err := UnmarshalNode(got)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.node, back); diff != "" {
				t.Errorf("Unmarshal mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnmarshalNodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"unknown shape", `{"foo":1}`},
		{"bad int", `{"int":"1.5"}`},
		{"bad element", `[{"int":"x"}]`},
		{"bad arg", `{"prim":"Pair","args":[{}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnmarshalNode([]byte(tt.data)); err == nil {
				t.Errorf("Expected error for %s", tt.data)
			}
		})
	}
}
