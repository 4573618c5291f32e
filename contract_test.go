package tzcall

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const bankScript = `
parameter (or (or (mutez %deposit) (pair %transfer (address %to) (nat %amount)))
              (or (unit %reset) (map %configure string nat)));
storage (big_map address nat);
code { CDR ; NIL operation ; PAIR }
`

func testParamType() *Type {
	return MustParseType(`or (or (mutez %deposit) (pair %transfer (address %to) (nat %amount)))
	                         (or (unit %reset) (map %configure string nat))`)
}

func TestParseEntrypoints(t *testing.T) {
	t.Run("annotated branches", func(t *testing.T) {
		eps := ParseEntrypoints(testParamType())

		want := map[string]string{
			"deposit":   "mutez %deposit",
			"transfer":  "pair %transfer (address %to) (nat %amount)",
			"reset":     "unit %reset",
			"configure": "map %configure string nat",
		}
		for name, typ := range want {
			got, ok := eps[name]
			if !ok {
				t.Errorf("Entrypoint %s not found", name)
				continue
			}
			if got.String() != typ {
				t.Errorf("Entrypoint %s: expected %s, got %s", name, typ, got.String())
			}
		}
		if eps[DefaultEntrypoint] == nil || eps[DefaultEntrypoint].Prim != TOr {
			t.Error("default should map to the whole parameter type")
		}
		if len(eps) != 5 {
			t.Errorf("Expected 5 entrypoints, got %d", len(eps))
		}
	})

	t.Run("annotated inner or", func(t *testing.T) {
		eps := ParseEntrypoints(MustParseType("or (or %admin (unit %pause) (unit %unpause)) (nat %mint)"))
		for _, name := range []string{"admin", "pause", "unpause", "mint", "default"} {
			if _, ok := eps[name]; !ok {
				t.Errorf("Entrypoint %s not found", name)
			}
		}
	})

	t.Run("explicit default", func(t *testing.T) {
		eps := ParseEntrypoints(MustParseType("or (nat %default) (unit %reset)"))
		if eps[DefaultEntrypoint].Prim != TNat {
			t.Errorf("Expected explicit default nat, got %s", eps[DefaultEntrypoint])
		}
	})

	t.Run("plain parameter", func(t *testing.T) {
		eps := ParseEntrypoints(Scalar(TNat))
		if len(eps) != 1 || eps[DefaultEntrypoint] == nil {
			t.Errorf("Expected only default, got %v", eps)
		}
	})

	t.Run("nil parameter", func(t *testing.T) {
		if eps := ParseEntrypoints(nil); len(eps) != 0 {
			t.Errorf("Expected no entrypoints, got %v", eps)
		}
	})
}

func TestNewContract(t *testing.T) {
	c := NewContract(testContract, testParamType())

	if c.Address() != testContract {
		t.Errorf("Expected address %s, got %s", testContract, c.Address())
	}
	if c.ParameterType().Prim != TOr {
		t.Errorf("Expected or parameter, got %s", c.ParameterType())
	}
	if c.encoder != defaultEncoder {
		t.Error("Expected default encoder")
	}

	t.Run("WithEncoder", func(t *testing.T) {
		e := NewEncoder(WithoutAddressCheck())
		c := NewContract(testContract, testParamType(), WithEncoder(e))
		if c.encoder != e {
			t.Error("Expected custom encoder")
		}
		c = NewContract(testContract, testParamType(), WithEncoder(nil))
		if c.encoder != defaultEncoder {
			t.Error("nil encoder should be ignored")
		}
	})
}

func TestNewContractFromScript(t *testing.T) {
	t.Run("reads parameter section", func(t *testing.T) {
		c, err := NewContractFromScript(testContract, bankScript)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"configure", "default", "deposit", "reset", "transfer"}
		if diff := cmp.Diff(want, c.EntrypointNames()); diff != "" {
			t.Errorf("EntrypointNames mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing parameter", func(t *testing.T) {
		_, err := NewContractFromScript(testContract, "storage unit; code {}")
		if !errors.Is(err, ErrMissingSection) {
			t.Errorf("Expected ErrMissingSection, got %v", err)
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := NewContractFromScript(testContract, "parameter (unit")
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("Expected ErrSyntax, got %v", err)
		}
	})
}

func TestContractInvoke(t *testing.T) {
	c := NewContract(testContract, testParamType())

	tests := []struct {
		name       string
		entrypoint string
		arg        any
		want       string
	}{
		{"mutez shorthand", "deposit", "2tz", "2000000"},
		{"pair", "transfer", []any{testAddr, 5}, `Pair "` + testAddr + `" 5`},
		{"unit", "reset", nil, "Unit"},
		{"map", "configure", []any{map[string]any{"key": "fee", "value": 3}}, `{ Elt "fee" 3 }`},
		{"default takes the full parameter", "", map[string]any{"kind": "right", "value": map[string]any{"kind": "left", "value": nil}}, "Right (Left Unit)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := c.Invoke(tt.entrypoint, tt.arg)
			if err != nil {
				t.Fatalf("Invoke failed: %v", err)
			}
			if call.ArgText() != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, call.ArgText())
			}
		})
	}

	t.Run("unknown entrypoint", func(t *testing.T) {
		_, err := c.Invoke("mint", 1)
		var notFound *EntrypointNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("Expected *EntrypointNotFoundError, got %v", err)
		}
		if notFound.Entrypoint != "mint" || notFound.Contract != testContract {
			t.Errorf("Unexpected error fields %+v", notFound)
		}
	})

	t.Run("argument encoding error", func(t *testing.T) {
		_, err := c.Invoke("transfer", []any{testAddr})
		if !errors.Is(err, ErrPairLengthMismatch) {
			t.Fatalf("Expected ErrPairLengthMismatch, got %v", err)
		}
		var callErr *CallError
		if !errors.As(err, &callErr) || callErr.Entrypoint != "transfer" {
			t.Errorf("Expected *CallError for transfer, got %v", err)
		}
	})

	t.Run("unsupported Go value", func(t *testing.T) {
		_, err := c.Invoke("deposit", struct{}{})
		if !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("Expected ErrShapeMismatch, got %v", err)
		}
	})
}

func TestContractMustInvoke(t *testing.T) {
	c := NewContract(testContract, testParamType())

	t.Run("returns call", func(t *testing.T) {
		if call := c.MustInvoke("reset", nil); call == nil {
			t.Error("Expected call")
		}
	})

	t.Run("panics on error", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected MustInvoke to panic")
			}
		}()
		c.MustInvoke("nonexistent", nil)
	})
}

func TestContractHasEntrypoint(t *testing.T) {
	c := NewContract(testContract, testParamType())

	tests := []struct {
		name string
		want bool
	}{
		{"deposit", true},
		{"transfer", true},
		{"default", true},
		{"to", false},
		{"mint", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.HasEntrypoint(tt.name); got != tt.want {
				t.Errorf("HasEntrypoint(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	t.Run("EntrypointType", func(t *testing.T) {
		typ, ok := c.EntrypointType("deposit")
		if !ok || typ.Prim != TMutez {
			t.Errorf("Expected mutez, got %v", typ)
		}
		if _, ok := c.EntrypointType("mint"); ok {
			t.Error("Expected mint to be absent")
		}
	})
}
