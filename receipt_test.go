package tzcall

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const transferReceipt = `Node is bootstrapped.
Estimated gas: 3581.942 units (will add 100 for safety)
Estimated storage: no bytes added
Operation successfully injected in the node.
Operation hash is 'opNcBAZxfnXv3Y3kxYdaZZ7ThgTLnBNuMVmn1s5Qd8M6Q4qHLo1'
Waiting for the operation to be included...
Operation found in block: BLtiRSyh3RwGd6U9KCzEZVnMtS6C3FcDZyxHaT2X4uAjRu5Ke1W (pass: 3, offset: 0)
This sequence of operations was run:
  Manager signed operations:
    From: tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb
    Fee to the baker: ꜩ0.000644
    Expected counter: 12
    Gas limit: 3682
    Storage limit: 0 bytes
    Balance updates:
      tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb ... -ꜩ0.000644
      payload fees(the block proposer) ....... +ꜩ0.000644
    Transaction:
      Amount: ꜩ1
      From: tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb
      To: KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi
      Entrypoint: deposit
      Parameter: (Pair "alice"
                       12)
      This transaction was successfully applied
      Updated storage:
        { Elt "alice" 12 ;
          Elt "bob" 3 }
      Updated big_maps:
        Set map(4)["alice"] to 12
      Storage size: 512 bytes
      Paid storage size diff: 67 bytes
      Consumed gas: 3481.942
      Balance updates:
        tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb ... -ꜩ1
        KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi ... +ꜩ1
      Internal operations:
        Internal Transaction:
          Amount: ꜩ0.5
          From: KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi
          To: KT1TxqZ8QtKvLu3V3JH7Gx58n7Co8pgtpQU5
          Entrypoint: notify
          Parameter: "alice"
          This transaction was successfully applied
          Updated storage: 1
          Storage size: 60 bytes
          Consumed gas: 1200.5
          Balance updates:
            KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi ... -ꜩ0.5
            KT1TxqZ8QtKvLu3V3JH7Gx58n7Co8pgtpQU5 ... +ꜩ0.5
        Internal Event:
          From: KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi
          Type: (pair string nat)
          Tag: deposited
          Payload: (Pair "alice" 12)
          This event was successfully applied
          Consumed gas: 100.000
        Internal Transaction:
          Amount: ꜩ2
          From: KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi
          To: tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb
          This transaction was successfully applied
          Consumed gas: 2100
          Balance updates:
            KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi ... -ꜩ2
            tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb ... +ꜩ2

The operation has only been included 0 blocks ago.
`

const failwithOutput = `Node is bootstrapped.
This simulation failed:
  Manager signed operations:
    From: tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb
    Transaction:
      Amount: ꜩ0
      From: tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb
      To: KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi
      Entrypoint: withdraw
      Parameter: 100
      This operation FAILED.

Runtime error in contract KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi:
  01: { parameter nat ; storage nat ; code { FAILWITH } }
At line 1 characters 44 to 52,
script reached FAILWITH instruction
with (Pair "NotEnoughBalance"   100)
Fatal error:
  transfer simulation failed
`

const originationReceipt = `Node is bootstrapped.
Operation successfully injected in the node.
Operation hash is 'ooQ3p6G4DpMi6YGeaN5TwxzFkwu4mHxECrZgNfbWTGNJJ1n1uNk'
This sequence of operations was run:
  Manager signed operations:
    From: tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb
    Fee to the baker: ꜩ0.000491
    Storage limit: 315 bytes
    Balance updates:
      tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb ... -ꜩ0.000491
    Origination:
      From: tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb
      Credit: ꜩ0
      Script:
        { parameter (or (int %decrement) (int %increment)) ; storage int ; code { } }
        Initial storage: 0
        No delegate for this contract
        This origination was successfully applied
        Originated contracts:
          KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi
        Storage size: 38 bytes
        Paid storage size diff: 38 bytes
        Consumed gas: 1413.017
        Balance updates:
          tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb ... -ꜩ0.0095

New contract KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi originated.
Contract memorized as counter.
`

func TestExtractUpdatedStorage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *string
	}{
		{"storage size terminator", "Updated storage: (Pair 1 2)\nStorage size: 10 bytes", ptr("(Pair 1 2)")},
		{"big_maps terminator", "Updated storage: (Pair 1 2)\nUpdated big_maps: 10 bytes", ptr("(Pair 1 2)")},
		{"paid diff terminator", "Updated storage: 5\nPaid storage size diff: 1 bytes", ptr("5")},
		{"consumed gas terminator", "Updated storage: Unit\nConsumed gas: 10", ptr("Unit")},
		{"earliest terminator wins", "Updated storage: 1\nConsumed gas: 10\nStorage size: 3 bytes", ptr("1")},
		{"multi-line", transferReceipt, ptr("{ Elt \"alice\" 12 ;\n          Elt \"bob\" 3 }")},
		{"absent", "Consumed gas: 10", nil},
		{"no terminator", "Updated storage: 1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ExtractUpdatedStorage(tt.text)); diff != "" {
				t.Errorf("ExtractUpdatedStorage mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractNumericFields(t *testing.T) {
	t.Run("storage size", func(t *testing.T) {
		if diff := cmp.Diff(ptr(int64(512)), ExtractStorageSize(transferReceipt)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		if ExtractStorageSize("Storage size: many bytes") != nil {
			t.Error("Expected nil for non-numeric size")
		}
		if ExtractStorageSize("nothing") != nil {
			t.Error("Expected nil when absent")
		}
	})

	t.Run("paid storage size diff", func(t *testing.T) {
		if diff := cmp.Diff(ptr(int64(67)), ExtractPaidStorageSizeDiff(transferReceipt)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("consumed gas", func(t *testing.T) {
		if diff := cmp.Diff(ptr(json.Number("3481.942")), ExtractConsumedGas(transferReceipt)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(ptr(json.Number("10")), ExtractConsumedGas("Consumed gas: 10")); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		if ExtractConsumedGas("Consumed gas: lots") != nil {
			t.Error("Expected nil for non-numeric gas")
		}
	})
}

func TestExtractIdentifiers(t *testing.T) {
	if diff := cmp.Diff(ptr("KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi"), ExtractDestination(transferReceipt)); diff != "" {
		t.Errorf("ExtractDestination mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ptr("opNcBAZxfnXv3Y3kxYdaZZ7ThgTLnBNuMVmn1s5Qd8M6Q4qHLo1"), ExtractOperationHash(transferReceipt)); diff != "" {
		t.Errorf("ExtractOperationHash mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ptr("KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi"), ExtractOriginatedAddress(originationReceipt)); diff != "" {
		t.Errorf("ExtractOriginatedAddress mismatch (-want +got):\n%s", diff)
	}

	for _, f := range []func(string) *string{ExtractDestination, ExtractOperationHash, ExtractOriginatedAddress} {
		if got := f("Node is bootstrapped."); got != nil {
			t.Errorf("Expected nil, got %q", *got)
		}
	}
}

func TestExtractBalanceUpdates(t *testing.T) {
	t.Run("two lines", func(t *testing.T) {
		text := "Balance updates:\n  tz1abc ... -100\n  tz1def ... +100\n"
		want := []BalanceUpdate{
			{Dest: "tz1abc ...", Value: "-100"},
			{Dest: "tz1def ...", Value: "+100"},
		}
		if diff := cmp.Diff(want, ExtractBalanceUpdates(text)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("labels with spaces", func(t *testing.T) {
		text := "Balance updates:\n  payload fees(the block proposer) ....... +ꜩ0.000644\n"
		want := []BalanceUpdate{{Dest: "payload fees(the block proposer) .......", Value: "+ꜩ0.000644"}}
		if diff := cmp.Diff(want, ExtractBalanceUpdates(text)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("stops at next section header", func(t *testing.T) {
		text := "Balance updates:\n  tz1abc ... -1\nInternal operations:\n  Internal Transaction:\n"
		if got := ExtractBalanceUpdates(text); len(got) != 1 {
			t.Errorf("Expected 1 update, got %d: %+v", len(got), got)
		}
	})

	t.Run("absent", func(t *testing.T) {
		if got := ExtractBalanceUpdates("Consumed gas: 1"); got != nil {
			t.Errorf("Expected nil, got %+v", got)
		}
	})

	t.Run("marker without lines", func(t *testing.T) {
		got := ExtractBalanceUpdates("Balance updates:\n")
		if got == nil || len(got) != 0 {
			t.Errorf("Expected empty non-nil slice, got %#v", got)
		}
	})
}

func TestExtractFailwith(t *testing.T) {
	t.Run("payload is re-rendered", func(t *testing.T) {
		if diff := cmp.Diff(ptr(`Pair "NotEnoughBalance" 100`), ExtractFailwith(failwithOutput)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("escaped newlines are expanded", func(t *testing.T) {
		text := "script reached FAILWITH instruction\nwith (Pair\\n1\\t2)\nFatal error:\n"
		if diff := cmp.Diff(ptr("Pair 1 2"), ExtractFailwith(text)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unparseable payload is kept raw", func(t *testing.T) {
		text := "script reached FAILWITH instruction\nwith <opaque value>\nFatal error:\n"
		if diff := cmp.Diff(ptr("<opaque value>"), ExtractFailwith(text)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("absent", func(t *testing.T) {
		if ExtractFailwith("Fatal error:\n oops") != nil {
			t.Error("Expected nil without FAILWITH marker")
		}
	})
}

func TestClassifyFailure(t *testing.T) {
	t.Run("failwith", func(t *testing.T) {
		want := &Failure{Kind: FailureFailwith, Value: `Pair "NotEnoughBalance" 100`}
		if diff := cmp.Diff(want, ClassifyFailure(failwithOutput)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("generic error keeps whole text", func(t *testing.T) {
		const out = "Fatal error:\n  The operation will burn more than the limit"
		want := &Failure{Kind: FailureError, Value: out}
		if diff := cmp.Diff(want, ClassifyFailure(out)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestExtractInternalOperations(t *testing.T) {
	ops := ExtractInternalOperations(transferReceipt)

	want := []InternalOperation{
		{
			Source:         "KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi",
			Destination:    "KT1TxqZ8QtKvLu3V3JH7Gx58n7Co8pgtpQU5",
			Amount:         ptr("0.5"),
			Entrypoint:     ptr("notify"),
			Arg:            ptr(`"alice"`),
			ConsumedGas:    ptr(json.Number("1200.5")),
			UpdatedStorage: ptr("1"),
			StorageSize:    ptr(int64(60)),
			BalanceUpdates: []BalanceUpdate{
				{Dest: "KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi ...", Value: "-ꜩ0.5"},
				{Dest: "KT1TxqZ8QtKvLu3V3JH7Gx58n7Co8pgtpQU5 ...", Value: "+ꜩ0.5"},
			},
		},
		{
			Source:      "KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi",
			Destination: "tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb",
			Amount:      ptr("2"),
			ConsumedGas: ptr(json.Number("2100")),
			BalanceUpdates: []BalanceUpdate{
				{Dest: "KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi ...", Value: "-ꜩ2"},
				{Dest: "tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb ...", Value: "+ꜩ2"},
			},
		},
	}

	if diff := cmp.Diff(want, ops); diff != "" {
		t.Errorf("ExtractInternalOperations mismatch (-want +got):\n%s", diff)
	}

	t.Run("incomplete chunks are dropped", func(t *testing.T) {
		text := "Internal operations:\n Internal Transaction:\n  From: KT1a\n  To: KT1b\n Internal Transaction:\n  From: KT1a\n  To: KT1b\n  Consumed gas: 5\n"
		got := ExtractInternalOperations(text)
		if len(got) != 1 {
			t.Fatalf("Expected 1 operation, got %d", len(got))
		}
		if got[0].Entrypoint != nil || got[0].UpdatedStorage != nil {
			t.Error("Storage fields require an entrypoint")
		}
	})

	t.Run("absent", func(t *testing.T) {
		if ExtractInternalOperations("Consumed gas: 1") != nil {
			t.Error("Expected nil without internal operations")
		}
	})
}

func TestParseTransaction(t *testing.T) {
	req := TransferRequest{
		Source:      "tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb",
		Destination: "bank",
		Entrypoint:  "deposit",
		Amount:      "1",
		Arg:         `Pair "alice" 12`,
	}

	t.Run("successful call", func(t *testing.T) {
		r := ParseTransaction(req, Output{Stdout: transferReceipt})

		if r.Destination != "KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi" {
			t.Errorf("Expected destination resolved from receipt, got %s", r.Destination)
		}
		if r.Entrypoint != "deposit" || r.Amount != "1" || r.Source != req.Source {
			t.Errorf("Request fields not carried over: %+v", r)
		}
		if r.OperationHash == nil || *r.OperationHash != "opNcBAZxfnXv3Y3kxYdaZZ7ThgTLnBNuMVmn1s5Qd8M6Q4qHLo1" {
			t.Errorf("Unexpected operation hash %v", r.OperationHash)
		}
		if diff := cmp.Diff(ptr(json.Number("3481.942")), r.ConsumedGas); diff != "" {
			t.Errorf("ConsumedGas mismatch (-want +got):\n%s", diff)
		}
		wantUpdates := []BalanceUpdate{
			{Dest: "tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb ...", Value: "-ꜩ1"},
			{Dest: "KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi ...", Value: "+ꜩ1"},
		}
		if diff := cmp.Diff(wantUpdates, r.BalanceUpdates); diff != "" {
			t.Errorf("BalanceUpdates mismatch (-want +got):\n%s", diff)
		}
		if len(r.InternalOperations) != 2 {
			t.Errorf("Expected 2 internal operations, got %d", len(r.InternalOperations))
		}
		if r.Failure != nil {
			t.Errorf("Expected no failure, got %+v", r.Failure)
		}
	})

	t.Run("failed call", func(t *testing.T) {
		r := ParseTransaction(req, Output{Stderr: failwithOutput, Failed: true})
		if r.Failure == nil || r.Failure.Kind != FailureFailwith {
			t.Fatalf("Expected failwith failure, got %+v", r.Failure)
		}
		if r.UpdatedStorage != nil {
			t.Error("Failed call should not report updated storage")
		}
	})

	t.Run("json field names", func(t *testing.T) {
		b, err := json.Marshal(ParseTransaction(req, Output{Stdout: transferReceipt}))
		if err != nil {
			t.Fatal(err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(b, &fields); err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{
			"entrypoint", "amount", "source", "destination", "operation_hash",
			"updated_storage", "storage_size", "consumed_gas", "balance_updates",
			"paid_storage_size_diff", "internal_operations", "failure",
		} {
			if _, ok := fields[name]; !ok {
				t.Errorf("Missing field %s", name)
			}
		}
		if len(fields) != 12 {
			t.Errorf("Expected 12 fields, got %d", len(fields))
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		a := ParseTransaction(req, Output{Stdout: transferReceipt})
		b := ParseTransaction(req, Output{Stdout: transferReceipt})
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("Repeated parses differ:\n%s", diff)
		}
	})
}

func TestParseOrigination(t *testing.T) {
	req := OriginationRequest{Source: "tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb", Storage: "0", Amount: "0"}
	r := ParseOrigination(req, Output{Stdout: originationReceipt})

	want := &OriginationReceipt{
		Source:              req.Source,
		Storage:             "0",
		Amount:              "0",
		OperationHash:       ptr("ooQ3p6G4DpMi6YGeaN5TwxzFkwu4mHxECrZgNfbWTGNJJ1n1uNk"),
		StorageSize:         ptr(int64(38)),
		ConsumedGas:         ptr(json.Number("1413.017")),
		PaidStorageSizeDiff: ptr(int64(38)),
		Address:             ptr("KT1BEqzn5Wx8uJrZNvuS9DVHmLvG9td3fDLi"),
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("ParseOrigination mismatch (-want +got):\n%s", diff)
	}
}

func TestOutputCombined(t *testing.T) {
	tests := []struct {
		out  Output
		want string
	}{
		{Output{Stdout: "a"}, "a"},
		{Output{Stderr: "b"}, "b"},
		{Output{Stdout: "a", Stderr: "b"}, "a\nb"},
	}
	for _, tt := range tests {
		if got := tt.out.Combined(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}
