package tzcall

import (
	"encoding/json"
	"fmt"
)

// Batch collects calls to be injected as a single operation group.
type Batch struct {
	calls []*Call
	cfg   *batchConfig
}

// NewBatch creates a new Batch with the given options.
func NewBatch(opts ...BatchOption) *Batch {
	cfg := defaultBatchConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Batch{
		calls: make([]*Call, 0, 16),
		cfg:   cfg,
	}
}

// Add appends a call to the batch.
func (b *Batch) Add(call *Call) error {
	if len(b.calls) >= b.cfg.maxOperations {
		return fmt.Errorf("%w: %d operations", ErrBatchTooLarge, b.cfg.maxOperations)
	}
	b.calls = append(b.calls, call)
	return nil
}

// Len returns the number of calls in the batch.
func (b *Batch) Len() int {
	return len(b.calls)
}

// CallAt returns the call at the given index.
func (b *Batch) CallAt(i int) *Call {
	if i < 0 || i >= len(b.calls) {
		return nil
	}
	return b.calls[i]
}

// ForEachCall iterates over all calls in the batch.
// The callback receives the index and call. Return false to stop iteration.
func (b *Batch) ForEachCall(fn func(int, *Call) bool) {
	for i, c := range b.calls {
		if !fn(i, c) {
			return
		}
	}
}

// Transfer is one element of the node client's "multiple transfers" input.
type Transfer struct {
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	Entrypoint  string `json:"entrypoint,omitempty"`
	Arg         string `json:"arg,omitempty"`
}

// Transfers returns the batch as transfer descriptions.
func (b *Batch) Transfers() ([]Transfer, error) {
	if len(b.calls) == 0 {
		return nil, ErrEmptyBatch
	}
	out := make([]Transfer, 0, len(b.calls))
	for _, c := range b.calls {
		out = append(out, Transfer{
			Destination: c.Destination(),
			Amount:      c.AmountTez(),
			Entrypoint:  c.Entrypoint(),
			Arg:         c.ArgText(),
		})
	}
	return out, nil
}

// JSON renders the batch in the form accepted by
// "octez-client multiple transfers from <src> using <json>".
func (b *Batch) JSON() ([]byte, error) {
	transfers, err := b.Transfers()
	if err != nil {
		return nil, err
	}
	return json.Marshal(transfers)
}
