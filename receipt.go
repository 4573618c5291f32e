package tzcall

import (
	"encoding/json"
	"strings"
)

const tezSymbol = "ꜩ"

// Output is the captured result of one node client invocation.
type Output struct {
	Stdout string
	Stderr string
	Failed bool
}

// Combined returns stdout followed by stderr.
func (o Output) Combined() string {
	if o.Stderr == "" {
		return o.Stdout
	}
	if o.Stdout == "" {
		return o.Stderr
	}
	return o.Stdout + "\n" + o.Stderr
}

// BalanceUpdate is one line of a "Balance updates:" block.
type BalanceUpdate struct {
	Dest  string `json:"dest"`
	Value string `json:"value"`
}

// Failure kinds.
const (
	FailureFailwith = "failwith"
	FailureError    = "error"
)

// Failure describes why an operation was rejected. Kind is FailureFailwith
// when the script reached FAILWITH, in which case Value is the rendered
// payload; otherwise Value is the raw client output.
type Failure struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// InternalOperation is a transaction emitted by a contract during a call.
type InternalOperation struct {
	Source              string          `json:"source"`
	Destination         string          `json:"destination"`
	Amount              *string         `json:"amount"`
	Entrypoint          *string         `json:"entrypoint"`
	Arg                 *string         `json:"arg"`
	ConsumedGas         *json.Number    `json:"consumed_gas"`
	UpdatedStorage      *string         `json:"updated_storage"`
	StorageSize         *int64          `json:"storage_size"`
	BalanceUpdates      []BalanceUpdate `json:"balance_updates"`
	PaidStorageSizeDiff *int64          `json:"paid_storage_size_diff"`
}

// TransactionReceipt is the structured result of a contract call.
type TransactionReceipt struct {
	Entrypoint          string              `json:"entrypoint"`
	Amount              string              `json:"amount"`
	Source              string              `json:"source"`
	Destination         string              `json:"destination"`
	OperationHash       *string             `json:"operation_hash"`
	UpdatedStorage      *string             `json:"updated_storage"`
	StorageSize         *int64              `json:"storage_size"`
	ConsumedGas         *json.Number        `json:"consumed_gas"`
	BalanceUpdates      []BalanceUpdate     `json:"balance_updates"`
	PaidStorageSizeDiff *int64              `json:"paid_storage_size_diff"`
	InternalOperations  []InternalOperation `json:"internal_operations"`
	Failure             *Failure            `json:"failure"`
}

// OriginationReceipt is the structured result of a contract deployment.
type OriginationReceipt struct {
	Source              string       `json:"source"`
	Storage             string       `json:"storage"`
	Amount              string       `json:"amount"`
	OperationHash       *string      `json:"operation_hash"`
	StorageSize         *int64       `json:"storage_size"`
	ConsumedGas         *json.Number `json:"consumed_gas"`
	PaidStorageSizeDiff *int64       `json:"paid_storage_size_diff"`
	Address             *string      `json:"address"`
}

// TransferRequest describes the call that produced a transaction receipt.
type TransferRequest struct {
	Source      string
	Destination string
	Entrypoint  string
	Amount      string
	Arg         string
}

// OriginationRequest describes the deployment that produced a receipt.
type OriginationRequest struct {
	Source  string
	Storage string
	Amount  string
}

// ExtractUpdatedStorage returns the new storage expression of a call.
func ExtractUpdatedStorage(text string) *string {
	s, ok := block(text, hdrUpdatedStorage)
	if !ok {
		return nil
	}
	return &s
}

// ExtractStorageSize returns N from "Storage size: N bytes".
func ExtractStorageSize(text string) *int64 {
	return byteCount(text, hdrStorageSize)
}

// ExtractPaidStorageSizeDiff returns N from "Paid storage size diff: N bytes".
func ExtractPaidStorageSizeDiff(text string) *int64 {
	return byteCount(text, hdrPaidStorageDiff)
}

// ExtractConsumedGas returns N from "Consumed gas: N".
func ExtractConsumedGas(text string) *json.Number {
	return gasAmount(text)
}

// ExtractDestination returns the address following "To:".
func ExtractDestination(text string) *string {
	if s, ok := firstToken(text, hdrTo); ok {
		return &s
	}
	return nil
}

// ExtractOriginatedAddress returns ADDR from "New contract ADDR originated".
func ExtractOriginatedAddress(text string) *string {
	const prefix, suffix = "New contract ", " originated"
	i := strings.Index(text, prefix)
	if i < 0 {
		return nil
	}
	rest := text[i+len(prefix):]
	j := strings.Index(rest, suffix)
	if j < 0 {
		return nil
	}
	addr := strings.TrimSpace(rest[:j])
	if addr == "" || strings.ContainsAny(addr, " \n") {
		return nil
	}
	return &addr
}

// ExtractOperationHash returns HASH from "Operation hash is 'HASH'".
func ExtractOperationHash(text string) *string {
	v, ok := firstToken(text, "Operation hash is")
	if !ok {
		return nil
	}
	v = strings.Trim(v, "'`\".")
	if v == "" {
		return nil
	}
	return &v
}

// ExtractBalanceUpdates scans the lines after "Balance updates:". Each
// non-empty line becomes an entry whose value is the last token and whose
// destination is the remaining tokens joined by a single space. The scan
// ends at the end of text, at the next recognised section header or at
// the first blank line following an entry.
func ExtractBalanceUpdates(text string) []BalanceUpdate {
	i := strings.Index(text, hdrBalanceUpdates)
	if i < 0 {
		return nil
	}
	updates := []BalanceUpdate{}
	for _, line := range strings.Split(text[i+len(hdrBalanceUpdates):], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(updates) > 0 {
				break
			}
			continue
		}
		if isStopLine(line) {
			break
		}
		fields := strings.Fields(line)
		updates = append(updates, BalanceUpdate{
			Dest:  strings.Join(fields[:len(fields)-1], " "),
			Value: fields[len(fields)-1],
		})
	}
	return updates
}

// ExtractFailwith returns the FAILWITH payload rendered as Michelson. When
// the payload does not parse, the unescaped text is returned as is.
func ExtractFailwith(text string) *string {
	raw, ok := block(text, failwithMarker)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "with"))
	raw = unescape(raw)
	if node, err := ParseNode(raw); err == nil {
		raw = FormatNode(node)
	}
	return &raw
}

// unescape expands the \n and \t sequences the client leaves in payloads.
func unescape(s string) string {
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t").Replace(s)
}

// ClassifyFailure reports why an invocation failed.
func ClassifyFailure(output string) *Failure {
	if strings.Contains(output, failwithMarker) {
		if v := ExtractFailwith(output); v != nil {
			return &Failure{Kind: FailureFailwith, Value: *v}
		}
	}
	return &Failure{Kind: FailureError, Value: output}
}

// internalTerminators end an internal transaction chunk early so that
// neighbouring operations of other kinds do not leak into it.
var internalTerminators = []string{hdrInternalEvent, "Internal Origination:", "Internal Delegation:"}

// ExtractInternalOperations parses the "Internal operations:" section.
// Chunks lacking a source, destination or consumed gas are dropped.
func ExtractInternalOperations(text string) []InternalOperation {
	i := strings.Index(text, hdrInternalOperations)
	if i < 0 {
		return nil
	}
	ops := []InternalOperation{}
	for _, chunk := range strings.Split(text[i+len(hdrInternalOperations):], hdrInternalTx) {
		for _, term := range internalTerminators {
			if j := strings.Index(chunk, term); j >= 0 {
				chunk = chunk[:j]
			}
		}
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		if op, ok := parseInternalOperation(chunk); ok {
			ops = append(ops, op)
		}
	}
	return ops
}

func parseInternalOperation(chunk string) (InternalOperation, bool) {
	from, okFrom := firstToken(chunk, hdrFrom)
	to, okTo := firstToken(chunk, hdrTo)
	gas := ExtractConsumedGas(chunk)
	if !okFrom || !okTo || gas == nil {
		return InternalOperation{}, false
	}
	op := InternalOperation{
		Source:         from,
		Destination:    to,
		ConsumedGas:    gas,
		BalanceUpdates: ExtractBalanceUpdates(chunk),
	}
	if amount, ok := lineField(chunk, hdrAmount); ok {
		op.Amount = ptr(stripTez(amount))
	}
	if ep, ok := firstToken(chunk, hdrEntrypoint); ok {
		op.Entrypoint = &ep
		op.UpdatedStorage = ExtractUpdatedStorage(chunk)
		op.StorageSize = ExtractStorageSize(chunk)
	}
	if arg, ok := parameter(chunk); ok {
		op.Arg = &arg
	}
	op.PaidStorageSizeDiff = ExtractPaidStorageSizeDiff(chunk)
	return op, true
}

// parameter returns the call argument, which may span several lines.
func parameter(text string) (string, bool) {
	if s, ok := block(text, hdrParameter); ok {
		return s, true
	}
	return lineField(text, hdrParameter)
}

func stripTez(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, tezSymbol, ""))
}

// segment returns the text from header up to the first of the stops.
// When header is absent the whole text is returned.
func segment(text, header string, stops ...string) string {
	if i := strings.Index(text, header); i >= 0 {
		text = text[i+len(header):]
	}
	for _, stop := range stops {
		if j := strings.Index(text, stop); j >= 0 {
			text = text[:j]
		}
	}
	return text
}

// ParseTransaction builds the receipt of a contract call from the client
// output. Fields whose markers are absent are left nil.
func ParseTransaction(req TransferRequest, out Output) *TransactionReceipt {
	text := out.Combined()
	tx := segment(text, "Transaction:", hdrInternalOperations)

	r := &TransactionReceipt{
		Entrypoint:          req.Entrypoint,
		Amount:              req.Amount,
		Source:              req.Source,
		Destination:         req.Destination,
		OperationHash:       ExtractOperationHash(text),
		UpdatedStorage:      ExtractUpdatedStorage(tx),
		StorageSize:         ExtractStorageSize(tx),
		ConsumedGas:         ExtractConsumedGas(tx),
		BalanceUpdates:      ExtractBalanceUpdates(tx),
		PaidStorageSizeDiff: ExtractPaidStorageSizeDiff(tx),
		InternalOperations:  ExtractInternalOperations(text),
	}
	if dest := ExtractDestination(tx); dest != nil {
		r.Destination = *dest
	}
	if out.Failed {
		r.Failure = ClassifyFailure(text)
	}
	return r
}

// ParseOrigination builds the receipt of a contract deployment.
func ParseOrigination(req OriginationRequest, out Output) *OriginationReceipt {
	text := out.Combined()
	orig := segment(text, "Origination:")
	return &OriginationReceipt{
		Source:              req.Source,
		Storage:             req.Storage,
		Amount:              req.Amount,
		OperationHash:       ExtractOperationHash(text),
		StorageSize:         ExtractStorageSize(orig),
		ConsumedGas:         ExtractConsumedGas(orig),
		PaidStorageSizeDiff: ExtractPaidStorageSizeDiff(orig),
		Address:             ExtractOriginatedAddress(text),
	}
}
