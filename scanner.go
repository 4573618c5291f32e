package tzcall

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Section headers printed by the node client in operation receipts.
const (
	hdrUpdatedStorage     = "Updated storage:"
	hdrUpdatedBigMaps     = "Updated big_maps:"
	hdrStorageSize        = "Storage size:"
	hdrPaidStorageDiff    = "Paid storage size diff:"
	hdrConsumedGas        = "Consumed gas:"
	hdrBalanceUpdates     = "Balance updates:"
	hdrInternalOperations = "Internal operations:"
	hdrInternalTx         = "Internal Transaction:"
	hdrInternalEvent      = "Internal Event:"
	hdrFrom               = "From:"
	hdrTo                 = "To:"
	hdrAmount             = "Amount:"
	hdrEntrypoint         = "Entrypoint:"
	hdrParameter          = "Parameter:"
	hdrType               = "Type:"
	hdrTag                = "Tag:"
	hdrPayload            = "Payload:"
	failwithMarker        = "script reached FAILWITH instruction"
	fatalErrorMarker      = "Fatal error:"
	eventAppliedMarker    = "This event was successfully applied"
)

// section describes a multi-line block: the text after header runs until
// the earliest terminator found in the remaining text. Terminators are
// listed in priority order, which only matters for ties.
type section struct {
	header      string
	terminators []string
}

// sections maps a block header to its description. New client output
// variants are accommodated by extending this table.
var sections = map[string]section{
	hdrUpdatedStorage: {
		header:      hdrUpdatedStorage,
		terminators: []string{hdrStorageSize, hdrUpdatedBigMaps, hdrPaidStorageDiff, hdrConsumedGas},
	},
	hdrParameter: {
		header:      hdrParameter,
		terminators: []string{"This transaction", "This operation", hdrUpdatedStorage, hdrConsumedGas},
	},
	hdrType: {
		header:      hdrType,
		terminators: []string{hdrTag},
	},
	hdrPayload: {
		header:      hdrPayload,
		terminators: []string{eventAppliedMarker},
	},
	failwithMarker: {
		header:      failwithMarker,
		terminators: []string{fatalErrorMarker},
	},
}

// stopHeaders end an open-ended line scan such as balance updates.
var stopHeaders = []string{
	hdrInternalOperations, hdrInternalTx, hdrInternalEvent, "Internal Origination:",
	"Internal Delegation:", hdrUpdatedStorage, hdrUpdatedBigMaps, hdrStorageSize,
	hdrPaidStorageDiff, hdrConsumedGas, "Transaction:", "Origination:",
	"Manager signed operations:", "This transaction", "This operation",
	"Originated contracts:", "New contract",
}

// block returns the trimmed text of the named section, if present.
func block(text, header string) (string, bool) {
	sec, ok := sections[header]
	if !ok {
		return "", false
	}
	start := strings.Index(text, sec.header)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(sec.header):]
	end := -1
	for _, term := range sec.terminators {
		if i := strings.Index(rest, term); i >= 0 && (end < 0 || i < end) {
			end = i
		}
	}
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// lineField returns the rest of the first line following prefix.
func lineField(text, prefix string) (string, bool) {
	i := strings.Index(text, prefix)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(prefix):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", false
	}
	return rest, true
}

// firstToken returns the first whitespace separated token of the field.
func firstToken(text, prefix string) (string, bool) {
	v, ok := lineField(text, prefix)
	if !ok {
		return "", false
	}
	return strings.Fields(v)[0], true
}

// byteCount parses "N bytes" fields.
func byteCount(text, prefix string) *int64 {
	v, ok := lineField(text, prefix)
	if !ok {
		return nil
	}
	fields := strings.Fields(v)
	if len(fields) < 2 || fields[1] != "bytes" {
		return nil
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// gasAmount parses "Consumed gas: N" where N may carry a fractional part.
func gasAmount(text string) *json.Number {
	v, ok := firstToken(text, hdrConsumedGas)
	if !ok || !isDecimal(v) || v[0] == '.' || v[len(v)-1] == '.' {
		return nil
	}
	n := json.Number(v)
	return &n
}

func isStopLine(line string) bool {
	for _, h := range stopHeaders {
		if strings.HasPrefix(line, h) {
			return true
		}
	}
	return false
}

func ptr[T any](v T) *T {
	return &v
}
