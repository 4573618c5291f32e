package tzcall

import (
	"encoding/json"
	"strings"
)

// EventRecord is a contract event emitted during a call.
type EventRecord struct {
	From        string      `json:"from"`
	Type        string      `json:"type"`
	Tag         string      `json:"tag"`
	Payload     string      `json:"payload"`
	ConsumedGas json.Number `json:"consumed_gas"`
}

// ExtractEvents returns every complete event found in the client output.
// A block missing any of its five fields is dropped without error.
func ExtractEvents(text string) []EventRecord {
	events := []EventRecord{}
	for _, region := range eventRegions(text) {
		for _, sub := range strings.Split(region, hdrInternalEvent) {
			if strings.TrimSpace(sub) == "" {
				continue
			}
			if ev, ok := parseEvent(sub); ok {
				events = append(events, ev)
			}
		}
	}
	return events
}

// eventRegions returns each span starting at "Internal Event:" and ending
// after the next "Consumed gas: <digits>" line.
func eventRegions(text string) []string {
	var regions []string
	for {
		start := strings.Index(text, hdrInternalEvent)
		if start < 0 {
			return regions
		}
		text = text[start:]
		end := gasLineEnd(text)
		if end < 0 {
			return regions
		}
		regions = append(regions, text[:end])
		text = text[end:]
	}
}

// gasLineEnd returns the offset just past the first numeric consumed gas
// value in text, or -1.
func gasLineEnd(text string) int {
	offset := 0
	for {
		i := strings.Index(text[offset:], hdrConsumedGas)
		if i < 0 {
			return -1
		}
		pos := offset + i + len(hdrConsumedGas)
		for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t') {
			pos++
		}
		digits := pos
		for pos < len(text) && (text[pos] >= '0' && text[pos] <= '9' || text[pos] == '.') {
			pos++
		}
		if pos > digits && text[digits] != '.' {
			return pos
		}
		offset = pos
	}
}

func parseEvent(sub string) (EventRecord, bool) {
	from, ok := firstToken(sub, hdrFrom)
	if !ok {
		return EventRecord{}, false
	}
	typ, ok := block(sub, hdrType)
	if !ok || typ == "" {
		return EventRecord{}, false
	}
	tag, ok := lineField(sub, hdrTag)
	if !ok {
		return EventRecord{}, false
	}
	payload, ok := block(sub, hdrPayload)
	if !ok || payload == "" {
		return EventRecord{}, false
	}
	gas := gasAmount(sub)
	if gas == nil {
		return EventRecord{}, false
	}
	return EventRecord{
		From:        from,
		Type:        typ,
		Tag:         tag,
		Payload:     payload,
		ConsumedGas: *gas,
	}, true
}
