package tzcall

import (
	"strings"
)

// Section headers of "run script" output.
const (
	traceStorage    = "storage"
	traceOperations = "emitted operations"
	traceBigMapDiff = "big_map diff"
	traceTrace      = "trace"
)

// Big map diff actions.
const (
	DiffNew   = "new"
	DiffSet   = "set"
	DiffUnset = "unset"
	DiffClear = "clear"
	DiffCopy  = "copy"
	DiffRaw   = "raw"
)

// BigMapDiff is one line of the big_map diff section. Lines that cannot be
// recognised are kept with Action DiffRaw.
type BigMapDiff struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
	Type   string `json:"type,omitempty"`
	Dest   string `json:"dest,omitempty"`
	Raw    string `json:"raw,omitempty"`
}

// Trace is the result of interpreting a script without injecting it.
type Trace struct {
	Storage    string       `json:"storage"`
	Operations []string     `json:"operations"`
	BigMapDiff []BigMapDiff `json:"big_map_diff"`
}

// ParseInterpretationTrace parses the output of "run script". Unlike the
// single-field extractors it requires structure: a missing operations or
// big_map diff section is a *ParseError.
func ParseInterpretationTrace(text string) (*Trace, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	storageAt := headerLine(lines, traceStorage, 0)
	opsAt := headerLine(lines, traceOperations, storageAt+1)
	if opsAt < 0 {
		return nil, &ParseError{Section: traceOperations}
	}
	diffAt := headerLine(lines, traceBigMapDiff, opsAt+1)
	if diffAt < 0 {
		return nil, &ParseError{Section: traceBigMapDiff}
	}
	end := headerLine(lines, traceTrace, diffAt+1)
	if end < 0 {
		end = len(lines)
	}

	return &Trace{
		Storage:    strings.TrimSpace(strings.Join(lines[storageAt+1:opsAt], "\n")),
		Operations: groupByIndent(lines[opsAt+1 : diffAt]),
		BigMapDiff: parseBigMapDiff(lines[diffAt+1 : end]),
	}, nil
}

// headerLine returns the index of the first line at or after from whose
// trimmed text equals name, or -1.
func headerLine(lines []string, name string, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == name {
			return i
		}
	}
	return -1
}

// groupByIndent joins continuation lines onto the item they belong to. An
// item starts at every line with the minimal indentation of the block.
func groupByIndent(lines []string) []string {
	minIndent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if n := indent(l); minIndent < 0 || n < minIndent {
			minIndent = n
		}
	}
	items := []string{}
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if indent(l) == minIndent || len(items) == 0 {
			items = append(items, strings.TrimSpace(l))
			continue
		}
		items[len(items)-1] += "\n" + strings.TrimSpace(l)
	}
	return items
}

func indent(l string) int {
	return len(l) - len(strings.TrimLeft(l, " \t"))
}

func parseBigMapDiff(lines []string) []BigMapDiff {
	diffs := []BigMapDiff{}
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		diffs = append(diffs, parseDiffLine(l))
	}
	return diffs
}

// parseDiffLine recognises the forms
//
//	New map(4) of type (big_map string nat)
//	Set map(4)["a"] to 1
//	Unset map(4)["a"]
//	Clear map(4)
//	Copy map(4) to map(5)
func parseDiffLine(l string) BigMapDiff {
	raw := BigMapDiff{Action: DiffRaw, Raw: l}
	verb, rest, ok := strings.Cut(l, " ")
	if !ok {
		return raw
	}
	id, rest, ok := mapID(rest)
	if !ok {
		return raw
	}

	switch verb {
	case "New":
		typ, ok := strings.CutPrefix(rest, " of type ")
		if !ok {
			return raw
		}
		return BigMapDiff{Action: DiffNew, ID: id, Type: strings.TrimSpace(typ)}

	case "Set":
		key, value, ok := strings.Cut(rest, "] to ")
		if !ok || !strings.HasPrefix(key, "[") {
			return raw
		}
		return BigMapDiff{Action: DiffSet, ID: id, Key: key[1:], Value: strings.TrimSpace(value)}

	case "Unset":
		if !strings.HasPrefix(rest, "[") || !strings.HasSuffix(rest, "]") {
			return raw
		}
		return BigMapDiff{Action: DiffUnset, ID: id, Key: rest[1 : len(rest)-1]}

	case "Clear":
		if strings.TrimSpace(rest) != "" {
			return raw
		}
		return BigMapDiff{Action: DiffClear, ID: id}

	case "Copy":
		target, ok := strings.CutPrefix(rest, " to ")
		if !ok {
			return raw
		}
		dest, tail, ok := mapID(strings.TrimSpace(target))
		if !ok || tail != "" {
			return raw
		}
		return BigMapDiff{Action: DiffCopy, ID: id, Dest: dest}
	}
	return raw
}

// mapID parses a leading "map(N)" and returns N and the remaining text.
func mapID(s string) (string, string, bool) {
	s, ok := strings.CutPrefix(s, "map(")
	if !ok {
		return "", "", false
	}
	id, rest, ok := strings.Cut(s, ")")
	if !ok || !isInteger(id) {
		return "", "", false
	}
	return id, rest, true
}
