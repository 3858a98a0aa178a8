package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/F-OS/OpenDream/bytecode"
	"github.com/F-OS/OpenDream/opcodes"
)

// parseListing reads the small textual annotated-item format this
// command accepts:
//
//	Label <name>
//	Local <name>:<type>@<slot>
//	<Opcode> <arg>, <arg>, ...
//
// Arguments are typed by position against the opcode's ArgSchema, the
// same schema-driven decoding opcodes.Metadata exposes to every other
// consumer in this module.
func parseListing(r io.Reader) ([]bytecode.Item, error) {
	var out []bytecode.Item
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.SplitN(line, " ", 2)
		head := fields[0]
		rest := ""
		if len(fields) > 1 {
			rest = strings.TrimSpace(fields[1])
		}

		switch head {
		case "Label":
			out = append(out, bytecode.LabelItem(rest))
		case "Local":
			name, typ, slot, err := parseLocal(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			out = append(out, bytecode.LocalVariableItem(name, typ, slot))
		default:
			op, ok := opcodes.Lookup(head)
			if !ok {
				return nil, fmt.Errorf("line %d: unknown opcode %q", lineNo, head)
			}
			args, err := parseArgs(opcodes.Metadata(op).ArgSchema, rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			out = append(out, bytecode.Instruction(op, args...))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseLocal(rest string) (name, typ string, slot int, err error) {
	nameType, slotStr, ok := strings.Cut(rest, "@")
	if !ok {
		return "", "", 0, fmt.Errorf("malformed Local declaration %q", rest)
	}
	name, typ, ok = strings.Cut(nameType, ":")
	if !ok {
		return "", "", 0, fmt.Errorf("malformed Local declaration %q", rest)
	}
	slot, err = strconv.Atoi(slotStr)
	if err != nil {
		return "", "", 0, fmt.Errorf("malformed Local slot %q: %w", slotStr, err)
	}
	return name, typ, slot, nil
}

func parseArgs(schema []opcodes.ArgKind, rest string) ([]bytecode.ArgValue, error) {
	var raw []string
	if rest != "" {
		for _, p := range strings.Split(rest, ",") {
			raw = append(raw, strings.TrimSpace(p))
		}
	}
	if len(raw) != len(schema) {
		return nil, fmt.Errorf("expected %d argument(s), got %d", len(schema), len(raw))
	}
	args := make([]bytecode.ArgValue, len(schema))
	for i, kind := range schema {
		v, err := parseArg(kind, raw[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func parseArg(kind opcodes.ArgKind, raw string) (bytecode.ArgValue, error) {
	switch kind {
	case opcodes.ArgInt, opcodes.ArgListSize:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return bytecode.ArgValue{}, err
		}
		if kind == opcodes.ArgListSize {
			return bytecode.ListSizeArg(n), nil
		}
		return bytecode.IntArg(n), nil
	case opcodes.ArgFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return bytecode.ArgValue{}, err
		}
		return bytecode.FloatArg(f), nil
	case opcodes.ArgString:
		return bytecode.StringArg(raw), nil
	case opcodes.ArgResource:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return bytecode.ArgValue{}, err
		}
		return bytecode.ResourceArg(n), nil
	case opcodes.ArgType:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return bytecode.ArgValue{}, err
		}
		return bytecode.TypeArg(n), nil
	case opcodes.ArgReference:
		return bytecode.ReferenceArg(raw), nil
	case opcodes.ArgLabel:
		return bytecode.LabelArg(raw), nil
	default:
		return bytecode.ArgValue{}, fmt.Errorf("unsupported argument kind %v", kind)
	}
}
