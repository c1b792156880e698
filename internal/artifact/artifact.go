// Package artifact serializes cipher positions. JSON output is a plain array of
// integers, byte for byte what Python's json.dump writes for the same list;
// msgpack output is the same array in binary form.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

type Format string

const (
	JSON    Format = "json"
	MsgPack Format = "msgpack"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", JSON:
		return JSON, nil
	case MsgPack, "mp":
		return MsgPack, nil
	default:
		return "", fmt.Errorf("artifact: unknown format %q", s)
	}
}

// Detect guesses the format of data. JSON arrays start with '[' after optional
// whitespace; anything else is taken as msgpack.
func Detect(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return JSON
	}
	return MsgPack
}

func Marshal(f Format, positions []int) ([]byte, error) {
	if positions == nil {
		positions = []int{}
	}

	switch f {
	case JSON:
		return marshalJSON(positions), nil
	case MsgPack:
		data, err := msgpack.Marshal(positions)
		if err != nil {
			return nil, fmt.Errorf("artifact: msgpack: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("artifact: unknown format %q", f)
	}
}

// marshalJSON writes the array with ", " separators, the way Python's json.dump does.
func marshalJSON(positions []int) []byte {
	data := make([]byte, 0, 2+len(positions)*8)
	data = append(data, '[')
	for i, p := range positions {
		if i > 0 {
			data = append(data, ", "...)
		}
		data = strconv.AppendInt(data, int64(p), 10)
	}
	return append(data, ']')
}

// Unmarshal decodes positions. An empty format means Detect.
func Unmarshal(f Format, data []byte) ([]int, error) {
	if f == "" {
		f = Detect(data)
	}

	var positions []int
	switch f {
	case JSON:
		if err := json.Unmarshal(data, &positions); err != nil {
			return nil, fmt.Errorf("artifact: json: %w", err)
		}
		if positions == nil {
			return nil, fmt.Errorf("artifact: json: not an array of positions")
		}
	case MsgPack:
		if len(data) == 0 || data[0] == msgpcode.Nil {
			return nil, fmt.Errorf("artifact: msgpack: not an array of positions")
		}
		if err := msgpack.Unmarshal(data, &positions); err != nil {
			return nil, fmt.Errorf("artifact: msgpack: %w", err)
		}
		if positions == nil {
			positions = []int{}
		}
	default:
		return nil, fmt.Errorf("artifact: unknown format %q", f)
	}
	return positions, nil
}
