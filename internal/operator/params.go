package operator

import (
	"bytes"
	"fmt"
	"os"

	"dipbot/internal/session"

	"github.com/bytedance/sonic"
)

// LoadParams reads parameter sets from a JSON file holding either a single
// object or a list of objects.
func LoadParams(path string) ([]session.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params file %s: %w", path, err)
	}
	return ParseParams(data)
}

// ParseParams decodes the JSON accepted by LoadParams.
func ParseParams(data []byte) ([]session.Params, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("params: empty input")
	}

	if data[0] == '[' {
		var list []session.Params
		if err := sonic.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode params list: %w", err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("params: empty list")
		}
		return list, nil
	}

	var one session.Params
	if err := sonic.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return []session.Params{one}, nil
}
