package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// summary flattens the numeric fields of a stage output into "key=value" pairs sorted by key.
// Outputs that are not JSON objects are printed as is.
func summary(output any) string {
	if output == nil {
		return ""
	}
	b, err := json.Marshal(output)
	if err != nil {
		return fmt.Sprint(output)
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return string(b)
	}

	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if _, ok := v.(float64); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}

	return strings.Join(parts, " ")
}
