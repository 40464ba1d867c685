package stages

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadLeagueIDs reads the `leagues: [...]` list of a leagues YAML file. Ids may be written as
// integers, quoted integers or whole floats (8.0).
func LoadLeagueIDs(path string) ([]int64, error) {
	var doc struct {
		Leagues []yaml.Node `yaml:"leagues"`
	}
	if err := readYAML(path, &doc); err != nil {
		return nil, err
	}
	if doc.Leagues == nil {
		return nil, fmt.Errorf("invalid leagues file %s: expected key 'leagues: [...]'", path)
	}
	ids := make([]int64, 0, len(doc.Leagues))
	for _, n := range doc.Leagues {
		id, ok := parseWholeID(n.Value)
		if !ok {
			return nil, fmt.Errorf("invalid league id %q in %s line %d", n.Value, path, n.Line)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// parseWholeID accepts integers and whole floats such as "8.0".
func parseWholeID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}

	return int64(f), true
}

// LoadSeasonNames reads the `seasons: [...]` list of a seasons YAML file. Blank and null
// entries are skipped.
func LoadSeasonNames(path string) ([]string, error) {
	var doc struct {
		Seasons []yaml.Node `yaml:"seasons"`
	}
	if err := readYAML(path, &doc); err != nil {
		return nil, err
	}
	if doc.Seasons == nil {
		return nil, fmt.Errorf("invalid seasons file %s: expected key 'seasons: [...]'", path)
	}
	var out []string
	for _, n := range doc.Seasons {
		if n.ShortTag() == "!!null" {
			continue
		}
		if s := strings.TrimSpace(n.Value); s != "" {
			out = append(out, s)
		}
	}

	return out, nil
}

func readYAML(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}
