package lvm

import (
	"regexp"
	"strings"
)

var fieldSplit = regexp.MustCompile(`\s\s+`)

// parseSection turns the sectioned key/value text emitted by lvdisplay,
// vgdisplay and pvdisplay into a flat map. sectionStart is the header line
// that opens the section of interest (e.g. "--- Logical volume ---"); a
// blank line closes it. The "source of" row is special: instead of a single
// value it introduces a list of snapshot names, one per following line,
// accumulated under the key "source_of".
func parseSection(output string, sectionStart string) map[string]any {
	info := map[string]any{}
	inSection := false
	sourceOf := false

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			if inSection {
				break
			}

			continue
		}

		if !inSection {
			if strings.Contains(line, sectionStart) {
				inSection = true
			}

			continue
		}

		fields := fieldSplit.Split(line, -1)

		if !sourceOf && strings.Contains(line, "source of") {
			sourceOf = true
			continue
		}

		if len(fields) == 1 && sourceOf {
			tokens := strings.Fields(fields[0])
			if len(tokens) > 0 {
				existing, _ := info["source_of"].([]string)
				info["source_of"] = append(existing, tokens[0])
			}

			continue
		}

		if len(fields) >= 2 {
			info[fields[0]] = fields[1]
		}

		sourceOf = false
	}

	return info
}
