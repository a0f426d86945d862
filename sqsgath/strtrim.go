package sqsgath

import (
	"strings"

	"github.com/praclab/grader/api"
)

func trimRunData(data *api.RunData, maxHeight int, maxWidth int) *api.RunData {
	if data == nil {
		return nil
	}

	return &api.RunData{
		Stdout:     trimStrToRect(data.Stdout, maxHeight, maxWidth),
		Stderr:     trimStrToRect(data.Stderr, maxHeight, maxWidth),
		ExitStatus: data.ExitStatus,
		WallMillis: data.WallMillis,
	}
}

// trimStrToRect bounds multi-line output to a maxHeight x maxWidth
// rectangle, marking every cut with "[...]".
func trimStrToRect(s string, maxHeight int, maxWidth int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > maxHeight {
		lines = append(lines[:maxHeight], "[...]")
	}
	for i, line := range lines {
		if len(line) > maxWidth {
			lines[i] = line[:maxWidth] + "[...]"
		}
	}
	return strings.Join(lines, "\n")
}
