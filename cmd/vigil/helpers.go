package main

import (
	"os"
	"strconv"
	"strings"

	"vigil/internal/config"
)

// clipCell bounds a table cell to max runes. Newlines collapse to spaces so
// multi-line values cannot break row layout.
func clipCell(value string, max int) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
	runes := []rune(value)
	if max <= 0 || len(runes) <= max {
		return value
	}
	return string(runes[:max]) + "..."
}

func readPIDFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

func isConfiguredTask(cfg *config.Config, taskID string) bool {
	if cfg == nil {
		return false
	}
	for _, task := range cfg.Tasks {
		if task.URL == taskID {
			return true
		}
	}
	return false
}
