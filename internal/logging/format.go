package logging

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// FormatLogLine renders an entry as one line for diagnostics output:
//
//	2025-01-09T10:30:00Z [WARN] [capture] Acquisition failed kind=no_device_found
//
// Attributes follow the message sorted by key.
func FormatLogLine(entry LogEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] [%s] %s",
		entry.Timestamp.Format(time.RFC3339Nano),
		strings.ToUpper(entry.Level),
		entry.Module,
		entry.Message)
	for _, k := range slices.Sorted(maps.Keys(entry.Attributes)) {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Attributes[k])
	}
	return sb.String()
}
