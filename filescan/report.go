package filescan

import (
	"fmt"
	"io"
	"strings"
)

// WriteSummary emits a human-readable table of discovered files: index, name,
// size, OK/ERROR status, followed by the readable count and total size.
// This is observability output only, not part of the data contract.
func WriteSummary(w io.Writer, records []FileRecord, label string) {
	if len(records) == 0 {
		fmt.Fprintf(w, "No %s files found.\n", label)
		return
	}

	rule := strings.Repeat("-", 80)
	fmt.Fprintf(w, "\nFound %d %s files:\n", len(records), label)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-3s %-40s %-10s %-10s\n", "#", "Name", "Size (MB)", "Status")
	fmt.Fprintln(w, rule)

	var totalMB float64
	readable := 0
	for i, rec := range records {
		status := "OK"
		if rec.Readable {
			readable++
			totalMB += rec.SizeMB
		} else {
			status = "ERROR"
		}
		fmt.Fprintf(w, "%-3d %-40s %-10.2f %-10s\n", i+1, rec.Name, rec.SizeMB, status)
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total readable files: %d/%d\n", readable, len(records))
	fmt.Fprintf(w, "Total size: %.2f MB\n\n", totalMB)
}
