package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/avguard/avscan/internal/quarantine"
	"github.com/avguard/avscan/internal/scanner"
)

const timeFormat = "2006-01-02 15:04:05"

// PrintTable prints records followed by a summary.
func PrintTable(title string, records []scanner.Record) {
	WriteTable(os.Stdout, title, records)
}

func WriteTable(w io.Writer, title string, records []scanner.Record) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))

	if len(records) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Path", "Category", "Action", "Details"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)

		for _, r := range records {
			table.Append([]string{relative(r.Path), string(r.Category), string(r.Action), r.Details})
		}
		table.Render()
	} else {
		fmt.Fprintln(w, "No records.")
	}

	s := scanner.Summarize(records)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total:      %d\n", s.Total)
	fmt.Fprintf(w, "Clean:      %d\n", s.Clean)
	fmt.Fprintf(w, "Infected:   %d\n", s.Infected)
	if s.Errors > 0 {
		fmt.Fprintf(w, "Errors:     %d\n", s.Errors)
	}
	if s.Warnings > 0 {
		fmt.Fprintf(w, "Warnings:   %d\n", s.Warnings)
	}
	if s.Skipped > 0 {
		fmt.Fprintf(w, "Skipped:    %d\n", s.Skipped)
	}
	fmt.Fprintln(w)
}

// PrintHistory prints audit log entries with their timestamps.
func PrintHistory(w io.Writer, records []scanner.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No scan history.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Context", "Path", "Category", "Action"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, r := range records {
		table.Append([]string{
			r.Timestamp.Local().Format(timeFormat),
			string(r.Context),
			relative(r.Path),
			string(r.Category),
			string(r.Action),
		})
	}
	table.Render()
}

// PrintQuarantine lists quarantined files.
func PrintQuarantine(w io.Writer, entries []quarantine.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Quarantine is empty.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Original", "Quarantined", "Size"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, e := range entries {
		table.Append([]string{
			e.Name,
			e.OriginalName,
			e.QuarantinedAt.Format(timeFormat),
			strconv.FormatInt(e.Size, 10),
		})
	}
	table.Render()
}

func relative(path string) string {
	if path == "" {
		return "-"
	}
	rel, err := filepath.Rel(".", path)
	if err != nil || len(rel) > len(path) {
		return path
	}
	return rel
}
