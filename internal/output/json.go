package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/avguard/avscan/internal/scanner"
)

type JSONOutput struct {
	Summary JSONSummary      `json:"summary"`
	Records []scanner.Record `json:"records"`
}

type JSONSummary struct {
	Total    int `json:"total"`
	Clean    int `json:"clean"`
	Infected int `json:"infected"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Skipped  int `json:"skipped"`
}

func PrintJSON(records []scanner.Record) error {
	return WriteJSON(os.Stdout, records)
}

func WriteJSON(w io.Writer, records []scanner.Record) error {
	if records == nil {
		records = []scanner.Record{}
	}
	s := scanner.Summarize(records)
	out := JSONOutput{
		Summary: JSONSummary{
			Total:    s.Total,
			Clean:    s.Clean,
			Infected: s.Infected,
			Errors:   s.Errors,
			Warnings: s.Warnings,
			Skipped:  s.Skipped,
		},
		Records: records,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	fmt.Fprintln(w, string(data))
	return nil
}

// PrintValue writes any value as indented JSON.
func PrintValue(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
