package summary

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/outboundlb/proxyprobe/internal/probe"
)

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// WriteReport renders the summary in the requested format.
func WriteReport(w io.Writer, format string, s Summary) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		PrintReport(w, s)
		return nil
	case FormatJSON:
		return PrintJSONReport(w, s)
	case FormatYAML:
		return PrintYAMLReport(w, s)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, s Summary) {
	fmt.Fprintln(w, "\n--- Proxy Validation Results ---")
	if s.BatchID != "" {
		fmt.Fprintf(w, "Batch:             %s\n", s.BatchID)
	}
	if s.Model != "" {
		fmt.Fprintf(w, "Dispatch Model:    %s\n", s.Model)
	}
	fmt.Fprintf(w, "Submitted Tasks:   %d\n", s.Submitted)
	fmt.Fprintf(w, "Completed:         %d\n", s.Total)
	fmt.Fprintf(w, "Duration:          %s\n", s.Duration)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", s.RequestsPerSec)

	fmt.Fprintln(w, "\nOutcomes:")
	for _, kind := range probe.Kinds {
		if n, ok := s.Counts[kind.String()]; ok && n > 0 {
			fmt.Fprintf(w, "  %-22s %d\n", kind.String()+":", n)
		}
	}

	if len(s.Distribution) > 0 {
		fmt.Fprintln(w, "\nBackend Distribution:")
		keys := make([]string, 0, len(s.Distribution))
		for key := range s.Distribution {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			if s.Distribution[keys[i]] != s.Distribution[keys[j]] {
				return s.Distribution[keys[i]] > s.Distribution[keys[j]]
			}
			return keys[i] < keys[j]
		})
		for _, key := range keys {
			share := 0.0
			if n := s.Successes(); n > 0 {
				share = (float64(s.Distribution[key]) / float64(n)) * 100
			}
			fmt.Fprintf(w, "  %s: %d requests (%.1f%%)\n", key, s.Distribution[key], share)
		}
	}

	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", s.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", s.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", s.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", s.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", s.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", s.P99Latency)
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, s Summary) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(s)
}

// SaveReport writes the rendered report to path, holding a file lock so
// concurrent harness runs appending to a shared report location do not
// interleave.
func SaveReport(path, format string, s Summary) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock report file: %w", err)
	}
	defer lock.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteReport(f, format, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
