package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "proxyprobe",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Proxy endpoint flags
	flags.String("proxy-host", "localhost", "Forward proxy host")
	flags.Int("proxy-port", 3128, "Forward proxy port")
	flags.String("proxy-user", "", "Proxy basic-auth username")
	flags.String("proxy-pass", "", "Proxy basic-auth password")
	flags.String("proxy-scheme", "http", "Proxy URL scheme (http or https)")

	// Batch shape flags
	flags.String("target", "https://httpbin.org/ip", "Target URL to request through the proxy")
	flags.IntP("requests", "n", 10, "Number of requests in the batch")
	flags.StringP("model", "m", string(ModelThreaded), "Dispatch model: 'threaded' or 'cooperative'")
	flags.IntP("workers", "w", 5, "Worker pool size for the threaded model")
	flags.Int("max-inflight", 10, "In-flight request cap for the cooperative model")
	flags.Duration("timeout", 10*time.Second, "Per-request timeout")
	flags.IntP("rate", "r", 0, "Requests per second limit (0 means unlimited)")
	flags.Int("retries", 0, "Retries per request for transient transport failures")
	flags.String("origin-field", "origin", "JSON field of the backend identity in successful responses")

	// Output flags
	flags.String("format", "text", "Report format: 'text', 'json', or 'yaml'")
	flags.String("report-file", "", "Write the report to the specified file path")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.String("metrics-addr", "", "Listen address for Prometheus metrics (empty disables)")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.Bool("trace", false, "Enable OpenTelemetry tracing")
	flags.String("trace-endpoint", "", "OTLP endpoint (host:port)")
	flags.String("trace-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("trace-service-name", "", "Service name reported on spans")
	flags.Bool("trace-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling ratio (0.0-1.0)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}
