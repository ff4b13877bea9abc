package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vincar/vinmcp/internal/smoke"
)

var appVersion = "dev"

func SetVersion(v string) {
	appVersion = v
}

var (
	flagURL     string
	flagTimeout int
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vinmcp",
	Short: "Smoke-test a vehicle audit MCP server over SSE",
	Long: `vinmcp connects to an MCP server over Server-Sent Events, performs the
initialize handshake, calls the audit_vehicle_safety tool with a sample VIN
and prints the JSON-RPC response.

Run without arguments to test a server on http://localhost:8080. Start one
with 'vinmcp serve'.

Examples:
  # Test the local server
  vinmcp

  # Test a server elsewhere, giving up after 15 seconds
  vinmcp --url http://mcp.internal:9876 --timeout 15000`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSmoke,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flagURL, "url", smoke.DefaultBaseURL, "base URL of the MCP server (the SSE stream is <url>/sse)")
	f.IntVar(&flagTimeout, "timeout", 0, "timeout in milliseconds for the whole run (0 waits forever)")
	f.BoolVar(&flagVerbose, "verbose", false, "show detailed progress")

	rootCmd.AddCommand(serveCmd)
	rootCmd.SetVersionTemplate(fmt.Sprintf("vinmcp v%s\n", appVersion))
}

func Execute() error {
	rootCmd.Version = appVersion
	return rootCmd.Execute()
}

// runSmoke reports run errors on stdout instead of returning them, so a failed
// smoke test still exits 0.
func runSmoke(cmd *cobra.Command, args []string) error {
	if flagTimeout < 0 {
		return fmt.Errorf("--timeout must not be negative")
	}

	out := cmd.OutOrStdout()
	ctx := context.Background()
	if flagTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(flagTimeout)*time.Millisecond)
		defer cancel()
	}

	err := smoke.Run(ctx, smoke.Options{
		BaseURL: flagURL,
		Verbose: verbose(out),
	}, out)
	smoke.Report(out, err)
	return nil
}

// verbose returns a printer that writes to out if --verbose is set.
func verbose(out io.Writer) func(format string, args ...interface{}) {
	return func(format string, args ...interface{}) {
		if flagVerbose {
			fmt.Fprintf(out, format+"\n", args...)
		}
	}
}
