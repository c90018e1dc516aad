// Package cli implements the iris command line client.
package cli

import (
	"context"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/iris-marketplace/iris-client/logger"
)

// Streams are the standard streams a command reads from and writes to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run executes the CLI with args and returns the process exit code.
// Failures are reported on streams.Err.
func Run(ctx context.Context, version string, streams Streams, args []string) int {
	a := &app{version: version}
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	ctx = logger.WithAPICounter(ctx)
	err := root.ExecuteContext(ctx)
	if a.log != nil {
		a.log.Debug().
			Int64("api_calls", logger.GetAPICounter(ctx)).
			Dur("api_elapsed", logger.GetAPIElapsed(ctx)).
			Msg("Command finished")
	}
	a.close()
	if err != nil {
		PrintError(streams.Err, err)
		return 1
	}
	return 0
}

// newRootCommand builds the command tree around a.
func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "iris",
		Short: "Command line client for the Iris marketplace API",
		Long: `iris talks to the Iris marketplace backend with the same resilient client
the front-end uses: bounded retries with linear backoff on 5xx, 429 and
connection failures, a per-attempt timeout and bearer authentication.

Configuration comes from ./iris.yaml (or --config) and IRIS_* environment
variables, e.g. IRIS_API_BASEURL or IRIS_API_RETRY_ATTEMPTS.`,
		Version:       a.version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./iris.yaml when present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newGetCommand(a),
		newSendCommand(a, http.MethodPost),
		newSendCommand(a, http.MethodPut),
		newSendCommand(a, http.MethodPatch),
		newDeleteCommand(a),
		newUploadCommand(a),
		newLoginCommand(a),
		newRefreshCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newRoutesCommand(a),
	)

	return root
}
