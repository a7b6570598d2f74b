package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdoc-labs/askdoc-cli/internal/adapters/driving/httpapi"
	"github.com/askdoc-labs/askdoc-cli/internal/adapters/driving/watcher"
	"github.com/askdoc-labs/askdoc-cli/internal/logger"
)

var (
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the question-answering pipeline over HTTP:

  GET  /          API description
  GET  /health    liveness probe
  GET  /status    pipeline state and index counters
  POST /query     {"question": "..."} -> grounded answer with sources
  POST /reinitialize  rebuild the index from the corpus

With --watch, the corpus directory is monitored and the index is rebuilt
automatically when files change. Queries keep hitting the previous index
until the rebuild finishes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "HTTP port to listen on")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "rebuild when corpus files change")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := initServices(true); err != nil {
		return err
	}
	defer closeServices()

	if err := ensureServed(cmd); err != nil {
		// The server can come up without an index; /query returns 503
		// until the first successful build.
		logger.Warn("Starting without a ready index: %v", err)
	}

	if serveWatch {
		w, err := watcher.New(settings.Corpus.Dir, pipeline)
		if err != nil {
			return fmt.Errorf("starting corpus watcher: %w", err)
		}
		defer w.Close()
		go w.Run(cmd.Context())
		logger.Info("Watching %s for changes", settings.Corpus.Dir)
	}

	server := httpapi.NewServer(pipeline)
	addr := fmt.Sprintf(":%d", servePort)
	fmt.Fprintf(cmd.OutOrStdout(), "askdoc API listening on http://localhost%s\n", addr)
	return server.Run(cmd.Context(), addr)
}
