package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/aggregator"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/decode"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/hub"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/runner"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/server"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/watcher"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve [paths...]",
	Short: "Run the decoder dashboard",
	Long: `Serve a web dashboard for decoding dumps. Dumps can be uploaded through
the browser (or POSTed to /api/decode); if paths or glob patterns are given,
they are watched and re-decoded on change, with entries streamed to the
dashboard over a websocket.

Examples:
  zlp serve
  zlp serve --port 9000 dumps/*.bin`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "8080", "HTTP listen port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nzlp shutting down gracefully...")
		cancel()
		os.Exit(0)
	}()

	opts := decode.Options{
		Kind:             declaredKind(""),
		UTCOffsetSeconds: utcOffsetSeconds(),
	}

	// The hub needs an input channel even when nothing is watched; uploads
	// reach the aggregator directly via the decode endpoint.
	entryCh := make(chan model.Entry, 512)
	h := hub.New(entryCh)
	agg := aggregator.New(nil, h.Dropped)

	if len(args) > 0 {
		w, err := watcher.New(args)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		ckpt, err := runner.NewCheckpoint(".zlp-state.json")
		if err != nil {
			return fmt.Errorf("failed to load checkpoint: %w", err)
		}
		r := runner.New(w, ckpt, opts, func(path string, report *model.Report) {
			agg.RecordReport(report)
		})

		go w.Start(ctx)
		go r.Start(ctx)
		go func() {
			// Bridge runner output into the hub's input.
			defer close(entryCh)
			for e := range r.Entries() {
				select {
				case entryCh <- e:
				case <-ctx.Done():
					return
				}
			}
		}()

		fmt.Fprintf(os.Stderr, "zlp watching %d dump(s)\n", len(w.Paths()))
	}

	go h.Start(ctx)

	srv := server.New(h, agg, opts, servePort)
	fmt.Fprintf(os.Stderr, "zlp dashboard on http://localhost:%s\n", servePort)
	return srv.Start()
}
