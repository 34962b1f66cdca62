package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/decode"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/output"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/runner"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Watch dump files and re-decode them on change",
	Long: `Watch one or more *.bin files (or glob patterns) and decode each dump as
it appears or changes. A report file is written next to each dump and the
decoded entries stream to the terminal.

Examples:
  zlp watch dumps/*.bin
  zlp watch "bikes/**/*.bin"
  zlp watch dump.bin --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nzlp shutting down gracefully...")
		cancel()
	}()

	w, err := watcher.New(args)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	watchedPaths := w.Paths()
	if len(watchedPaths) == 0 {
		return fmt.Errorf("no files matched the given patterns: %v", args)
	}

	fmt.Fprintf(os.Stderr, "zlp watching %d dump(s):\n", len(watchedPaths))
	for _, p := range watchedPaths {
		fmt.Fprintf(os.Stderr, "   - %s\n", p)
	}
	fmt.Fprintln(os.Stderr)

	ckptPath := filepath.Join(".", ".zlp-state.json")
	ckpt, err := runner.NewCheckpoint(ckptPath)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	opts := decode.Options{
		Kind:             declaredKind(""),
		UTCOffsetSeconds: utcOffsetSeconds(),
	}
	r := runner.New(w, ckpt, opts, writeWatchReport)

	go w.Start(ctx)
	go r.Start(ctx)

	jsonMode := strings.ToLower(outputFmt) == "json"
	for entry := range r.Entries() {
		if jsonMode {
			fmt.Printf("{\"line\":%d,\"time\":%q,\"event\":%q,\"conditions\":%q,\"source\":%q}\n",
				entry.Line, entry.Time, entry.Event, entry.Conditions, entry.Source)
		} else {
			fmt.Println(output.FormatEntry(entry))
		}
	}

	return nil
}

// writeWatchReport writes the canonical report file next to a decoded dump
// and surfaces its warnings.
func writeWatchReport(path string, report *model.Report) {
	dest := strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
	f, err := os.Create(dest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot write %s: %v\n", dest, err)
		return
	}
	defer f.Close()

	if err := output.NewTextRenderer(f, true).Render(report); err != nil {
		fmt.Fprintf(os.Stderr, "render %s: %v\n", dest, err)
		return
	}
	output.RenderWarnings(os.Stderr, report.Warnings)
	fmt.Fprintf(os.Stderr, "%s: %d entries -> %s\n", path, len(report.Entries), dest)
}
