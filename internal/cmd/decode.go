package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/aggregator"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/decode"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/output"
)

var decodeOut string

var decodeCmd = &cobra.Command{
	Use:   "decode <file.bin>...",
	Short: "Decode binary log dumps into text reports",
	Long: `Decode one or more *.bin dumps. Each produces a report next to the input
file (or at --out for a single input). Use - as the out path to write to
stdout.

Examples:
  zlp decode 538ZFAZ33FCK12345_MBB.bin
  zlp decode dump.bin --out report.txt
  zlp decode dump.bin -o json --out -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVar(&decodeOut, "out", "", "output path (single input only; - for stdout)")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	if decodeOut != "" && len(args) > 1 {
		return fmt.Errorf("--out takes a single input file, got %d", len(args))
	}

	agg := aggregator.New(nil, nil)
	for _, path := range args {
		if err := decodeOne(path, agg); err != nil {
			return err
		}
	}
	printSummary(agg.Snapshot())
	return nil
}

func decodeOne(path string, agg *aggregator.Aggregator) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	report, err := decode.File(data, decode.Options{
		Kind:             declaredKind(path),
		UTCOffsetSeconds: utcOffsetSeconds(),
		Source:           path,
	})
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	agg.RecordReport(report)
	checkFilenameVIN(path, report)

	dest := decodeOut
	if dest == "" {
		dest = defaultOutputPath(path)
	}

	var w *os.File
	toStdout := dest == "-"
	if toStdout {
		w = os.Stdout
	} else {
		w, err = os.Create(dest)
		if err != nil {
			return fmt.Errorf("create %s: %w", dest, err)
		}
		defer w.Close()
	}

	var renderer output.Renderer
	switch strings.ToLower(outputFmt) {
	case "json":
		renderer = output.NewJSONRenderer(w)
	case "csv":
		renderer = output.NewCSVRenderer(w)
	default:
		// Report files carry the reference BOM; terminal output does not.
		renderer = output.NewTextRenderer(w, !toStdout)
	}
	if err := renderer.Render(report); err != nil {
		return fmt.Errorf("render %s: %w", dest, err)
	}

	output.RenderWarnings(os.Stderr, report.Warnings)
	if !toStdout {
		fmt.Fprintf(os.Stderr, "%s: %d entries -> %s\n", path, len(report.Entries), dest)
	}
	return nil
}

// vinPattern matches a Zero VIN embedded in a dump filename, the naming the
// official log puller uses.
var vinPattern = regexp.MustCompile(`538[A-HJ-NPR-Z0-9]{14}`)

// checkFilenameVIN warns when the VIN in the dump's filename disagrees with
// the VIN decoded from the header, which usually means a mislabeled file.
func checkFilenameVIN(path string, report *model.Report) {
	fileVIN := vinPattern.FindString(filepath.Base(path))
	if fileVIN == "" {
		return
	}
	for _, f := range report.Header {
		if f.Name == "VIN" && f.Value != "" && f.Value != fileVIN {
			fmt.Fprintf(os.Stderr, "%s: filename VIN %s does not match header VIN %s\n",
				path, fileVIN, f.Value)
		}
	}
}

// printSummary reports the run's tallies: entry totals and any type codes the
// registry could not decode.
func printSummary(stats aggregator.Stats) {
	fmt.Fprintf(os.Stderr, "Decoded %d file(s), %d entries", stats.FilesDecoded, stats.TotalEntries)
	if stats.UnknownCount > 0 {
		fmt.Fprintf(os.Stderr, " (%d undocumented: %s)",
			stats.UnknownCount, strings.Join(stats.UnknownTypes, " "))
	}
	fmt.Fprintln(os.Stderr)
}

// defaultOutputPath swaps the input extension per output format, matching
// the reference tool's <dump>.txt convention.
func defaultOutputPath(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	switch strings.ToLower(outputFmt) {
	case "json":
		return base + ".json"
	case "csv":
		return base + ".csv"
	default:
		return base + ".txt"
	}
}
