package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"x86scope/internal/analysis"
	"x86scope/internal/disasm"
	"x86scope/internal/logging"
)

// scanSummary counts what a whole-image scan found.
type scanSummary struct {
	Lines      int `json:"lines"`
	Undecoded  int `json:"undecoded"`
	Calls      int `json:"calls"`
	Jumps      int `json:"jumps"`
	CondJumps  int `json:"cond_jumps"`
	Returns    int `json:"returns"`
	Mismatches int `json:"mismatches,omitempty"`
}

func summarize(lines disasm.Stream) scanSummary {
	s := scanSummary{Lines: len(lines)}
	for _, l := range lines {
		if l.Err != nil {
			s.Undecoded++
			continue
		}
		switch l.Flow {
		case disasm.FlowCall:
			s.Calls++
		case disasm.FlowJump:
			s.Jumps++
		case disasm.FlowCondJump:
			s.CondJumps++
		case disasm.FlowReturn:
			s.Returns++
		}
	}
	return s
}

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Sweep a whole image non-interactively",
	Long: `Decode every byte of the image range in parallel chunks and print a
summary. With --verify each line is checked against the x86asm decoder.`,
	Example: `
# Summary of a full sweep on 8 workers
x86scope run --workers 8 /bin/ls

# Compare instruction lengths with golang.org/x/arch
x86scope run --verify /bin/ls
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvePath(cmd, args[0])
		if err != nil {
			return err
		}
		mode, _ := cmd.Flags().GetString("mode")
		workers, _ := cmd.Flags().GetInt("workers")
		chunk, _ := cmd.Flags().GetUint64("chunk")
		verify, _ := cmd.Flags().GetBool("verify")
		list, _ := cmd.Flags().GetBool("list")
		quiet, _ := cmd.Flags().GetBool("quiet")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		lc := logging.NewLogger()
		defer lc.Close()
		if lc.Path != "" {
			slog.Info("Logging to file", "path", lc.Path)
		}

		im, v, err := openView(path, mode, lc.Logger)
		if err != nil {
			return err
		}
		defer im.Close()

		if !quiet {
			slog.Info("Running analysis", "file", path, "workers", workers, "chunk", chunk)
		}
		start := time.Now()
		lines, err := v.ParallelScan(cmd.Context(), workers, chunk)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		sum := summarize(lines)
		var mismatches []analysis.Mismatch
		if verify {
			mismatches = v.CrossCheck(lines)
			sum.Mismatches = len(mismatches)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, sum)
		}
		if list {
			printListing(out, lines, labeler(v))
			fmt.Fprintln(out)
		}
		printSummary(out, v, sum, verify, mismatches, elapsed)
		return nil
	},
}

func printSummary(w io.Writer, v *analysis.View, sum scanSummary, verified bool, mismatches []analysis.Mismatch, elapsed time.Duration) {
	fmt.Fprintf(w, "; %s\n", v.Image.Path)
	fmt.Fprintf(w, "; %s, range %s from %s, entry %s\n", v.Mode, v.Range, v.Source, v.Entry)
	fmt.Fprintf(w, "; %d lines in %s (undecoded %d, call %d, jmp %d, jcc %d, ret %d)\n",
		sum.Lines, elapsed.Round(time.Millisecond), sum.Undecoded, sum.Calls, sum.Jumps, sum.CondJumps, sum.Returns)

	if total, top := v.Syms.Stats(); total > 0 {
		fmt.Fprintf(w, "; %d symbols named", total)
		for _, t := range top {
			fmt.Fprintf(w, "\n;   %s", t)
		}
		fmt.Fprintln(w)
	}

	if !verified {
		return
	}
	fmt.Fprintf(w, "; %d lines disagree with x86asm\n", len(mismatches))
	for i, m := range mismatches {
		if i == 10 {
			fmt.Fprintf(w, ";   ... %d more\n", len(mismatches)-i)
			break
		}
		if m.RefErr != nil {
			fmt.Fprintf(w, ";   %s %-30s x86asm: %v\n", m.Addr, m.Text, m.RefErr)
			continue
		}
		fmt.Fprintf(w, ";   %s %-30s %d bytes, x86asm %q %d bytes\n", m.Addr, m.Text, m.Ours, m.RefText, m.Ref)
	}
}

func init() {
	runCmd.Flags().StringP("mode", "m", "auto", "Processor mode: 16, 32, 64 or auto")
	runCmd.Flags().Int("workers", runtime.NumCPU(), "Number of chunks decoded at once")
	runCmd.Flags().Uint64("chunk", analysis.DefaultChunk, "Chunk size in bytes")
	runCmd.Flags().Bool("verify", false, "Cross-check lengths with golang.org/x/arch/x86/x86asm")
	runCmd.Flags().BoolP("list", "l", false, "Print the listing before the summary")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not log progress")
	runCmd.Flags().BoolP("json", "j", false, "Output the summary as JSON")
	rootCmd.AddCommand(runCmd)
}
