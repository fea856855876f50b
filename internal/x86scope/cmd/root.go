package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/pprof"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"x86scope/internal/analysis"
	"x86scope/internal/disasm"
	"x86scope/internal/logging"
	"x86scope/internal/ui/viewer"
	"x86scope/internal/x86scope/log"
)

func init() {
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().String("log-file", "", "Write process logs to this file instead of stderr")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Print the listing without TUI")
	rootCmd.Flags().BoolP("json", "j", false, "Output the listing as JSON")
	rootCmd.Flags().StringP("mode", "m", "auto", "Processor mode: 16, 32, 64 or auto")
	rootCmd.Flags().Int("count", 0, "Maximum number of lines (0 lists to the end of the image)")
	rootCmd.Flags().BoolP("walk", "w", false, "Follow control flow from the entry point instead of sweeping")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")
}

var rootCmd = &cobra.Command{
	Use:   "x86scope [file]",
	Short: "x86 disassembler and ELF image bounds analyzer",
	Long: `x86scope decodes 16, 32 and 64-bit x86 machine code. Given an ELF image it
computes the decodable address range from the section or program headers and
lists the code from the entry point.`,
	Example: `
# Browse the listing of a binary
x86scope /bin/true

# Print the first 40 reachable instructions
x86scope -n --walk --count 40 /bin/true
  `,
	Args: cobra.ExactArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		logFile, _ := cmd.Flags().GetString("log-file")
		if debug && os.Getenv("X86SCOPE_LOG_LEVEL") == "" {
			os.Setenv("X86SCOPE_LOG_LEVEL", "debug")
		}
		log.Setup(logFile, debug)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
		if cpuprofile != "" {
			f, err := os.Create(cpuprofile)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %v", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %v", err)
			}
			defer pprof.StopCPUProfile()
		}

		memprofile, _ := cmd.Flags().GetString("memprofile")
		if memprofile != "" {
			defer func() {
				f, err := os.Create(memprofile)
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
					return
				}
				defer f.Close()
				if err := pprof.WriteHeapProfile(f); err != nil {
					fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
				}
			}()
		}

		path, err := resolvePath(cmd, args[0])
		if err != nil {
			return err
		}

		noTUI, _ := cmd.Flags().GetBool("no-tui")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		mode, _ := cmd.Flags().GetString("mode")
		count, _ := cmd.Flags().GetInt("count")
		walk, _ := cmd.Flags().GetBool("walk")

		out := cmd.OutOrStdout()
		if !isTerminal(out) {
			noTUI = true
			os.Setenv("X86SCOPE_NO_COLOR", "1")
		}

		lc := logging.NewLogger()
		defer lc.Close()

		im, v, err := openView(path, mode, lc.Logger)
		if err != nil {
			return err
		}
		defer im.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		list := func() (disasm.Stream, error) {
			if walk {
				return v.Walk(ctx, nil, count)
			}
			return v.LinearScan(ctx, v.Entry, count)
		}

		if jsonOutput {
			return runJSON(out, path, v, list)
		}
		if noTUI {
			lines, err := list()
			if err != nil {
				return err
			}
			printListing(out, lines, labeler(v))
			return nil
		}

		program := tea.NewProgram(
			viewer.New(filepath.Base(path), v.Entry, list, labeler(v)),
			tea.WithAltScreen(),
			tea.WithContext(ctx),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %v", err)
		}
		return nil
	},
}

func runJSON(w io.Writer, path string, v *analysis.View, list viewer.LoadFunc) error {
	lines, err := list()
	if err != nil {
		return err
	}
	return writeJSON(w, ListingJSON{
		File:   path,
		Mode:   int(v.Mode),
		Source: v.Source,
		Low:    v.Range.Low,
		High:   v.Range.High,
		Entry:  v.Entry,
		Lines:  toJSONLines(lines),
	})
}

// resolvePath applies --cwd and makes name absolute.
func resolvePath(cmd *cobra.Command, name string) (string, error) {
	cwd, err := ResolveCwd(cmd)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	return filepath.Join(cwd, name), nil
}

func Execute() {
	// fang renders help and errors as markdown; skip it when output is
	// plain or piped.
	noTUI := false
	for _, arg := range os.Args[1:] {
		if arg == "--no-tui" || arg == "-n" || arg == "--json" || arg == "-j" {
			noTUI = true
			break
		}
	}
	if !noTUI && !term.IsTerminal(os.Stdout.Fd()) {
		noTUI = true
	}

	if noTUI {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		err := os.Chdir(cwd)
		if err != nil {
			return "", fmt.Errorf("failed to change directory: %v", err)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}
	return cwd, nil
}
