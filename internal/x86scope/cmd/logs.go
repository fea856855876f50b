package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"x86scope/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs [file]",
	Short: "Show the newest debug log",
	Long: `Print a log written with X86SCOPE_LOG_TO_FILE=1. Without a file the newest
` + logging.FilePattern + ` in the working directory is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := ResolveCwd(cmd)
		if err != nil {
			return err
		}
		follow, _ := cmd.Flags().GetBool("follow")

		var path string
		if len(args) == 1 {
			path = args[0]
		} else if path, err = logging.Latest(cwd); err != nil {
			return err
		}

		if !follow {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open log: %w", err)
			}
			defer f.Close()
			_, err = io.Copy(cmd.OutOrStdout(), f)
			return err
		}
		return followLog(cmd, path)
	},
}

func followLog(cmd *cobra.Command, path string) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("tail log: %w", err)
	}
	defer t.Cleanup()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(out, line.Text)
		}
	}
}

func init() {
	logsCmd.Flags().BoolP("follow", "f", false, "Keep printing lines as they are written")
	rootCmd.AddCommand(logsCmd)
}
