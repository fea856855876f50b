package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// Config mirrors the command-line configuration of x86scope.
type Config struct {
	Debug   bool   `json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	LogFile string `json:"logFile,omitempty" jsonschema:"title=Log File,description=File receiving process logs"`
	Mode    string `json:"mode" jsonschema:"title=Mode,description=Processor mode,enum=auto,enum=16,enum=32,enum=64,default=auto"`
	Count   int    `json:"count,omitempty" jsonschema:"title=Count,description=Maximum number of listing lines (0 for no limit),minimum=0"`
	Walk    bool   `json:"walk,omitempty" jsonschema:"title=Walk,description=Follow control flow instead of sweeping"`
	Workers int    `json:"workers,omitempty" jsonschema:"title=Workers,description=Chunks decoded at once by run,minimum=1"`
	Chunk   uint64 `json:"chunk,omitempty" jsonschema:"title=Chunk,description=Chunk size in bytes for run"`
	Verify  bool   `json:"verify,omitempty" jsonschema:"title=Verify,description=Cross-check instruction lengths with x86asm"`
	NoColor bool   `json:"noColor,omitempty" jsonschema:"title=No Color,description=Disable listing colors (X86SCOPE_NO_COLOR)"`
	Profile string `json:"profile,omitempty" jsonschema:"title=Profile Path,description=Path for CPU profile output"`
}

var schemaCmd = &cobra.Command{
	Use:    "schema",
	Short:  "Generate JSON schema for configuration",
	Long:   "Generate JSON schema for the x86scope configuration",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := new(jsonschema.Reflector)
		bts, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(bts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
