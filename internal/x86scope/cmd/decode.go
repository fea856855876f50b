package cmd

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"x86scope/internal/addr"
	"x86scope/internal/analysis"
	"x86scope/internal/disasm"
	"x86scope/internal/x86"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [hex bytes...]",
	Short: "Decode raw machine code",
	Long: `Decode a byte string given in hex. Bytes that do not start a valid
instruction are listed as single "db" lines.`,
	Example: `
# 64-bit mode at address 0x401000
x86scope decode --addr 0x401000 "55 48 89 e5 c3"

# Show the decoded records
x86scope decode --mode 16 --dump b8 34 12
  `,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeStr, _ := cmd.Flags().GetString("mode")
		base, _ := cmd.Flags().GetString("addr")
		dump, _ := cmd.Flags().GetBool("dump")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		mode, err := x86.ParseMode(modeStr)
		if err != nil {
			return err
		}
		va, err := strconv.ParseUint(base, 0, 64)
		if err != nil {
			return fmt.Errorf("bad --addr %q: %w", base, err)
		}
		src, err := parseHex(strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if dump {
			return dumpRecords(cmd, src, va, mode)
		}
		lines := decodeAll(src, va, mode)
		if jsonOutput {
			return writeJSON(out, toJSONLines(lines))
		}
		printListing(out, lines, nil)
		return nil
	},
}

func init() {
	decodeCmd.Flags().StringP("mode", "m", "64", "Processor mode: 16, 32 or 64")
	decodeCmd.Flags().StringP("addr", "a", "0", "Address of the first byte")
	decodeCmd.Flags().Bool("dump", false, "Dump the decoded instruction records")
	decodeCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	rootCmd.AddCommand(decodeCmd)
}

var hexNoise = strings.NewReplacer(" ", "", "\t", "", "\n", "", ",", "", "0x", "", "\\x", "")

// parseHex accepts "55 48 89 e5", "5548", "0x55,0x48" or "\x55\x48".
func parseHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(hexNoise.Replace(strings.ToLower(s)))
	if err != nil {
		return nil, fmt.Errorf("bad hex input: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("no bytes to decode")
	}
	return b, nil
}

func widthOf(mode x86.Mode) addr.Width {
	if mode == x86.Mode64 {
		return addr.Width64
	}
	return addr.Width32
}

// decodeAll lists src from start to end, stepping one byte past anything
// undecodable.
func decodeAll(src []byte, va uint64, mode x86.Mode) disasm.Stream {
	var lines disasm.Stream
	for off := 0; off < len(src); {
		line := analysis.DecodeBytes(src[off:], addr.New(widthOf(mode), va+uint64(off)), mode)
		lines = append(lines, line)
		off += line.Len()
	}
	return lines
}

func dumpRecords(cmd *cobra.Command, src []byte, va uint64, mode x86.Mode) error {
	cfg := spew.ConfigState{
		Indent:                  "  ",
		DisableMethods:          true,
		DisablePointerAddresses: true,
		SortKeys:                true,
	}
	out := cmd.OutOrStdout()
	for off := 0; off < len(src); {
		in, err := x86.Decode(src[off:], va+uint64(off), mode)
		if err != nil {
			fmt.Fprintf(out, "%#x: %v\n", va+uint64(off), err)
			off++
			continue
		}
		fmt.Fprintf(out, "%#x: %s\n", in.Addr, in)
		cfg.Fdump(out, in)
		off += in.Len
	}
	return nil
}
