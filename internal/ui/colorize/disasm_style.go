package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"

	palette "x86scope/internal/x86scope/styles"
)

// DisasmDark maps the nasm lexer's tokens onto the listing palette.
var DisasmDark = styles.Register(chroma.MustNewStyle("disasm-dark", chroma.StyleEntries{
	chroma.Text:           palette.Foreground,
	chroma.Background:     "bg:" + palette.Background,
	chroma.Comment:        palette.Comment,
	chroma.CommentPreproc: palette.Comment,

	// nasm tokenizes mnemonics as functions and registers as builtins
	chroma.Keyword:       palette.Mnemonic,
	chroma.KeywordPseudo: palette.Mnemonic,
	chroma.NameFunction:  palette.Mnemonic,
	chroma.Name:          palette.Register,
	chroma.NameBuiltin:   palette.Register,
	chroma.NameVariable:  palette.Register,
	chroma.KeywordType:   palette.Register, // byte, dword ptr

	chroma.LiteralNumber:        palette.Number,
	chroma.LiteralNumberHex:     palette.Number,
	chroma.LiteralNumberBin:     palette.Number,
	chroma.LiteralNumberOct:     palette.Number,
	chroma.LiteralNumberInteger: palette.Number,
	chroma.LiteralNumberFloat:   palette.Number,

	chroma.NameLabel:   palette.Label,
	chroma.Operator:    palette.Foreground,
	chroma.Punctuation: palette.Foreground,
	chroma.String:      "#EACD53",
}))
