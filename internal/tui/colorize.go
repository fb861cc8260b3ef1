// Package tui implements `run --watch`'s live progress view and a
// colorized renderer for step-trace text and CLI error lines.
//
// colorize.go adapts the teacher's internal/ui/colorize package: the same
// chroma-lexer-with-fallback idiom (getAssemblyLexer/getDisasmStyle), here
// applied to a generic assembly lexer over MIPS step-trace lines instead of
// ARM64 disassembly.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// IDA-style theme colors, kept for the mipsevm-dark style registered below.
const (
	mnemonicColor = "#FFFFFF"
	registerColor = "#87CEEB"
	numberColor   = "#FF80C0"
	labelColor    = "#FFC800"
	commentColor  = "#FF8000"
)

// stepTraceStyle is a custom chroma style tuned for a black-background
// terminal, the same palette the teacher's disasm-dark style used.
var stepTraceStyle = styles.Register(chroma.MustNewStyle("mipsevm-dark", chroma.StyleEntries{
	chroma.Text:           "#FFFFFF",
	chroma.Background:     "bg:#000000",
	chroma.Comment:        commentColor,
	chroma.CommentPreproc: commentColor,
	chroma.Keyword:        mnemonicColor,
	chroma.KeywordPseudo:  mnemonicColor,
	chroma.Name:           registerColor,
	chroma.NameBuiltin:    registerColor,
	chroma.NameVariable:   registerColor,
	chroma.LiteralNumber:  numberColor,
	chroma.NameLabel:      labelColor,
	chroma.NameFunction:   labelColor,
}))

// getAssemblyLexer returns an assembly lexer with fallbacks, since chroma
// ships no MIPS-specific lexer; GNU `as` syntax (mnemonic, comma-separated
// operands, `#`/`;` comments) is close enough for token coloring.
func getAssemblyLexer() chroma.Lexer {
	for _, name := range []string{"gas", "GAS", "Gas", "nasm"} {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

func getTerminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// IsDisabled reports whether color output is suppressed via environment,
// honoring both the convention-less NO_COLOR and a tool-specific override.
func IsDisabled() bool {
	return os.Getenv("MIPSEVM_NO_COLOR") != "" || os.Getenv("NO_COLOR") != ""
}

// Instruction colorizes one decoded step-trace line ("lw $v0, 0($sp)").
func Instruction(line string) string {
	if IsDisabled() {
		return line
	}
	lexer := getAssemblyLexer()
	if lexer == nil {
		return line
	}
	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}
	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, stepTraceStyle, iterator); err != nil {
		return line
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Address formats a guest address in amber, 8 hex digits.
func Address(addr uint64) string {
	if IsDisabled() {
		return fmt.Sprintf("%08x", addr)
	}
	return fmt.Sprintf("\033[38;2;255;200;0m%08x\033[0m", addr)
}

// SyscallName formats a dispatched syscall's name in cyan.
func SyscallName(name string) string {
	if IsDisabled() {
		return name
	}
	return fmt.Sprintf("\033[38;2;135;206;235m%s\033[0m", name)
}

// Error formats a fatal condition in pink.
func Error(s string) string {
	if IsDisabled() {
		return s
	}
	return fmt.Sprintf("\033[38;2;255;128;192m%s\033[0m", s)
}

// ErrorLine formats a fatal top-level error for stderr, "mipsevm: <err>".
func ErrorLine(err error) string {
	return Error(fmt.Sprintf("mipsevm: %v", err))
}
