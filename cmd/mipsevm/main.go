// Command mipsevm loads and runs statically linked MIPS32 big-endian
// user-mode ELF binaries under deterministic emulation, producing
// either a plain run, a state snapshot, or a single-step Merkle-proof.
//
// Grounded on the teacher's cmd/galago/main.go: a cobra root command with
// persistent flags and subcommands registered in main, plus
// original_source/flexemu/src/main.rs's three-subcommand (Run/GenState/
// GenStepProof) CLI shape.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flexemu-go/mipsevm/internal/config"
	"github.com/flexemu-go/mipsevm/internal/cpu"
	"github.com/flexemu-go/mipsevm/internal/emulator"
	"github.com/flexemu-go/mipsevm/internal/ids"
	"github.com/flexemu-go/mipsevm/internal/loader"
	"github.com/flexemu-go/mipsevm/internal/log"
	"github.com/flexemu-go/mipsevm/internal/memory"
	"github.com/flexemu-go/mipsevm/internal/syscall"
	"github.com/flexemu-go/mipsevm/internal/tui"
)

var (
	configPath string
	envPairs   []string
	steps      uint64
	outputDir  string
	watch      bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mipsevm",
		Short: "Deterministic MIPS32 big-endian user-mode emulator",
		Long: `mipsevm loads a statically linked MIPS32 big-endian ELF binary and
emulates it to completion, to a step count, or for a single recorded step,
producing a cryptographically verifiable execution proof.

Examples:
  mipsevm run ./a.out arg1 arg2          # run to completion
  mipsevm run ./a.out --watch            # run with a live progress view
  mipsevm gen-state ./a.out -s 1000 -o ./out
  mipsevm gen-step-proof ./a.out -s 1000 -o ./out`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Init(verbose)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML configuration file")
	rootCmd.PersistentFlags().StringArrayVar(&envPairs, "env", nil, "guest environment variable KEY=VALUE (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose debug logging")

	runCmd := &cobra.Command{
		Use:   "run <elf> [args...]",
		Short: "Load and run a binary to completion",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().Uint64VarP(&steps, "steps", "s", 0, "stop after this many instructions (0 = unbounded)")
	runCmd.Flags().BoolVar(&watch, "watch", false, "show a live progress view while running")
	rootCmd.AddCommand(runCmd)

	genStateCmd := &cobra.Command{
		Use:   "gen-state <elf> [args...]",
		Short: "Run to a step count and write a state snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGenState,
	}
	genStateCmd.Flags().Uint64VarP(&steps, "steps", "s", 0, "run this many instructions before snapshotting")
	genStateCmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory to write state.json into")
	rootCmd.AddCommand(genStateCmd)

	genStepProofCmd := &cobra.Command{
		Use:   "gen-step-proof <elf> [args...]",
		Short: "Run to a step count and generate a single-step Merkle proof",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGenStepProof,
	}
	genStepProofCmd.Flags().Uint64VarP(&steps, "steps", "s", 0, "run this many instructions, then record one more")
	genStepProofCmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory to write step-proof.json into")
	rootCmd.AddCommand(genStepProofCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, tui.ErrorLine(err))
		os.Exit(exitCodeFor(err))
	}
}

// newEmulator loads cfg/binaryPath/args/env into a freshly constructed
// emulator, ready to Run/RunSteps/RecordStep from its entrypoint.
func newEmulator(binaryPath string, args []string) (*emulator.Emulator, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	env, err := parseEnv(envPairs)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", binaryPath, err)
	}

	emu, err := emulator.New(cfg)
	if err != nil {
		return nil, err
	}

	argv := append([]string{binaryPath}, args...)
	if _, err := emu.Load(data, argv, env); err != nil {
		emu.Close()
		return nil, err
	}
	return emu, nil
}

func parseEnv(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("--env: %q is not in KEY=VALUE form", p)
		}
		env[key] = value
	}
	return env, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	emu, err := newEmulator(args[0], args[1:])
	if err != nil {
		return err
	}
	defer emu.Close()

	run := func() error {
		if steps > 0 {
			return emu.RunSteps(steps)
		}
		return emu.Run(0, 0)
	}

	if watch {
		return tui.Watch(run)
	}
	return run()
}

func runGenState(cmd *cobra.Command, args []string) error {
	emu, err := newEmulator(args[0], args[1:])
	if err != nil {
		return err
	}
	defer emu.Close()

	if steps > 0 {
		if err := emu.RunSteps(steps); err != nil {
			return err
		}
	}

	snap := emu.Snapshot(ids.NewRunID())
	return writeJSON(outputDir, "state.json", snap)
}

func runGenStepProof(cmd *cobra.Command, args []string) error {
	emu, err := newEmulator(args[0], args[1:])
	if err != nil {
		return err
	}
	defer emu.Close()

	// RecordStep(n) runs n-1 instructions and records the n-th, so steps+1
	// runs `steps` instructions and records the one after them.
	proof, err := emu.RecordStep(steps + 1)
	if err != nil {
		return err
	}
	return writeJSON(outputDir, "step-proof.json", proof)
}

func writeJSON(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintln(os.Stdout, path)
	return nil
}

// exitCodeFor maps a typed error kind to a distinct non-zero exit code,
// in the teacher's style of a small switch rather than a generic 1.
func exitCodeFor(err error) int {
	var execErr *cpu.ExecutionError
	var loaderErr *loader.LoaderError
	var syscallErr *syscall.SyscallError
	switch {
	case errors.As(err, &execErr):
		return 2
	case errors.As(err, &loaderErr):
		return 3
	case errors.As(err, &syscallErr):
		return 4
	case errors.Is(err, memory.ErrOverlap), errors.Is(err, memory.ErrBadPerm),
		errors.Is(err, memory.ErrOutOfMemory), errors.Is(err, memory.ErrNotMapped):
		return 5
	default:
		return 1
	}
}
