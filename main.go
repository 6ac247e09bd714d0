//go:build !js

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"limit/pkg/asm"
	"limit/pkg/cpu"
	"limit/pkg/host"
	"limit/pkg/limit"
	"limit/pkg/logging"
	"limit/pkg/snapshot"
)

type runOptions struct {
	words      int
	ticks      int
	stepLimit  int
	restore    string
	save       string
	screenshot string
	width      int
	height     int
	scale      int
	peek       []string
}

var (
	logLevel  string
	logFormat string
	log       *logrus.Logger
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "limit: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "limit",
		Short:         "Assemble and run Limit programs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.NewWithOutput(cmd.ErrOrStderr(), logLevel, logFormat)
			if err != nil {
				return err
			}
			log = l
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	root.AddCommand(newCheckCommand(), newDumpCommand(), newRunCommand())
	return root
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Assemble a program and report errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, _, err := assembleFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d instructions, %d labels, %d constants\n",
				args[0], prog.Len(), len(prog.Labels()), len(prog.Constants()))
			return nil
		},
	}
}

func newDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump FILE",
		Short: "Print the symbol table and instruction listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, _, err := assembleFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "labels:")
			for _, name := range prog.Labels() {
				v, _ := prog.Symbol(name)
				fmt.Fprintf(out, "  %-20s %s\n", name, v)
			}
			fmt.Fprintln(out, "constants:")
			for _, name := range prog.Constants() {
				v, _ := prog.Symbol(name)
				fmt.Fprintf(out, "  %-20s %s\n", name, v)
			}
			fmt.Fprintln(out, "instructions:")
			for pc, ins := range prog.Instructions {
				fmt.Fprintf(out, "  %4d  line %-5d %s\n", pc, ins.Line+1, ins)
			}
			return nil
		},
	}
}

func newRunCommand() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a program for a number of ticks without a display",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.words, "words", cpu.AddressSpace, "memory size in 32-bit words")
	f.IntVar(&opts.ticks, "ticks", 1, "number of Execute passes")
	f.IntVar(&opts.stepLimit, "step-limit", cpu.DefaultStepLimit, "instruction budget per pass")
	f.StringVar(&opts.restore, "restore", "", "restore memory from a snapshot before running")
	f.StringVar(&opts.save, "save", "", "save memory to a snapshot after running")
	f.StringVar(&opts.screenshot, "screenshot", "", "write the framebuffer to a PNG file")
	f.IntVar(&opts.width, "width", host.ScreenWidth, "framebuffer width in pixels")
	f.IntVar(&opts.height, "height", host.ScreenHeight, "framebuffer height in pixels")
	f.IntVar(&opts.scale, "scale", 1, "screenshot scale factor")
	f.StringSliceVar(&opts.peek, "peek", nil, "print the word at ADDR after running (repeatable)")
	return cmd
}

func runProgram(cmd *cobra.Command, path string, opts runOptions) error {
	if opts.words <= 0 || opts.words > cpu.AddressSpace {
		return fmt.Errorf("--words must be between 1 and %d", cpu.AddressSpace)
	}
	peeks, err := parseAddresses(opts.peek)
	if err != nil {
		return err
	}

	source, err := readSource(path)
	if err != nil {
		return err
	}
	vm := limit.New(limit.WithLogger(log), limit.WithStepLimit(opts.stepLimit))
	if err := vm.Load(source); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	mem := cpu.NewMemory(opts.words)
	if opts.restore != "" {
		meta, err := snapshot.RestoreFile(opts.restore, mem)
		if err != nil {
			return fmt.Errorf("restore %q: %w", opts.restore, err)
		}
		if meta.SourceSHA256 != snapshot.SourceHash(source) {
			log.WithField("snapshot", opts.restore).Warn("snapshot was saved from a different program")
		}
	}

	runner := host.NewRunner(vm, mem, nil)
	for i := 0; i < opts.ticks; i++ {
		if err := runner.Tick(); err != nil {
			return fmt.Errorf("tick %d: %w", i, err)
		}
	}
	log.WithFields(logrus.Fields{
		"ticks":     runner.Ticks(),
		"exhausted": runner.Exhausted(),
	}).Info("run complete")

	out := cmd.OutOrStdout()
	for _, addr := range peeks {
		word, ok := runner.Peek(addr)
		if !ok {
			return fmt.Errorf("peek address %d outside memory", addr)
		}
		fmt.Fprintf(out, "[%d] = %d (0x%08X)\n", addr, int32(word), word)
	}

	if opts.screenshot != "" {
		img := mem.FramebufferImage(opts.width, opts.height)
		if err := host.SaveScreenshot(opts.screenshot, img, opts.scale); err != nil {
			return fmt.Errorf("screenshot: %w", err)
		}
	}
	if opts.save != "" {
		meta := snapshot.Meta{SourceSHA256: snapshot.SourceHash(source), Ticks: runner.Ticks()}
		if err := snapshot.SaveFile(opts.save, mem, meta); err != nil {
			return fmt.Errorf("save %q: %w", opts.save, err)
		}
	}
	return nil
}

func assembleFile(path string) (*cpu.Program, string, error) {
	source, err := readSource(path)
	if err != nil {
		return nil, "", err
	}
	prog, err := asm.Assemble(source)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return prog, source, nil
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input file %q: %w", path, err)
	}
	return string(data), nil
}

func parseAddresses(values []string) ([]int, error) {
	addrs := make([]int, 0, len(values))
	for _, v := range values {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q", v)
		}
		addrs = append(addrs, int(n))
	}
	return addrs, nil
}
