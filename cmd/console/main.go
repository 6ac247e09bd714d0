package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"limit/pkg/cpu"
	"limit/pkg/host"
	"limit/pkg/limit"
	"limit/pkg/logging"
)

const upperHalfBlock = '▀'

// termDisplay renders the framebuffer with one character cell per two
// vertically stacked pixels, scaled down to fit the terminal.
type termDisplay struct {
	screen        tcell.Screen
	width, height int
}

func (d *termDisplay) Size() (int, int) {
	return d.width, d.height
}

func (d *termDisplay) UpdateFrame(pix []byte) error {
	drawFrame(d.screen, pix, d.width, d.height)
	d.screen.Show()
	return nil
}

func drawFrame(s tcell.Screen, pix []byte, width, height int) {
	cols, rows := s.Size()
	if cols <= 0 || rows <= 0 || width <= 0 || height <= 0 {
		return
	}
	for y := 0; y < rows; y++ {
		top := (y * 2) * height / (rows * 2)
		bottom := (y*2 + 1) * height / (rows * 2)
		for x := 0; x < cols; x++ {
			px := x * width / cols
			style := tcell.StyleDefault.
				Foreground(pixelColor(pix, px, top, width)).
				Background(pixelColor(pix, px, bottom, width))
			s.SetContent(x, y, upperHalfBlock, nil, style)
		}
	}
}

func pixelColor(pix []byte, x, y, width int) tcell.Color {
	i := (y*width + x) * 4
	if i+2 >= len(pix) {
		return tcell.ColorBlack
	}
	return tcell.NewRGBColor(int32(pix[i]), int32(pix[i+1]), int32(pix[i+2]))
}

type options struct {
	width, height int
	words         int
	stepLimit     int
	logFile       string
}

func main() {
	opts := options{}
	cmd := &cobra.Command{
		Use:          "limit-console FILE",
		Short:        "Run a Limit program in the terminal",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.width, "width", host.ScreenWidth, "framebuffer width in pixels")
	f.IntVar(&opts.height, "height", host.ScreenHeight, "framebuffer height in pixels")
	f.IntVar(&opts.words, "words", cpu.AddressSpace, "memory size in 32-bit words")
	f.IntVar(&opts.stepLimit, "step-limit", cpu.DefaultStepLimit, "instruction budget per tick")
	f.StringVar(&opts.logFile, "log-file", "", "write logs to this file (the terminal is taken by the display)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(path string, opts options) error {
	log, err := openLog(opts.logFile)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}
	vm := limit.New(limit.WithLogger(log), limit.WithStepLimit(opts.stepLimit))
	if err := vm.Load(string(source)); err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	display := &termDisplay{screen: screen, width: opts.width, height: opts.height}
	runner := host.NewRunner(vm, cpu.NewMemory(opts.words), display)

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		for {
			switch ev := screen.PollEvent().(type) {
			case nil:
				return
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		}
	}()

	ticker := time.NewTicker(host.DefaultInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			if _, err := runner.Frame(now.Sub(last)); err != nil {
				log.WithError(err).Warn("tick failed")
			}
			last = now
		case <-quit:
			log.WithField("ticks", runner.Ticks()).Info("console host stopped")
			return nil
		}
	}
}

func openLog(path string) (*logrus.Logger, error) {
	if path == "" {
		l, err := logging.New("error", "text")
		if err != nil {
			return nil, err
		}
		l.SetLevel(logrus.PanicLevel)
		return l, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return logging.NewWithOutput(f, "info", "text")
}
