package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"limit/pkg/cpu"
	"limit/pkg/host"
	"limit/pkg/limit"
	"limit/pkg/logging"
)

type Game struct {
	runner *host.Runner
	path   string
	log    logrus.FieldLogger

	width, height int
	screenImg     *ebiten.Image // reused framebuffer canvas
	pixels        []byte

	lastUpdate time.Time
	overlay    bool
	lastErr    error
}

func (g *Game) Size() (int, int) {
	return g.width, g.height
}

func (g *Game) UpdateFrame(pix []byte) error {
	g.pixels = pix
	return nil
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		g.overlay = !g.overlay
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		g.reload()
	}

	now := time.Now()
	dt := now.Sub(g.lastUpdate)
	g.lastUpdate = now

	if _, err := g.runner.Frame(dt); err != nil {
		// the next frame runs the same program again
		g.lastErr = err
	}
	return nil
}

// reload re-reads the source file. A program that fails to assemble leaves
// the running one in place.
func (g *Game) reload() {
	source, err := os.ReadFile(g.path)
	if err != nil {
		g.lastErr = err
		return
	}
	if err := g.runner.VM.Load(string(source)); err != nil {
		g.lastErr = err
		return
	}
	g.lastErr = nil
	g.log.WithField("file", g.path).Info("program reloaded")
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.screenImg == nil {
		g.screenImg = ebiten.NewImage(g.width, g.height)
	}
	if g.pixels != nil {
		g.screenImg.WritePixels(g.pixels)
	}
	screen.DrawImage(g.screenImg, nil)

	if !g.overlay {
		return
	}
	status := fmt.Sprintf("TPS %.0f  ticks %d  exhausted %d", ebiten.ActualTPS(), g.runner.Ticks(), g.runner.Exhausted())
	if g.lastErr != nil {
		status += "\n" + g.lastErr.Error()
	}
	ebitenutil.DebugPrintAt(screen, status, 4, 4)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}

type options struct {
	width, height int
	scale         int
	words         int
	stepLimit     int
	overlay       bool
	logLevel      string
}

func main() {
	opts := options{}
	cmd := &cobra.Command{
		Use:          "limit-desktop FILE",
		Short:        "Run a Limit program in a window",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.width, "width", host.ScreenWidth, "framebuffer width in pixels")
	f.IntVar(&opts.height, "height", host.ScreenHeight, "framebuffer height in pixels")
	f.IntVar(&opts.scale, "scale", 2, "window scale factor")
	f.IntVar(&opts.words, "words", cpu.AddressSpace, "memory size in 32-bit words")
	f.IntVar(&opts.stepLimit, "step-limit", cpu.DefaultStepLimit, "instruction budget per tick")
	f.BoolVar(&opts.overlay, "overlay", false, "show the status overlay (toggle with F1)")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(path string, opts options) error {
	log, err := logging.New(opts.logLevel, "text")
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

	game := &Game{
		path:       path,
		log:        log,
		width:      opts.width,
		height:     opts.height,
		overlay:    opts.overlay,
		lastUpdate: time.Now(),
	}
	game.runner = host.NewRunner(vm, cpu.NewMemory(opts.words), game)

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(opts.width*opts.scale, opts.height*opts.scale)
	ebiten.SetWindowTitle("Limit")

	return ebiten.RunGame(game)
}
