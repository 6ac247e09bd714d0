package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
)

func TestDrawFrame(t *testing.T) {
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	defer s.Fini()
	s.SetSize(2, 1)

	// 2x2 framebuffer: red over blue on the left, green over black on the right
	pix := []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 0, 0, 0, 255,
	}
	d := &termDisplay{screen: s, width: 2, height: 2}
	if err := d.UpdateFrame(pix); err != nil {
		t.Fatal(err)
	}

	r, _, style, _ := s.GetContent(0, 0)
	if r != upperHalfBlock {
		t.Errorf("expected half block, got %q", r)
	}
	fg, bg, _ := style.Decompose()
	if fg != tcell.NewRGBColor(255, 0, 0) {
		t.Errorf("left top: expected red, got %v", fg)
	}
	if bg != tcell.NewRGBColor(0, 0, 255) {
		t.Errorf("left bottom: expected blue, got %v", bg)
	}

	_, _, style, _ = s.GetContent(1, 0)
	fg, bg, _ = style.Decompose()
	if fg != tcell.NewRGBColor(0, 255, 0) {
		t.Errorf("right top: expected green, got %v", fg)
	}
	if bg != tcell.NewRGBColor(0, 0, 0) {
		t.Errorf("right bottom: expected black, got %v", bg)
	}
}

func TestPixelColorOutOfRange(t *testing.T) {
	if c := pixelColor([]byte{1, 2, 3, 4}, 1, 0, 1); c != tcell.ColorBlack {
		t.Errorf("expected black for a missing pixel, got %v", c)
	}
}

func TestOpenLogDefault(t *testing.T) {
	l, err := openLog("")
	if err != nil {
		t.Fatal(err)
	}
	if !l.IsLevelEnabled(logrus.PanicLevel) || l.IsLevelEnabled(logrus.FatalLevel) {
		t.Error("expected only panic-level logging")
	}
}
