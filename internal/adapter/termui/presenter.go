package termui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/park285/hotseat-chess/internal/controller"
	"github.com/park285/hotseat-chess/internal/msgcat"
	"github.com/park285/hotseat-chess/internal/obslog"
)

// Presenter draws the session on a terminal and turns mouse and key input into controller events.
type Presenter struct {
	screen  tcell.Screen
	theme   Theme
	catalog *msgcat.Catalog

	buttonDown bool
}

// Open takes over the real terminal.
func Open(theme Theme, cat *msgcat.Catalog) (*Presenter, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	return NewWithScreen(s, theme, cat)
}

// NewWithScreen initializes s and wraps it. Tests pass a simulation screen.
func NewWithScreen(s tcell.Screen, theme Theme, cat *msgcat.Catalog) (*Presenter, error) {
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	s.SetStyle(DefStyle)
	s.EnableMouse()
	s.HideCursor()
	s.Clear()
	return &Presenter{screen: s, theme: theme, catalog: cat}, nil
}

// Close restores the terminal.
func (p *Presenter) Close() error {
	if p == nil || p.screen == nil {
		return nil
	}
	p.screen.Fini()
	return nil
}

func (p *Presenter) Geometry() controller.Geometry { return boardGeometry }

func (p *Presenter) Render(v controller.View) error {
	render(p.screen, v, p.theme, p.catalog)
	return nil
}

// PollEvents drains every pending terminal event without blocking.
func (p *Presenter) PollEvents() []controller.Event {
	var out []controller.Event
	for p.screen.HasPendingEvent() {
		ev := p.screen.PollEvent()
		if ev == nil {
			break
		}
		if ce, ok := p.classify(ev); ok {
			out = append(out, ce)
		}
	}
	return out
}

func (p *Presenter) classify(ev tcell.Event) (controller.Event, bool) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		p.screen.Sync()
	case *tcell.EventMouse:
		down := ev.Buttons()&tcell.Button1 != 0
		pressed := down && !p.buttonDown
		p.buttonDown = down
		if pressed {
			x, y := ev.Position()
			return controller.Pick(x, y), true
		}
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return controller.Quit(), true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return controller.Quit(), true
			case 'r', 'R':
				return controller.Reset(), true
			case 'p', 'P':
				return controller.Export(), true
			}
		}
		obslog.L().Debug("termui_key_ignored", zap.String("key", ev.Name()))
	}
	return controller.Event{}, false
}
