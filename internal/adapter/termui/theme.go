package termui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme colors the terminal board. Colors should stay inside the xterm 256 palette.
type Theme struct {
	Name           string
	SquareLight    tcell.Color
	SquareDark     tcell.Color
	SquareSelected tcell.Color
	SquareLastMove tcell.Color
	White          tcell.Color
	Black          tcell.Color
	Rank           tcell.Color
	File           tcell.Color
	Title          tcell.Color
	Msg            tcell.Color
	Error          tcell.Color
	Score          tcell.Color
}

// LookupTheme returns the built-in theme with the given name.
func LookupTheme(name string) (Theme, error) {
	if name == "" {
		return ThemeBasic, nil
	}
	for _, t := range builtinThemes {
		if t.Name == name {
			return t, nil
		}
	}
	return Theme{}, fmt.Errorf("theme: no theme named %q", name)
}

// ThemeBasic is the default theme
var ThemeBasic = Theme{
	Name:           "basic",
	SquareLight:    tcell.Color230,
	SquareDark:     tcell.Color188,
	SquareSelected: tcell.Color226,
	SquareLastMove: tcell.Color223,
	White:          tcell.Color232,
	Black:          tcell.Color232,
	Rank:           tcell.Color247,
	File:           tcell.Color247,
	Title:          tcell.ColorDefault,
	Msg:            tcell.Color45,
	Error:          tcell.Color160,
	Score:          tcell.Color247,
}

// ThemeGreen mirrors the classic green/cream board.
var ThemeGreen = Theme{
	Name:           "green",
	SquareLight:    tcell.Color230,
	SquareDark:     tcell.Color107,
	SquareSelected: tcell.Color221,
	SquareLastMove: tcell.Color186,
	White:          tcell.Color232,
	Black:          tcell.Color232,
	Rank:           tcell.Color245,
	File:           tcell.Color245,
	Title:          tcell.ColorDefault,
	Msg:            tcell.Color35,
	Error:          tcell.Color160,
	Score:          tcell.Color245,
}

var builtinThemes = []Theme{ThemeBasic, ThemeGreen}
