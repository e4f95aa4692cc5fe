package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	NoteEmpty  rune // · slot still to play
	NoteFilled rune // ● slot played
	Locked     rune // gate header while locked
	Unlocked   rune
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			NoteEmpty:  '·',
			NoteFilled: '●',
			Locked:     '🔒',
			Unlocked:   '🔓',
		},
	}
}

// Default is the theme built from the shipped dusk palette.
func Default() *Theme {
	return New(MustBuiltin("dusk"))
}

// Color roles mapped to palette indices
const (
	RoleBG = iota
	RoleSurface
	RoleMuted
	RoleFGDim
	RoleFG
	RoleAccent
	RoleCursor
	RoleActive
	RoleWarning
	RoleError
	RoleSuccess
)

// Style helpers

func (t *Theme) BG() lipgloss.Color      { return t.role(RoleBG) }
func (t *Theme) Surface() lipgloss.Color { return t.role(RoleSurface) }
func (t *Theme) Muted() lipgloss.Color   { return t.role(RoleMuted) }
func (t *Theme) FGDim() lipgloss.Color   { return t.role(RoleFGDim) }
func (t *Theme) FG() lipgloss.Color      { return t.role(RoleFG) }
func (t *Theme) Accent() lipgloss.Color  { return t.role(RoleAccent) }
func (t *Theme) Cursor() lipgloss.Color  { return t.role(RoleCursor) }
func (t *Theme) Active() lipgloss.Color  { return t.role(RoleActive) }
func (t *Theme) Warning() lipgloss.Color { return t.role(RoleWarning) }
func (t *Theme) Error() lipgloss.Color   { return t.role(RoleError) }
func (t *Theme) Success() lipgloss.Color { return t.role(RoleSuccess) }

func (t *Theme) role(i int) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Index(i))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
