package models

// Color identifies one entry of the fixed palette.
type Color string

const (
	ColorRed    Color = "RED"
	ColorBlue   Color = "BLUE"
	ColorGreen  Color = "GREEN"
	ColorYellow Color = "YELLOW"
	ColorPurple Color = "PURPLE"
	ColorOrange Color = "ORANGE"
	ColorTeal   Color = "TEAL"
	ColorPink   Color = "PINK"
)

// Palette is the fixed, order-significant set of assignable colors.
// Index 0 is the default fallback color.
var Palette = []Color{
	ColorRed,
	ColorBlue,
	ColorGreen,
	ColorYellow,
	ColorPurple,
	ColorOrange,
	ColorTeal,
	ColorPink,
}

// ColorByIndex returns the palette color at i, cycling past the end.
// Used for legacy snapshots that stored names without colors.
func ColorByIndex(i int) Color {
	if i < 0 {
		i = 0
	}
	return Palette[i%len(Palette)]
}

// IsPaletteColor reports whether c is one of the palette entries.
func IsPaletteColor(c Color) bool {
	for _, p := range Palette {
		if p == c {
			return true
		}
	}
	return false
}
