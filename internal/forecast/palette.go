package forecast

// Palette defines the colour scheme for a weather category in one theme.
type Palette struct {
	// Background is the main page background color
	Background string
	// Card is the background for cards/panels
	Card string
	// CardBorder is the card outline
	CardBorder string
	Text       string
	TextMuted  string
	// Accent is used for the active tab and header band
	Accent string
}

// DefaultPalette is the light fallback.
var DefaultPalette = Palette{
	Background: "#f4f7fb",
	Card:       "#ffffff",
	CardBorder: "#dde3ec",
	Text:       "#1f2933",
	TextMuted:  "#66788a",
	Accent:     "#32a852",
}

// DarkPalette is the dark fallback.
var DarkPalette = Palette{
	Background: "#0f0f1a",
	Card:       "#1a1a2e",
	CardBorder: "#2a2a4e",
	Text:       "#eeeeee",
	TextMuted:  "#8a8aa0",
	Accent:     "#4fc3f7",
}

// accents tint the header band per category; light and dark share them.
var accents = map[Category]string{
	CategoryClear:        "#e0a800",
	CategoryPartlyCloudy: "#4a9fd8",
	CategoryCloudy:       "#708090",
	CategoryStorm:        "#5b2a86",
	CategoryRain:         "#4169e1",
	CategoryHaze:         "#9a9a9a",
	CategoryWind:         "#00a6a6",
}

// darkBackgrounds deepen the page for the gloomier categories.
var darkBackgrounds = map[Category]string{
	CategoryStorm: "#0b0614",
	CategoryRain:  "#070b18",
	CategoryHaze:  "#141414",
}

// GetPalette returns the palette for the category of the current general
// forecast in the requested theme.
func GetPalette(c Category, dark bool) Palette {
	p := DefaultPalette
	if dark {
		p = DarkPalette
		if bg, ok := darkBackgrounds[c]; ok {
			p.Background = bg
		}
	}
	if accent, ok := accents[c]; ok {
		p.Accent = accent
	}
	return p
}
