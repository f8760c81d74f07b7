package forecast

import "strings"

// Category is the display category of a free-text forecast.
type Category string

const (
	CategoryClear        Category = "clear"
	CategoryPartlyCloudy Category = "partly_cloudy"
	CategoryCloudy       Category = "cloudy"
	CategoryStorm        Category = "storm"
	CategoryRain         Category = "rain"
	CategoryHaze         Category = "haze"
	CategoryWind         Category = "wind"
	CategoryGeneric      Category = "generic"
)

// Style is the emoji and colour used to display a category.
type Style struct {
	Category Category
	Emoji    string
	Color    string
}

type rule struct {
	keywords []string
	style    Style
}

// rules are checked in order and the first match wins. "cloudy" is a
// substring of "partly cloudy", so partly cloudy must stay ahead of it.
var rules = []rule{
	{[]string{"sunny", "fair"}, Style{CategoryClear, "☀️", "#FFD700"}},
	{[]string{"partly cloudy", "partly cloud"}, Style{CategoryPartlyCloudy, "⛅", "#87CEEB"}},
	{[]string{"cloudy", "overcast"}, Style{CategoryCloudy, "☁️", "#708090"}},
	{[]string{"thundery", "thunder"}, Style{CategoryStorm, "⛈️", "#4B0082"}},
	{[]string{"showers", "rain"}, Style{CategoryRain, "🌧️", "#4169E1"}},
	{[]string{"hazy", "haze"}, Style{CategoryHaze, "🌫️", "#D3D3D3"}},
	{[]string{"windy"}, Style{CategoryWind, "💨", "#00CED1"}},
}

// Generic is returned for empty or unrecognised forecast text.
var Generic = Style{CategoryGeneric, "🌤️", "#32CD32"}

// Classify maps forecast text such as "Partly Cloudy (Day)" to its display style.
func Classify(text string) Style {
	if strings.TrimSpace(text) == "" {
		return Generic
	}
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.style
			}
		}
	}
	return Generic
}

// Emoji is shorthand for Classify(text).Emoji.
func Emoji(text string) string {
	return Classify(text).Emoji
}

// Categories lists every category, including the generic fallback.
func Categories() []Category {
	cats := make([]Category, 0, len(rules)+1)
	for _, r := range rules {
		cats = append(cats, r.style.Category)
	}
	return append(cats, CategoryGeneric)
}

// Readable returns a human caption for a category.
func (c Category) Readable() string {
	switch c {
	case CategoryClear:
		return "Fair"
	case CategoryPartlyCloudy:
		return "Partly Cloudy"
	case CategoryCloudy:
		return "Cloudy"
	case CategoryStorm:
		return "Thundery Showers"
	case CategoryRain:
		return "Showers"
	case CategoryHaze:
		return "Hazy"
	case CategoryWind:
		return "Windy"
	default:
		return "Mixed"
	}
}

// ParseCategory maps a category name back to a Category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Dominant returns the most frequent category among texts. Ties go to the
// category seen first; no texts yields the generic category.
func Dominant(texts []string) Category {
	counts := make(map[Category]int)
	var order []Category
	for _, t := range texts {
		c := Classify(t).Category
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	best := CategoryGeneric
	bestCount := 0
	for _, c := range order {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}
