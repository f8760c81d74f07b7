package forecast

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Category
	}{
		{name: "fair day", text: "Fair (Day)", want: CategoryClear},
		{name: "sunny", text: "Sunny intervals", want: CategoryClear},
		{name: "partly cloudy night", text: "Partly Cloudy (Night)", want: CategoryPartlyCloudy},
		{name: "partly cloud shorthand", text: "partly cloud", want: CategoryPartlyCloudy},
		{name: "cloudy", text: "Cloudy", want: CategoryCloudy},
		{name: "overcast", text: "Overcast skies", want: CategoryCloudy},
		{name: "thundery showers", text: "Thundery Showers", want: CategoryStorm},
		{name: "heavy thunder", text: "Heavy Thunder", want: CategoryStorm},
		{name: "light showers", text: "Light Showers", want: CategoryRain},
		{name: "moderate rain", text: "Moderate Rain", want: CategoryRain},
		{name: "hazy", text: "Hazy", want: CategoryHaze},
		{name: "slightly haze", text: "Slightly haze", want: CategoryHaze},
		{name: "windy", text: "Windy", want: CategoryWind},
		{name: "mist falls through", text: "Mist", want: CategoryGeneric},
		{name: "empty", text: "", want: CategoryGeneric},
		{name: "whitespace", text: "   ", want: CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			if got.Category != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got.Category, tt.want)
			}
		})
	}
}

func TestClassify_RuleOrder(t *testing.T) {
	// Every text containing "partly cloudy" also contains "cloudy"; the
	// partly cloudy rule must still win.
	texts := []string{
		"Partly Cloudy",
		"cloudy then partly cloudy",
		"PARTLY CLOUDY (DAY)",
		"Partly Cloudy, cloudy later",
	}
	for _, text := range texts {
		if got := Classify(text); got.Category != CategoryPartlyCloudy {
			t.Errorf("Classify(%q) = %s, want partly cloudy", text, got.Category)
		}
	}

	// Earlier rules beat later ones regardless of specificity.
	if got := Classify("Fair and windy"); got.Category != CategoryClear {
		t.Errorf("fair should beat windy, got %s", got.Category)
	}
	if got := Classify("Cloudy with thundery showers"); got.Category != CategoryCloudy {
		t.Errorf("cloudy should beat thundery, got %s", got.Category)
	}
}

func TestClassify_Styles(t *testing.T) {
	tests := []struct {
		text  string
		emoji string
		color string
	}{
		{"Fair", "☀️", "#FFD700"},
		{"Partly Cloudy", "⛅", "#87CEEB"},
		{"Cloudy", "☁️", "#708090"},
		{"Thundery Showers", "⛈️", "#4B0082"},
		{"Showers", "🌧️", "#4169E1"},
		{"Hazy", "🌫️", "#D3D3D3"},
		{"Windy", "💨", "#00CED1"},
		{"", "🌤️", "#32CD32"},
	}
	for _, tt := range tests {
		got := Classify(tt.text)
		if got.Emoji != tt.emoji || got.Color != tt.color {
			t.Errorf("Classify(%q) = (%s, %s), want (%s, %s)", tt.text, got.Emoji, got.Color, tt.emoji, tt.color)
		}
	}
}

func TestCategories(t *testing.T) {
	cats := Categories()
	if len(cats) != 8 {
		t.Fatalf("len(Categories()) = %d, want 8", len(cats))
	}
	if cats[len(cats)-1] != CategoryGeneric {
		t.Errorf("last category = %s, want generic", cats[len(cats)-1])
	}
	for _, c := range cats {
		if c.Readable() == "" {
			t.Errorf("category %s has no caption", c)
		}
	}
}

func TestDominant(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  Category
	}{
		{"empty", nil, CategoryGeneric},
		{"majority", []string{"Fair (Day)", "Light Rain", "Showers", "Moderate Rain"}, CategoryRain},
		{"tie goes to first seen", []string{"Cloudy", "Hazy", "Hazy", "Cloudy"}, CategoryCloudy},
		{"single", []string{"Thundery Showers"}, CategoryStorm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dominant(tt.texts); got != tt.want {
				t.Errorf("Dominant = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, ok := ParseCategory(string(c))
		if !ok || got != c {
			t.Errorf("ParseCategory(%q) = %q, %v", c, got, ok)
		}
	}
	if _, ok := ParseCategory("blizzard"); ok {
		t.Error("ParseCategory(blizzard) = ok")
	}
}
