package forecast

import "fmt"

// baseStylePrompt defines the consistent visual style for all generated banners.
const baseStylePrompt = `Serene watercolor panorama of the Singapore skyline seen across Marina Bay.
Tropical trees in the foreground, distant city towers in soft haze.
Style: impressionistic watercolor, soft gradients, peaceful and minimal.
Wide panoramic composition suitable for a website header banner.
No text, no people, no logos.`

// categoryPrompts maps each category to its sky and light description.
var categoryPrompts = map[Category]string{
	CategoryClear:        "Bright tropical sunshine, clear blue sky, crisp reflections on the water.",
	CategoryPartlyCloudy: "Puffy cumulus clouds drifting across a blue sky, patches of sun on the towers.",
	CategoryCloudy:       "Overcast grey sky, soft diffused light, muted colours.",
	CategoryStorm:        "Towering dark thunderclouds, distant lightning, dramatic heavy atmosphere.",
	CategoryRain:         "Tropical rain shower falling, wet glistening streets, grey sky.",
	CategoryHaze:         "Thick smoky haze softening the skyline, pale orange sun disc.",
	CategoryWind:         "Windswept palms bending, fast moving clouds, choppy water.",
	CategoryGeneric:      "Mixed sun and cloud, warm humid tropical afternoon.",
}

// BuildBannerPrompt creates the image generation prompt for a category.
func BuildBannerPrompt(c Category) string {
	desc, ok := categoryPrompts[c]
	if !ok {
		desc = categoryPrompts[CategoryGeneric]
	}
	return fmt.Sprintf("%s\n\nWeather: %s", baseStylePrompt, desc)
}
