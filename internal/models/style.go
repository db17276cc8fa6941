package models

// Style describes one cartoon transformation preset.
type Style struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	Prompt         string `json:"-"`
	NegativePrompt string `json:"-"`
	LoadingMessage string `json:"loadingMessage"`
}

var styleCatalog = []Style{
	{
		ID:             "classic-cartoon",
		Label:          "Classic Cartoon",
		Prompt:         "a classic hand-drawn cartoon portrait of the person, bold outlines, flat vibrant colors, saturday morning animation style",
		NegativePrompt: "photorealistic, blurry, distorted face, extra limbs, text, watermark",
		LoadingMessage: "Inking the outlines...",
	},
	{
		ID:             "anime",
		Label:          "Anime",
		Prompt:         "an anime style portrait of the person, cel shading, expressive eyes, clean line art, studio quality",
		NegativePrompt: "photorealistic, lowres, bad anatomy, deformed, text, watermark",
		LoadingMessage: "Adding sparkle to the eyes...",
	},
	{
		ID:             "comic-book",
		Label:          "Comic Book",
		Prompt:         "a comic book illustration of the person, halftone shading, dynamic ink lines, bold primary colors",
		NegativePrompt: "photorealistic, muted colors, blurry, deformed, text, watermark",
		LoadingMessage: "Printing the halftones...",
	},
	{
		ID:             "pixel-art",
		Label:          "Pixel Art",
		Prompt:         "a 16-bit pixel art portrait of the person, limited palette, crisp pixels, retro game sprite",
		NegativePrompt: "smooth gradients, photorealistic, blurry, text, watermark",
		LoadingMessage: "Placing pixels one by one...",
	},
	{
		ID:             "watercolor",
		Label:          "Watercolor",
		Prompt:         "a soft watercolor caricature of the person, loose brush strokes, paper texture, pastel palette",
		NegativePrompt: "photorealistic, harsh lines, oversaturated, text, watermark",
		LoadingMessage: "Letting the paint dry...",
	},
}

// Styles returns a copy of the style catalog.
func Styles() []Style {
	out := make([]Style, len(styleCatalog))
	copy(out, styleCatalog)
	return out
}

// StyleByID looks up a style in the catalog.
func StyleByID(id string) (Style, bool) {
	for _, s := range styleCatalog {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}
