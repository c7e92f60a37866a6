package color

// RainbowPreset is the preset index that puts the controller into its
// animated rainbow mode.
const RainbowPreset = 0

// MaxPreset is the highest preset index the controller accepts.
const MaxPreset = 7

// PresetColor describes one of the controller's canned colours.
type PresetColor struct {
	Index   int
	Name    string
	Preview string // swatch shown to the user
	Output  RGB    // what the firmware actually drives; zero for rainbow
}

var presets = []PresetColor{
	{Index: 0, Name: "rainbow", Preview: "#FFFFFF"},
	{Index: 1, Name: "red", Preview: "#FF0000", Output: RGB{255, 0, 0}},
	{Index: 2, Name: "orange", Preview: "#FFA500", Output: RGB{255, 140, 0}},
	{Index: 3, Name: "yellow", Preview: "#FFFF00", Output: RGB{255, 255, 0}},
	{Index: 4, Name: "green", Preview: "#00FF00", Output: RGB{0, 255, 0}},
	{Index: 5, Name: "cyan", Preview: "#00FFFF", Output: RGB{0, 128, 128}},
	{Index: 6, Name: "blue", Preview: "#0000FF", Output: RGB{0, 0, 255}},
	{Index: 7, Name: "purple", Preview: "#800080", Output: RGB{128, 0, 128}},
}

// Presets returns all preset colours ordered by index.
func Presets() []PresetColor {
	out := make([]PresetColor, len(presets))
	copy(out, presets)
	return out
}

// Preset looks up a preset by index.
func Preset(index int) (PresetColor, bool) {
	if index < 0 || index > MaxPreset {
		return PresetColor{}, false
	}
	return presets[index], true
}

// Wheel returns the colour at pos on the firmware's 256-step rainbow wheel.
func Wheel(pos byte) RGB {
	p := 255 - int(pos)
	switch {
	case p < 85:
		return RGB{R: 255 - p*3, G: 0, B: p * 3}
	case p < 170:
		p -= 85
		return RGB{R: 0, G: p * 3, B: 255 - p*3}
	default:
		p -= 170
		return RGB{R: p * 3, G: 255 - p*3, B: 0}
	}
}
