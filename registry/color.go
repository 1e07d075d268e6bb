package registry

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// namedColors maps the named colors accepted by color settings to their
// hex form. The renderer resolves "none" itself, so it passes through.
var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"blue":    "#0000ff",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"yellow":  "#ffff00",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"gray":    "#808080",
	"grey":    "#808080",
}

// normalizeColor validates a color string and returns it unchanged when
// valid. Accepted forms: #rgb, #rrggbb, a named color, or "none".
func normalizeColor(v string) (string, error) {
	lower := strings.ToLower(v)
	if lower == "none" {
		return "none", nil
	}
	if _, ok := namedColors[lower]; ok {
		return lower, nil
	}
	if strings.HasPrefix(v, "#") {
		hex := v
		// colorful.Hex only accepts the 6-digit form.
		if len(hex) == 4 {
			hex = fmt.Sprintf("#%c%c%c%c%c%c", hex[1], hex[1], hex[2], hex[2], hex[3], hex[3])
		}
		if _, err := colorful.Hex(hex); err != nil {
			return "", fmt.Errorf("invalid hex color %q", v)
		}
		return lower, nil
	}
	return "", fmt.Errorf("unknown color %q", v)
}

// ColorHex resolves a validated color value to its #rrggbb form.
// Returns ok=false for "none".
func ColorHex(v string) (string, bool) {
	lower := strings.ToLower(v)
	if lower == "none" {
		return "", false
	}
	if hex, ok := namedColors[lower]; ok {
		return hex, true
	}
	if len(lower) == 4 && lower[0] == '#' {
		return fmt.Sprintf("#%c%c%c%c%c%c", lower[1], lower[1], lower[2], lower[2], lower[3], lower[3]), true
	}
	return lower, true
}
