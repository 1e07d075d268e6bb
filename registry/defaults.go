package registry

// registerDefaults registers the built-in rc setting table.
//
// The meta.* settings are parents: changing one re-derives the children
// listed on it. Keep derivations pure functions of the parent value.
func registerDefaults(r *Registry) {
	// Meta settings applied across categories.
	r.MustRegister(Setting{
		Key:         "meta.color",
		Type:        TypeColor,
		Default:     "black",
		Description: "Base color propagated to axes edges, ticks, grid lines, and labels",
		Children: []Derivation{
			{Key: "axes.edgecolor", Derive: identity},
			{Key: "tick.color", Derive: identity},
			{Key: "grid.color", Derive: identity},
			{Key: "label.color", Derive: identity},
		},
	})

	r.MustRegister(Setting{
		Key:         "meta.linewidth",
		Type:        TypeFloat,
		Default:     0.6,
		Description: "Base line width propagated to axes edges, tick marks, and grid lines",
		Minimum:     MinValue(0),
		Children: []Derivation{
			{Key: "axes.linewidth", Derive: identity},
			{Key: "grid.linewidth", Derive: scale(0.9)},
			{Key: "tick.width", Derive: identity},
		},
	})

	// Font settings. The small and large sizes track the base size.
	r.MustRegister(Setting{
		Key:         "font.size",
		Type:        TypeFloat,
		Default:     9.0,
		Description: "Base font size in points",
		Minimum:     MinValue(1),
		Maximum:     MaxValue(72),
		Children: []Derivation{
			{Key: "font.smallsize", Derive: offset(-1)},
			{Key: "font.largesize", Derive: offset(1.4)},
		},
	})
	r.MustRegister(Setting{
		Key:         "font.smallsize",
		Type:        TypeFloat,
		Default:     8.0,
		Description: "Font size for tick labels and annotations",
		Minimum:     MinValue(1),
	})
	r.MustRegister(Setting{
		Key:         "font.largesize",
		Type:        TypeFloat,
		Default:     10.4,
		Description: "Font size for axis titles",
		Minimum:     MinValue(1),
	})
	r.MustRegister(Setting{
		Key:         "font.family",
		Type:        TypeEnum,
		Default:     "sans-serif",
		Description: "Font family",
		Enum:        []string{"sans-serif", "serif", "monospace"},
	})

	// Axes settings.
	r.MustRegister(Setting{
		Key:         "axes.edgecolor",
		Type:        TypeColor,
		Default:     "black",
		Description: "Axes spine color",
	})
	r.MustRegister(Setting{
		Key:         "axes.linewidth",
		Type:        TypeFloat,
		Default:     0.6,
		Description: "Axes spine width in points",
		Minimum:     MinValue(0),
	})
	r.MustRegister(Setting{
		Key:         "axes.inbounds",
		Type:        TypeBool,
		Default:     true,
		Description: "Restrict axis limits to in-bounds data",
	})

	// Grid settings.
	r.MustRegister(Setting{
		Key:         "grid.labelpad",
		Type:        TypeFloat,
		Default:     4.0,
		Description: "Padding between gridline labels and the axes in points",
		Minimum:     MinValue(0),
	})
	r.MustRegister(Setting{
		Key:         "grid.color",
		Type:        TypeColor,
		Default:     "black",
		Description: "Gridline color",
	})
	r.MustRegister(Setting{
		Key:         "grid.linewidth",
		Type:        TypeFloat,
		Default:     0.54,
		Description: "Gridline width in points",
		Minimum:     MinValue(0),
	})
	r.MustRegister(Setting{
		Key:         "grid.linestyle",
		Type:        TypeEnum,
		Default:     "-",
		Description: "Gridline style",
		Enum:        []string{"-", "--", ":", "-."},
	})
	r.MustRegister(Setting{
		Key:         "grid.alpha",
		Type:        TypeFloat,
		Default:     0.11,
		Description: "Gridline transparency",
		Minimum:     MinValue(0),
		Maximum:     MaxValue(1),
	})

	// Tick settings. Minor tick geometry tracks the major geometry.
	r.MustRegister(Setting{
		Key:         "tick.len",
		Type:        TypeFloat,
		Default:     4.0,
		Description: "Major tick length in points",
		Minimum:     MinValue(0),
		Children: []Derivation{
			{Key: "tick.lenminor", Derive: scale(0.5)},
		},
	})
	r.MustRegister(Setting{
		Key:         "tick.lenminor",
		Type:        TypeFloat,
		Default:     2.0,
		Description: "Minor tick length in points",
		Minimum:     MinValue(0),
	})
	r.MustRegister(Setting{
		Key:         "tick.width",
		Type:        TypeFloat,
		Default:     0.6,
		Description: "Major tick width in points",
		Minimum:     MinValue(0),
		Children: []Derivation{
			{Key: "tick.widthminor", Derive: scale(0.8)},
		},
	})
	r.MustRegister(Setting{
		Key:         "tick.widthminor",
		Type:        TypeFloat,
		Default:     0.48,
		Description: "Minor tick width in points",
		Minimum:     MinValue(0),
	})
	r.MustRegister(Setting{
		Key:         "tick.color",
		Type:        TypeColor,
		Default:     "black",
		Description: "Tick mark color",
	})
	r.MustRegister(Setting{
		Key:         "tick.direction",
		Type:        TypeEnum,
		Default:     "out",
		Description: "Tick mark direction",
		Enum:        []string{"in", "out", "inout"},
	})

	// Label settings.
	r.MustRegister(Setting{
		Key:         "label.color",
		Type:        TypeColor,
		Default:     "black",
		Description: "Axis label color",
	})
	r.MustRegister(Setting{
		Key:         "label.weight",
		Type:        TypeEnum,
		Default:     "normal",
		Description: "Axis label font weight",
		Enum:        []string{"normal", "bold", "light"},
	})

	// Colormap settings.
	r.MustRegister(Setting{
		Key:         "cmap.sequential",
		Type:        TypeString,
		Default:     "viridis",
		Description: "Default sequential colormap name",
		Pattern:     `^[A-Za-z][A-Za-z0-9]*(_r)?$`,
	})
	r.MustRegister(Setting{
		Key:         "cmap.diverging",
		Type:        TypeString,
		Default:     "RdBu_r",
		Description: "Default diverging colormap name",
		Pattern:     `^[A-Za-z][A-Za-z0-9]*(_r)?$`,
	})
	r.MustRegister(Setting{
		Key:         "cmap.levels",
		Type:        TypeInt,
		Default:     11,
		Description: "Default number of colormap levels",
		Minimum:     MinValue(2),
		Maximum:     MaxValue(256),
	})
	r.MustRegister(Setting{
		Key:         "cmap.discrete",
		Type:        TypeBool,
		Default:     true,
		Description: "Use discrete colormap levels for contour-like plots",
	})
	r.MustRegister(Setting{
		Key:         "cmap.robust",
		Type:        TypeBool,
		Default:     false,
		Description: "Use robust percentiles for automatic colormap limits",
	})
	r.MustRegister(Setting{
		Key:         "cmap.inbounds",
		Type:        TypeBool,
		Default:     true,
		Description: "Restrict automatic colormap limits to in-bounds data",
	})
	r.MustRegister(Setting{
		Key:         "cmap.autodiverging",
		Type:        TypeBool,
		Default:     true,
		Description: "Switch to the diverging colormap when data crosses zero",
	})

	// Image settings.
	r.MustRegister(Setting{
		Key:         "image.aspect",
		Type:        TypeEnum,
		Default:     "equal",
		Description: "Default image aspect ratio mode",
		Enum:        []string{"equal", "auto"},
	})

	// Line and marker settings.
	r.MustRegister(Setting{
		Key:         "lines.linewidth",
		Type:        TypeFloat,
		Default:     1.5,
		Description: "Plotted line width in points",
		Minimum:     MinValue(0),
	})
	r.MustRegister(Setting{
		Key:         "lines.markersize",
		Type:        TypeFloat,
		Default:     6.0,
		Description: "Marker size in points",
		Minimum:     MinValue(0),
	})
	r.MustRegister(Setting{
		Key:         "contour.linewidth",
		Type:        TypeFloat,
		Default:     0.3,
		Description: "Contour line width in points",
		Minimum:     MinValue(0),
	})
	r.MustRegister(Setting{
		Key:         "errorbar.capsize",
		Type:        TypeFloat,
		Default:     3.0,
		Description: "Error bar cap size in points",
		Minimum:     MinValue(0),
	})

	// Formatter settings.
	r.MustRegister(Setting{
		Key:         "formatter.timerotation",
		Type:        TypeFloat,
		Default:     90.0,
		Description: "Rotation for datetime tick labels in degrees",
		Minimum:     MinValue(-180),
		Maximum:     MaxValue(180),
	})
	r.MustRegister(Setting{
		Key:         "formatter.zerotrim",
		Type:        TypeBool,
		Default:     true,
		Description: "Trim trailing zeros from tick labels",
	})

	// Style settings.
	r.MustRegister(Setting{
		Key:         "style.negcolor",
		Type:        TypeColor,
		Default:     "blue",
		Description: "Color for negative bars and shading",
	})
	r.MustRegister(Setting{
		Key:         "style.poscolor",
		Type:        TypeColor,
		Default:     "red",
		Description: "Color for positive bars and shading",
	})
	r.MustRegister(Setting{
		Key:         "style.autoformat",
		Type:        TypeBool,
		Default:     true,
		Description: "Apply labels and units from data containers automatically",
	})
	r.MustRegister(Setting{
		Key:         "style.cycle",
		Type:        TypeStringList,
		Default:     []string{"#0072b2", "#e69f00", "#009e73", "#cc79a7", "#56b4e9", "#d55e00"},
		Description: "Property cycle colors",
	})
}

func identity(parent any) any { return parent }

func scale(factor float64) func(any) any {
	return func(parent any) any {
		return parent.(float64) * factor
	}
}

func offset(delta float64) func(any) any {
	return func(parent any) any {
		return parent.(float64) + delta
	}
}
