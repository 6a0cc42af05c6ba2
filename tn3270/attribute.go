package tn3270

import "strings"

const (
	attrProtected   byte = 0x20
	attrNumeric     byte = 0x10
	attrDisplayMask byte = 0x0C
	attrModified    byte = 0x01
)

// Intensity is the display setting packed into bits 0x0C of an attribute byte. 0x00 and
// 0x04 are both normal display (they differ only in light pen detection), 0x08 is
// intensified and 0x0C is non-display.
type Intensity byte

const (
	IntensityNormal Intensity = iota
	IntensityHigh
	IntensityNonDisplay
)

func (i Intensity) String() string {
	switch i {
	case IntensityHigh:
		return "High"
	case IntensityNonDisplay:
		return "NonDisplay"
	default:
		return "Normal"
	}
}

// Highlighting values carry the code the host sends with SA and MF
type Highlighting byte

const (
	HighlightDefault    Highlighting = 0x00
	HighlightBlink      Highlighting = 0xF1
	HighlightReverse    Highlighting = 0xF2
	HighlightUnderscore Highlighting = 0xF4
)

func (h Highlighting) valid() bool {
	switch h {
	case HighlightDefault, HighlightBlink, HighlightReverse, HighlightUnderscore:
		return true
	}

	return false
}

func (h Highlighting) String() string {
	switch h {
	case HighlightBlink:
		return "Blink"
	case HighlightReverse:
		return "Reverse"
	case HighlightUnderscore:
		return "Underscore"
	default:
		return "Default"
	}
}

// Color values carry the code the host sends with SA and MF
type Color byte

const (
	ColorDefault   Color = 0x00
	ColorBlue      Color = 0xF1
	ColorRed       Color = 0xF2
	ColorPink      Color = 0xF3
	ColorGreen     Color = 0xF4
	ColorTurquoise Color = 0xF5
	ColorYellow    Color = 0xF6
	ColorWhite     Color = 0xF7
)

func (c Color) valid() bool {
	return c == ColorDefault || (c >= ColorBlue && c <= ColorWhite)
}

var colorNames = map[Color]string{
	ColorDefault:   "Default",
	ColorBlue:      "Blue",
	ColorRed:       "Red",
	ColorPink:      "Pink",
	ColorGreen:     "Green",
	ColorTurquoise: "Turquoise",
	ColorYellow:    "Yellow",
	ColorWhite:     "White",
}

func (c Color) String() string {
	name, ok := colorNames[c]
	if !ok {
		return "Default"
	}

	return name
}

// FieldAttribute is the decoded form of a 3270 attribute byte, plus the extended
// highlighting and color that only SA, SFE and MF can set.
type FieldAttribute struct {
	Protected    bool
	Numeric      bool
	Intensity    Intensity
	Modified     bool
	Highlighting Highlighting
	Color        Color
}

// ParseAttribute decodes an attribute byte. Only the low six bits carry meaning.
func ParseAttribute(b byte) FieldAttribute {
	attr := FieldAttribute{
		Protected: b&attrProtected != 0,
		Numeric:   b&attrNumeric != 0,
		Modified:  b&attrModified != 0,
	}

	switch b & attrDisplayMask {
	case 0x08:
		attr.Intensity = IntensityHigh
	case 0x0C:
		attr.Intensity = IntensityNonDisplay
	}

	return attr
}

// Byte encodes the attribute for the wire, through the same graphic alphabet used for
// buffer addresses
func (a FieldAttribute) Byte() byte {
	var b byte
	if a.Protected {
		b |= attrProtected
	}

	if a.Numeric {
		b |= attrNumeric
	}

	switch a.Intensity {
	case IntensityHigh:
		b |= 0x08
	case IntensityNonDisplay:
		b |= 0x0C
	}

	if a.Modified {
		b |= attrModified
	}

	return addressCodes[b&0x3F]
}

// AutoSkip reports a protected numeric field, which the cursor skips over when tabbing
func (a FieldAttribute) AutoSkip() bool {
	return a.Protected && a.Numeric
}

// Visible is false for non-display fields such as passwords
func (a FieldAttribute) Visible() bool {
	return a.Intensity != IntensityNonDisplay
}

// CanInput reports whether the operator may type into the field
func (a FieldAttribute) CanInput() bool {
	return !a.Protected
}

// replaceBasic takes the protection, intensity and MDT bits from a new attribute byte while
// keeping the extended attributes
func (a *FieldAttribute) replaceBasic(b byte) {
	basic := ParseAttribute(b)
	basic.Highlighting = a.Highlighting
	basic.Color = a.Color
	*a = basic
}

func (a FieldAttribute) String() string {
	var parts []string
	if a.Protected {
		parts = append(parts, "protected")
	} else {
		parts = append(parts, "unprotected")
	}

	if a.Numeric {
		parts = append(parts, "numeric")
	}

	if a.Intensity != IntensityNormal {
		parts = append(parts, strings.ToLower(a.Intensity.String()))
	}

	if a.Modified {
		parts = append(parts, "modified")
	}

	if a.Highlighting != HighlightDefault {
		parts = append(parts, strings.ToLower(a.Highlighting.String()))
	}

	if a.Color != ColorDefault {
		parts = append(parts, strings.ToLower(a.Color.String()))
	}

	return strings.Join(parts, " ")
}
