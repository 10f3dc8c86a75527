package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// uploaderTheme tints the default theme and tightens text sizes.
type uploaderTheme struct{}

var _ fyne.Theme = (*uploaderTheme)(nil)

func (t *uploaderTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameButton:
		return color.NRGBA{R: 0x1E, G: 0x6F, B: 0x5C, A: 0xFF}
	case theme.ColorNameSuccess:
		return color.NRGBA{R: 0x2E, G: 0x9D, B: 0x4F, A: 0xFF}
	case theme.ColorNameError:
		return color.NRGBA{R: 0xD3, G: 0x2F, B: 0x2F, A: 0xFF}
	case theme.ColorNameWarning:
		return color.NRGBA{R: 0xF5, G: 0x8F, B: 0x00, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *uploaderTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *uploaderTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *uploaderTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return 13
	}
	return theme.DefaultTheme().Size(name)
}
