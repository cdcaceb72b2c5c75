package config

import (
	"fmt"

	"github.com/derailed/tcell/v2"
)

// Color represents a color in the application
type Color string

// DefaultColor leaves the terminal's own color in place
const DefaultColor Color = "default"

// NewColor returns a new color
func NewColor(c string) Color {
	return Color(c)
}

// String returns color as string
func (c Color) String() string {
	if c.isHex() {
		return string(c)
	}
	if c == DefaultColor {
		return "-"
	}
	col := c.Color().TrueColor().Hex()
	if col < 0 {
		return "-"
	}
	return fmt.Sprintf("#%06x", col)
}

func (c Color) isHex() bool {
	return len(c) == 7 && c[0] == '#'
}

// Color returns a view color
func (c Color) Color() tcell.Color {
	if c == DefaultColor {
		return tcell.ColorDefault
	}
	return tcell.GetColor(string(c)).TrueColor()
}

// MailColors defines colors for message states
type MailColors struct {
	UnreadColor Color `yaml:"unreadColor"`
	ReadColor   Color `yaml:"readColor"`
}

// CountdownColors defines colors for the account countdown
type CountdownColors struct {
	NormalColor  Color `yaml:"normalColor"`
	WarningColor Color `yaml:"warningColor"` // under a minute left
	ExpiredColor Color `yaml:"expiredColor"`
}

// FrameColors defines colors for UI frame elements
type FrameColors struct {
	BorderColor Color `yaml:"borderColor"`
	FocusColor  Color `yaml:"focusColor"`
	TitleColor  Color `yaml:"titleColor"`
}

// TableColors defines colors for table elements
type TableColors struct {
	FgColor       Color `yaml:"fgColor"`
	BgColor       Color `yaml:"bgColor"`
	HeaderFgColor Color `yaml:"headerFgColor"`
	HeaderBgColor Color `yaml:"headerBgColor"`
}

// BodyColors defines colors for body elements
type BodyColors struct {
	FgColor   Color `yaml:"fgColor"`
	BgColor   Color `yaml:"bgColor"`
	LogoColor Color `yaml:"logoColor"`
}

// ColorsConfig defines the complete color configuration
type ColorsConfig struct {
	Body      BodyColors      `yaml:"body"`
	Frame     FrameColors     `yaml:"frame"`
	Table     TableColors     `yaml:"table"`
	Mail      MailColors      `yaml:"mail"`
	Countdown CountdownColors `yaml:"countdown"`
}

// DefaultColors returns the default color configuration
func DefaultColors() *ColorsConfig {
	return &ColorsConfig{
		Body: BodyColors{
			FgColor:   NewColor("#f8f8f2"),
			BgColor:   NewColor("#282a36"),
			LogoColor: NewColor("#bd93f9"),
		},
		Frame: FrameColors{
			BorderColor: NewColor("#44475a"),
			FocusColor:  NewColor("#6272a4"),
			TitleColor:  NewColor("#f8f8f2"),
		},
		Table: TableColors{
			FgColor:       NewColor("#f8f8f2"),
			BgColor:       NewColor("#282a36"),
			HeaderFgColor: NewColor("#50fa7b"),
			HeaderBgColor: NewColor("#282a36"),
		},
		Mail: MailColors{
			UnreadColor: NewColor("#ffb86c"),
			ReadColor:   NewColor("#6272a4"),
		},
		Countdown: CountdownColors{
			NormalColor:  NewColor("#50fa7b"),
			WarningColor: NewColor("#f1fa8c"),
			ExpiredColor: NewColor("#ff5555"),
		},
	}
}
