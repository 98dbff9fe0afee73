package render

import (
	"fmt"
	"html/template"

	"formcraft/internal/domain"
)

const DefaultBorderColor = "#e5e7eb"

// ThemeVars are the CSS custom properties of a themed page.
type ThemeVars struct {
	Primary     string
	Background  string
	Text        string
	Border      string
	Logo        string
	CompanyName string
}

// Theme layers t over the default palette. The border is the primary color
// at low alpha when the form sets one.
func Theme(t domain.Theme) ThemeVars {
	d := t.WithDefaults()
	border := DefaultBorderColor
	if t.PrimaryColor != "" {
		border = t.PrimaryColor + "20"
	}
	return ThemeVars{
		Primary:     d.PrimaryColor,
		Background:  d.BackgroundColor,
		Text:        d.TextColor,
		Border:      border,
		Logo:        t.Logo,
		CompanyName: t.CompanyName,
	}
}

// Style 输出 :root 上的 CSS 变量
func (v ThemeVars) Style() template.CSS {
	return template.CSS(fmt.Sprintf(
		"--primary-color: %s; --background-color: %s; --text-color: %s; --border-color: %s;",
		cssValue(v.Primary), cssValue(v.Background), cssValue(v.Text), cssValue(v.Border),
	))
}

// cssValue 只放行颜色会用到的字符，防止主题字段注入样式
func cssValue(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '#', c == '(', c == ')', c == ',', c == '.', c == '%', c == ' ', c == '-':
			out = append(out, c)
		}
	}
	return string(out)
}
