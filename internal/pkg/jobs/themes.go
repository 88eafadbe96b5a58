package jobs

// Theme describes one known deck theme
type Theme struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Themes is the known theme set. Submit rejects any other name
var Themes = []Theme{
	{Name: "Modern Professional", Description: "Clean design with blue accents and professional typography"},
	{Name: "Dark Mode", Description: "Dark background with neon highlights and modern aesthetics"},
	{Name: "Vibrant Creative", Description: "Bold colors and dynamic layouts for creative presentations"},
	{Name: "Minimal Clean", Description: "Minimalist design with plenty of white space"},
	{Name: "Corporate Blue", Description: "Traditional corporate style with navy blue theme"},
}

// DefaultTheme is used when submit provides no theme
const DefaultTheme = "Modern Professional"

// KnownTheme checks the name against the theme set
func KnownTheme(name string) bool {
	return ThemeByName(name) != nil
}

// ThemeByName returns the named theme or nil
func ThemeByName(name string) *Theme {
	for i, t := range Themes {
		if t.Name == name {
			return &Themes[i]
		}
	}
	return nil
}
