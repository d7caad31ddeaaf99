package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/studiowebux/blitzbar/internal/config"
)

// profileView hides the API key when profiles are printed
type profileView struct {
	Name     string `json:"name" yaml:"name"`
	Active   bool   `json:"active" yaml:"active"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	APIKey   string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
}

// ProfileList prints the configured profiles
func (a *App) ProfileList(w io.Writer, format string) error {
	active := a.Sessions.GetActiveProfile().Name
	profiles := a.Sessions.GetProfiles()
	views := make([]profileView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, profileView{
			Name:     p.Name,
			Active:   p.Name == active,
			Username: p.Username,
			APIKey:   maskKey(p.APIKey),
			Endpoint: p.Endpoint().BaseURL(),
			Region:   p.Region,
		})
	}

	return writeFormatted(w, views, format, func() string {
		r := Renderer{Color: a.Color}
		var sb strings.Builder
		for _, v := range views {
			marker := "  "
			if v.Active {
				marker = r.paint(styleSuccess, "* ")
			}
			sb.WriteString(fmt.Sprintf("%s%s  %s", marker, v.Name, r.paint(styleSubtle, v.Endpoint)))
			if v.Username != "" {
				sb.WriteString(r.paint(styleSubtle, " user="+v.Username))
			}
			sb.WriteString("\n")
		}
		return sb.String()
	})
}

// ProfileUse makes name the active profile
func (a *App) ProfileUse(name string) error {
	return a.Sessions.SetActiveProfile(name)
}

// ProfileAdd stores a new profile
func (a *App) ProfileAdd(p config.Profile) error {
	return a.Sessions.AddProfile(p)
}

// ProfileDelete removes a profile
func (a *App) ProfileDelete(name string) error {
	return a.Sessions.DeleteProfile(name)
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
