// Package guide holds the static deployment walkthrough shown next to the chat.
package guide

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Step is one item of the walkthrough.
type Step struct {
	Title       string
	Description string
	Link        string
}

const Title = "Deployment guide"

// Steps lists the walkthrough in order.
var Steps = []Step{
	{
		Title:       "1. Get an API key",
		Description: "Open Google AI Studio and click 'Create API key'. This key lets the bot talk to Gemini.",
		Link:        "https://aistudio.google.com/",
	},
	{
		Title:       "2. Push to GitHub",
		Description: "Create a new repository (public is fine) and push this project to it.",
		Link:        "https://github.com/new",
	},
	{
		Title:       "3. Deploy",
		Description: "Import the repository into your hosting provider, or run 'gemini-chat serve' on your own machine.",
		Link:        "https://vercel.com/new",
	},
}

// EnvNote explains the one setting the backend cannot work without.
const EnvNote = "Most important: in your project's environment variables, add API_KEY with your Gemini key as the value, save, and redeploy the latest deployment."

const Footer = "That's it: a free, ad-free chat bot of your own."

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	stepStyle  = lipgloss.NewStyle().Bold(true)
	linkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Underline(true)
	noteStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("178")).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Italic(true).Faint(true)
)

// Render lays the guide out for the given width. A width <= 0 disables
// wrapping.
func Render(width int) string {
	wrap := lipgloss.NewStyle()
	if width > 0 {
		wrap = wrap.Width(width)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(Title))
	b.WriteString("\n\n")
	for _, s := range Steps {
		b.WriteString(stepStyle.Render(s.Title))
		b.WriteString("\n")
		b.WriteString(wrap.Render(s.Description))
		b.WriteString("\n")
		b.WriteString(linkStyle.Render(s.Link))
		b.WriteString("\n\n")
	}
	note := noteStyle
	if width > 4 {
		note = note.Width(width - 2)
	}
	b.WriteString(note.Render(EnvNote))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render(wrap.Render(Footer)))
	return b.String()
}
