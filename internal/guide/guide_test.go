package guide

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"
)

func TestSteps_Ordered(t *testing.T) {
	require.Len(t, Steps, 3)
	for i, s := range Steps {
		require.True(t, strings.HasPrefix(s.Title, string(rune('1'+i))+"."), s.Title)
		require.True(t, strings.HasPrefix(s.Link, "https://"), s.Link)
		require.NotEmpty(t, s.Description)
	}
}

func TestRender_ContainsContent(t *testing.T) {
	out := Render(0)
	require.Contains(t, out, Title)
	for _, s := range Steps {
		require.Contains(t, out, s.Title)
		require.Contains(t, out, s.Link)
	}
	require.Contains(t, out, "API_KEY")
}

func TestRender_RespectsWidth(t *testing.T) {
	out := Render(40)
	for _, line := range strings.Split(out, "\n") {
		require.LessOrEqual(t, lipgloss.Width(line), 40, "line %q", line)
	}
}
