package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/region-runtime/region"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	regionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	statStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	treeStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

// renderTree draws the live regions, one per line, indented by depth.
// width 0 means no limit.
func renderTree(space *region.Space, width int) string {
	var lines []string
	space.Walk(func(h, _ region.Handle, depth uint32) bool {
		st := space.RegionStats(h)
		line := strings.Repeat("  ", int(depth)) +
			regionStyle.Render(h.String()) + " " +
			statStyle.Render(fmt.Sprintf("depth %d, %d allocs, %d bytes, %d chunks",
				st.Depth, st.Allocations, st.Bytes, st.Chunks))
		lines = append(lines, line)
		return true
	})
	if len(lines) == 0 {
		return ""
	}

	style := treeStyle
	if width > 4 {
		style = style.MaxWidth(width)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func renderStats(st region.Stats) string {
	return statStyle.Render(fmt.Sprintf(
		"  regions %d, allocations %d (%d bytes), chunks %d in use / %d free, growths %d, pages %d",
		st.Regions, st.Allocations, st.Bytes, st.ChunksInUse, st.ChunksFree, st.Growths, st.Pages))
}
