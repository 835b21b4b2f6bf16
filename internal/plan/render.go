package plan

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// NoPlanText is what Format returns when there is nothing to show.
const NoPlanText = "No active plan."

// statusIcons maps each status to the glyph shown in front of a task.
var statusIcons = map[Status]string{
	StatusPending:    "○",
	StatusInProgress: "🔄",
	StatusCompleted:  "✅",
	StatusFailed:     "❌",
	StatusSkipped:    "⏭️",
}

// Icon returns the display glyph for s, or "?" for an unknown status.
func (s Status) Icon() string {
	if icon, ok := statusIcons[s]; ok {
		return icon
	}
	return "?"
}

// line is one rendered row of a plan, before styling.
type line struct {
	text   string
	status Status
	detail bool // Result/Notes rows
}

// Format renders a snapshot as an indented tree, one task per line:
//
//	○ [1] Build X (pending)
//	  ✅ [2] Step A (completed)
//	    Result: done
func Format(root *TaskNode) string {
	lines := layout(root)
	if lines == nil {
		return NoPlanText
	}

	var sb strings.Builder
	for i, l := range lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(l.text)
	}
	return sb.String()
}

// Styles for Styled output, keyed by status.
var (
	statusStyles = map[Status]lipgloss.Style{
		StatusPending:    lipgloss.NewStyle(),
		StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		StatusSkipped:    lipgloss.NewStyle().Faint(true),
	}
	detailStyle = lipgloss.NewStyle().Faint(true).Italic(true)
)

// Styled renders the same lines as Format, coloured per status for a
// terminal.
func Styled(root *TaskNode) string {
	lines := layout(root)
	if lines == nil {
		return NoPlanText
	}

	rendered := make([]string, len(lines))
	for i, l := range lines {
		switch {
		case l.detail:
			rendered[i] = detailStyle.Render(l.text)
		default:
			style, ok := statusStyles[l.status]
			if !ok {
				style = lipgloss.NewStyle()
			}
			rendered[i] = style.Render(l.text)
		}
	}
	return strings.Join(rendered, "\n")
}

// layout flattens the tree into display lines. It returns nil when root is
// nil or error-shaped.
func layout(root *TaskNode) []line {
	if root == nil || root.IsError() {
		return nil
	}

	var lines []line
	root.Walk(func(n *TaskNode, depth int) {
		indent := strings.Repeat("  ", depth)
		lines = append(lines, line{
			text:   indent + n.Status.Icon() + " [" + n.ID + "] " + n.Description + " (" + string(n.Status) + ")",
			status: n.Status,
		})
		if n.Result != "" {
			lines = append(lines, line{text: indent + "  Result: " + n.Result, status: n.Status, detail: true})
		}
		if n.Notes != "" {
			lines = append(lines, line{text: indent + "  Notes: " + n.Notes, status: n.Status, detail: true})
		}
	})
	return lines
}
