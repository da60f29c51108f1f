package panel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/runnerr0/histfeed/internal/history"
)

// View implements tea.Model.
func (m Model) View() string {
	width := m.width
	if width == 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(m.titleLine())
	b.WriteString("\n")
	b.WriteString(m.sliderLine(width))
	b.WriteString("\n")
	b.WriteString(m.rangeLine())
	b.WriteString("\n")
	b.WriteString(m.search.View())
	b.WriteString("\n")

	h := m.listHeight()
	end := min(len(m.rows), m.offset+h)
	line := lipgloss.NewStyle().MaxWidth(width)
	for i := m.offset; i < end; i++ {
		b.WriteString(line.Render(m.renderRow(m.rows[i], i == m.cursor && m.focus == focusList)))
		b.WriteString("\n")
	}
	for i := end - m.offset; i < h; i++ {
		b.WriteString("\n")
	}

	b.WriteString(line.Render(m.statusLine()))
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.short(m.focus)))
	return b.String()
}

func (m Model) titleLine() string {
	title := titleStyle.Render("History")
	if m.view.Query != "" {
		return title + countStyle.Render(fmt.Sprintf("  %d of %d loaded", m.view.Shown, m.view.Total))
	}
	return title + countStyle.Render(fmt.Sprintf("  %d loaded", m.view.Total))
}

// sliderLine draws the range track: oldest day on the left, today on the
// right, the selected span highlighted between the two handles.
func (m Model) sliderLine(width int) string {
	track := max(10, width-16)
	maxDays := m.feed.Extent().MaxDaysAgo
	lo, hi := m.feed.Handles()
	posLo, posHi := sliderPos(lo, maxDays, track), sliderPos(hi, maxDays, track)
	left, right := min(posLo, posHi), max(posLo, posHi)

	var b strings.Builder
	b.WriteString(countStyle.Render("oldest "))
	for i := 0; i < track; i++ {
		switch {
		case i == posLo || i == posHi:
			which := history.HandleMin
			if i == posHi && i != posLo {
				which = history.HandleMax
			}
			style := handleStyle
			if m.focus == focusSlider && which == m.handle {
				style = activeHandleStyle
			}
			b.WriteString(style.Render("●"))
		case i > left && i < right:
			b.WriteString(rangeStyle.Render("━"))
		default:
			b.WriteString(trackStyle.Render("─"))
		}
	}
	b.WriteString(countStyle.Render(" today"))
	return b.String()
}

// sliderPos maps days ago onto a track column; today is the last column.
func sliderPos(daysAgo, maxDays, track int) int {
	if maxDays <= 0 {
		return track - 1
	}
	return (track - 1) - daysAgo*(track-1)/maxDays
}

func (m Model) rangeLine() string {
	if !m.opened {
		return ""
	}
	var text string
	oldest, newest, ok := m.feed.SelectedDays()
	switch {
	case !ok:
		text = "No whole day selected; move a handle one day apart"
	case oldest.Equal(newest):
		text = history.FormatAbsolute(newest)
	default:
		text = history.FormatAbsolute(oldest) + " to " + history.FormatAbsolute(newest)
	}
	if m.focus == focusSlider {
		text += "  handle " + m.feed.Tooltip(m.handle)
	}
	return countStyle.Render(text)
}

func (m Model) renderRow(r row, selected bool) string {
	if r.kind == rowHeader {
		return sectionStyle.Render(r.label)
	}

	s := history.Summarize(r.visit)
	marker := "  "
	title := visitStyle.Render(s.Title)
	if selected {
		marker = selectedStyle.Render("> ")
		title = selectedStyle.Render(s.Title)
	}
	return marker + timeStyle.Render(s.TimeOfDay) + "  " + title + "  " + urlStyle.Render(s.URL)
}

func (m Model) statusLine() string {
	v := m.view
	switch {
	case v.Errored:
		return errorStyle.Render("Couldn't load history: "+errText(v.Err)) + statusStyle.Render("  (r to retry)")
	case v.Loading:
		return m.spinner.View() + statusStyle.Render(" Loading...")
	case m.status != "":
		return statusStyle.Render(m.status)
	case v.Empty:
		return statusStyle.Render("No history in this range")
	case v.Exhausted && v.Query != "" && v.Shown == 0:
		return statusStyle.Render("No matches")
	case v.Exhausted:
		return statusStyle.Render("End of history")
	}
	return ""
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
