package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/crmchat/internal/feed"
	"github.com/crmchat/internal/model"
)

const bodyIndent = "   "

type styles struct {
	author   lipgloss.Style
	mine     lipgloss.Style
	meta     lipgloss.Style
	mention  lipgloss.Style
	deleted  lipgloss.Style
	reply    lipgloss.Style
	reacted  lipgloss.Style
	failed   lipgloss.Style
	selected lipgloss.Style
	header   lipgloss.Style
	toast    lipgloss.Style
	typing   lipgloss.Style
	compose  lipgloss.Style
	help     lipgloss.Style
}

func defaultStyles() styles {
	gray := lipgloss.Color("245")
	return styles{
		author:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		mine:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		meta:     lipgloss.NewStyle().Foreground(gray),
		mention:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		deleted:  lipgloss.NewStyle().Italic(true).Foreground(gray),
		reply:    lipgloss.NewStyle().Foreground(gray).Italic(true),
		reacted:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		failed:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		header:   lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(lipgloss.Color("57")).Foreground(lipgloss.Color("230")),
		toast:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		typing:   lipgloss.NewStyle().Italic(true).Foreground(gray),
		compose:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1),
		help:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// renderFeed lays out items oldest first and returns the content with the
// line span of every item.
func renderFeed(items []feed.ItemView, width int, st styles) (string, []feed.Span) {
	if len(items) == 0 {
		return st.meta.Render("No messages yet. Say hello!"), nil
	}
	var lines []string
	spans := make([]feed.Span, 0, len(items))
	for _, it := range items {
		start := len(lines)
		lines = append(lines, renderItem(it, width, st)...)
		spans = append(spans, feed.Span{MessageID: it.ID, Start: start, End: len(lines)})
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n"), spans
}

func renderItem(it feed.ItemView, width int, st styles) []string {
	var out []string

	marker := " "
	if it.Selected {
		marker = st.selected.Render("▌")
	}
	authorStyle := st.author
	if it.Mine {
		authorStyle = st.mine
	}
	head := fmt.Sprintf("%s%s %s", marker, st.meta.Render(fmt.Sprintf("#%d", it.Index)), authorStyle.Render(it.Author))
	if it.Role != "" {
		head += st.meta.Render(" · " + it.Role)
	}
	meta := it.CreatedAt.Local().Format("15:04")
	if it.Edited && !it.Deleted {
		meta += " (edited)"
	}
	head += " " + st.meta.Render(meta)
	if g := statusGlyph(it.Status); g != "" {
		if it.Status == feed.StatusFailed {
			head += " " + st.failed.Render(g)
		} else {
			head += " " + st.meta.Render(g)
		}
	}
	out = append(out, head)

	if it.Reply != nil {
		quote := "↪ original message unavailable"
		if !it.Reply.Missing {
			quote = fmt.Sprintf("↪ %s: %s", it.Reply.Author, it.Reply.Text)
		}
		out = append(out, bodyIndent+st.reply.Render(quote))
	}

	wrapAt := max(10, width-len(bodyIndent)-1)
	switch {
	case it.Deleted:
		out = append(out, bodyIndent+st.deleted.Render("message deleted"))
	case it.Text != "":
		bodyStyle := lipgloss.NewStyle()
		if it.MentionsViewer {
			bodyStyle = st.mention
		}
		for _, l := range strings.Split(wordwrap.String(it.Text, wrapAt), "\n") {
			out = append(out, bodyIndent+bodyStyle.Render(l))
		}
	}

	if !it.Deleted {
		for _, a := range it.Attachments {
			out = append(out, bodyIndent+st.meta.Render(fmt.Sprintf("📎 %s %s", a.FileName, formatSize(a.Size))))
		}
	}

	if len(it.Reactions) > 0 {
		parts := make([]string, 0, len(it.Reactions))
		for _, r := range it.Reactions {
			s := fmt.Sprintf("%s %d", r.Emoji, r.Count)
			if r.ReactedByViewer {
				s = st.reacted.Render(s)
			}
			parts = append(parts, s)
		}
		out = append(out, bodyIndent+strings.Join(parts, "  "))
	}

	if it.Mine && len(it.Readers) > 0 {
		out = append(out, bodyIndent+st.meta.Render("Read by "+strings.Join(it.Readers, ", ")))
	}
	if it.Status == feed.StatusFailed {
		out = append(out, bodyIndent+st.failed.Render(fmt.Sprintf("not sent: /retry %d or /discard %d", it.Index, it.Index)))
	}
	return out
}

func statusGlyph(s feed.SendStatus) string {
	switch s {
	case feed.StatusSending:
		return "…"
	case feed.StatusSent:
		return "✓"
	case feed.StatusRead:
		return "✓✓"
	case feed.StatusFailed:
		return "!"
	}
	return ""
}

func formatSize(n int64) string {
	switch {
	case n <= 0:
		return ""
	case n < 1<<10:
		return fmt.Sprintf("(%d B)", n)
	case n < 1<<20:
		return fmt.Sprintf("(%.1f KB)", float64(n)/(1<<10))
	}
	return fmt.Sprintf("(%.1f MB)", float64(n)/(1<<20))
}

func typingLine(users []model.TypingIndicator) string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		if u.Username != "" {
			names = append(names, u.Username)
		}
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing…"
	case 2:
		return names[0] + " and " + names[1] + " are typing…"
	}
	return fmt.Sprintf("%s and %d others are typing…", names[0], len(names)-1)
}

func renderAttachments(atts []model.Attachment, st styles) string {
	if len(atts) == 0 {
		return st.meta.Render("No files in this channel.")
	}
	lines := make([]string, 0, len(atts)+1)
	lines = append(lines, st.meta.Render("Files (/download n, /share n channel):"))
	for i, a := range atts {
		lines = append(lines, fmt.Sprintf("  %d. %s %s", i+1, a.FileName, st.meta.Render(formatSize(a.Size))))
	}
	return strings.Join(lines, "\n")
}
