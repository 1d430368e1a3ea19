package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/rayan4-dot/kudoai/kernel/chat"
)

type transcriptPrinter struct {
	out      io.Writer
	markdown *glamour.TermRenderer

	userLabel      func(format string, args ...any) string
	assistantLabel func(format string, args ...any) string
	errorLabel     func(format string, args ...any) string
}

func newTranscriptPrinter(out io.Writer) *transcriptPrinter {
	p := &transcriptPrinter{
		out:            out,
		userLabel:      color.New(color.FgCyan, color.Bold).Sprintf,
		assistantLabel: color.New(color.FgGreen, color.Bold).Sprintf,
		errorLabel:     color.New(color.FgRed, color.Bold).Sprintf,
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		p.markdown = renderer
	}
	return p
}

func (p *transcriptPrinter) printMessage(msg chat.Message) {
	switch msg.Role {
	case chat.RoleUser:
		fmt.Fprintf(p.out, "%s %s\n", p.userLabel("you:"), msg.Content)
	case chat.RoleAssistant:
		fmt.Fprintf(p.out, "%s\n%s\n", p.assistantLabel("assistant:"), p.renderMarkdown(msg.Content))
	case chat.RoleError:
		fmt.Fprintf(p.out, "%s %s\n", p.errorLabel("error:"), msg.Content)
	default:
		fmt.Fprintf(p.out, "%s\n", msg.Content)
	}
}

// renderMarkdown falls back to the raw text when the terminal renderer is
// unavailable (piped output, unsupported TERM).
func (p *transcriptPrinter) renderMarkdown(content string) string {
	if p.markdown == nil {
		return content
	}
	rendered, err := p.markdown.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

func (p *transcriptPrinter) printSessionList(sessions map[string]chat.Session, activeID string) {
	ordered := sortSessionsByRecency(sessions)
	for _, sess := range ordered {
		marker := " "
		if sess.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(p.out, "  %s %-24s %-34s %3d msgs  %s\n",
			marker,
			sess.ID,
			truncateTitle(sess.Title, 32),
			sess.MessageCount,
			formatUpdatedAt(sess.UpdatedAt),
		)
	}
}

// sortSessionsByRecency orders newest-first, id as tiebreak so the listing
// is stable.
func sortSessionsByRecency(sessions map[string]chat.Session) []chat.Session {
	out := make([]chat.Session, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func truncateTitle(title string, limit int) string {
	rs := []rune(strings.TrimSpace(title))
	if limit <= 0 || len(rs) <= limit {
		return string(rs)
	}
	if limit <= 3 {
		return string(rs[:limit])
	}
	return string(rs[:limit-3]) + "..."
}

func formatUpdatedAt(millis int64) string {
	if millis <= 0 {
		return "-"
	}
	return time.UnixMilli(millis).Local().Format("2006-01-02 15:04")
}

func shortSessionID(id string) string {
	const prefix = "chat_"
	trimmed := strings.TrimPrefix(id, prefix)
	if len(trimmed) > 6 {
		return "#" + trimmed[len(trimmed)-6:]
	}
	return "#" + trimmed
}
