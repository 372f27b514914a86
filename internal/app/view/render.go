/*
Package view renders the chat stream for the terminal.

Alignment is derived purely from comparing a message's sender id to the
viewer's id: own messages are right-aligned and carry no name label, everyone
else's are left-aligned with the sender's name. The avatar URL has no visual
on a terminal, so its presence is shown as a marker next to the name.
*/
package view

import (
	"fmt"
	"strings"

	"github.com/gookit/color"
	"github.com/samber/lo"

	"supachat/internal/app/stream"
	"supachat/internal/app/user"
)

// Width is the column the rendering right-aligns against.
const Width = 80

// EmptyPrompt is shown when the history loaded and contains no messages.
const EmptyPrompt = "No messages yet. Send the first one!"

// LoadingPrompt is shown while the initial history fetch is in flight.
const LoadingPrompt = "Loading messages..."

// FormatTime renders a message timestamp as HH:MM.
func FormatTime(msg user.Message) string {
	return msg.CreatedAt.Local().Format("15:04")
}

// RenderMessage renders one message line for the given viewer.
func RenderMessage(viewer user.User, msg user.Message) string {
	mine := msg.UserID == viewer.ID

	timestamp := color.Gray.Sprint(FormatTime(msg))

	if mine {
		line := fmt.Sprintf("%s %s", timestamp, color.Cyan.Sprint(msg.Content))
		return padLeft(line, Width)
	}

	name := user.DisplayName(msg.Username, "")
	label := color.Yellow.Sprint(name)
	if msg.AvatarURL != "" {
		label += color.Gray.Sprint(" *")
	}

	return fmt.Sprintf("%s %s: %s", timestamp, label, msg.Content)
}

// RenderStream renders the whole visible state of a stream: a prompt for the
// loading and empty states, or every message in ascending creation order.
func RenderStream(s *stream.Stream) []string {
	switch s.State() {
	case stream.StateLoading:
		return []string{color.Gray.Sprint(LoadingPrompt)}
	case stream.StateEmpty:
		return []string{color.Gray.Sprint(EmptyPrompt)}
	}

	viewer := s.Viewer()
	return lo.Map(s.Snapshot(), func(msg user.Message, _ int) string {
		return RenderMessage(viewer, msg)
	})
}

// Header renders the signed-in banner shown above the stream.
func Header(viewer user.User) string {
	return fmt.Sprintf("%s %s",
		color.Green.Sprint("●"),
		color.Bold.Sprint(viewer.Username),
	)
}

// padLeft right-aligns the line against the given width. Terminal escape
// sequences inflate the byte length, so the pad is computed from the visible
// rune count.
func padLeft(line string, width int) string {
	visible := len([]rune(stripANSI(line)))
	pad := lo.Ternary(visible >= width, 0, width-visible)
	return strings.Repeat(" ", pad) + line
}

// stripANSI removes terminal escape sequences for width calculation.
func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false

	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}
