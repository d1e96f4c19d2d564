package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mbeoliero/nexochat/internal/entity"
)

var timeNow = time.Now

func personOf(username string) entity.Person {
	return entity.Person{Username: username}
}

func printConversation(w io.Writer, conv *entity.Conversation) {
	line := fmt.Sprintf("%-24s %s", conv.Id, conv.Name)
	if last := conv.LastMessage; last != nil {
		line += fmt.Sprintf("  [%s] %s: %s", humanize.Time(last.Created.Time), last.Sender.Username, last.Content)
	}
	fmt.Fprintln(w, line)
}

func printPerson(w io.Writer, p *entity.Person) {
	fmt.Fprintf(w, "%-20s %s\n", p.Username, p.DisplayName())
}

// printHistory prints newest-first msgs oldest first with time separators
func printHistory(w io.Writer, msgs []*entity.Message, gap time.Duration) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if entity.ShouldShowTimeSeparator(msgs, i, gap) {
			fmt.Fprintf(w, "---- %s ----\n", msgs[i].Created.Local().Format("Mon 2 Jan 2006 15:04"))
		}
		printMessage(w, msgs[i])
	}
}

func printMessage(w io.Writer, m *entity.Message) {
	prefix := ""
	if m.ResponseTo != nil {
		prefix = fmt.Sprintf("(re %s: %q) ", m.ResponseTo.Sender.Username, m.ResponseTo.Content)
	}
	state := ""
	if m.IsPending() {
		state = " (sending)"
	}
	fmt.Fprintf(w, "%s %-12s %s%s%s\n", m.Created.Local().Format("15:04"), m.Sender.DisplayName(), prefix, m.Content, state)
}
