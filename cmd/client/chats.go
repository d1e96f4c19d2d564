package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mbeoliero/nexochat/internal/entity"
	"github.com/mbeoliero/nexochat/internal/pager"
	"github.com/mbeoliero/nexochat/internal/service"
)

// loadPages pulls up to n pages, all when n <= 0
func loadPages[T any](ctx context.Context, p *pager.Pager[T], key string, n int) error {
	if err := p.SetKey(ctx, key); err != nil {
		return err
	}
	for loaded := 1; n <= 0 || loaded < n; loaded++ {
		if p.Snapshot().ReachedEnd {
			break
		}
		if err := p.LoadNext(ctx); err != nil {
			return err
		}
	}
	return nil
}

func newChatsCmd() *cobra.Command {
	var query string
	var pages int

	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List your conversations, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			claims, err := a.authenticate()
			if err != nil {
				return err
			}

			svc, _ := a.chatService(claims.Username())
			p := svc.ConversationsPager()
			if err := loadPages(cmd.Context(), p, query, pages); err != nil {
				return err
			}

			items := p.Items()
			for _, conv := range items {
				printConversation(cmd.OutOrStdout(), conv)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s conversations\n", humanize.Comma(int64(len(items))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name")
	cmd.Flags().IntVar(&pages, "pages", 1, "pages to load, 0 for all")
	return cmd
}

func newPeopleCmd() *cobra.Command {
	var pages int
	var interactive bool

	cmd := &cobra.Command{
		Use:   "people [query]",
		Short: "Search people",
		Long: "Search people by name. With --interactive each line read from stdin\n" +
			"replaces the query, and results are printed once typing pauses.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			claims, err := a.authenticate()
			if err != nil {
				return err
			}

			svc, _ := a.chatService(claims.Username())
			p := svc.PeoplePager()
			if interactive {
				return searchPeople(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), p, a.cfg.Client.SearchDebounce)
			}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			if err := loadPages(cmd.Context(), p, query, pages); err != nil {
				return err
			}
			for _, person := range p.Items() {
				printPerson(cmd.OutOrStdout(), person)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "pages to load, 0 for all")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "read queries from stdin")
	return cmd
}

// resultPrinter loads a query into the pager and prints the first page
type resultPrinter struct {
	p *pager.Pager[*entity.Person]
	w io.Writer

	mu sync.Mutex
}

func (r *resultPrinter) SetKey(ctx context.Context, key string) error {
	if err := r.p.SetKey(ctx, key); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.p.Items()
	fmt.Fprintf(r.w, "-- %q: %d found\n", key, len(items))
	for _, person := range items {
		printPerson(r.w, person)
	}
	return nil
}

// searchPeople debounces queries typed on in; the last one is applied at EOF
func searchPeople(ctx context.Context, in io.Reader, out io.Writer, p *pager.Pager[*entity.Person], delay time.Duration) error {
	d := service.NewQueryDebouncer(&resultPrinter{p: p, w: out}, delay)
	defer d.Stop()

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		d.Update(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read queries: %w", err)
	}
	return d.Flush(ctx)
}

func newHistoryCmd() *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "history <chat-id>",
		Short: "Print the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			claims, err := a.authenticate()
			if err != nil {
				return err
			}

			svc, st := a.chatService(claims.Username())
			if err := loadPages(cmd.Context(), svc.MessagesPager(), args[0], pages); err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), st.Messages(args[0]), a.cfg.API.SeparatorGap)
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "pages to load, 0 for all")
	return cmd
}
