package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/spf13/cobra"

	"github.com/mbeoliero/nexochat/internal/entity"
	"github.com/mbeoliero/nexochat/internal/notify"
	"github.com/mbeoliero/nexochat/internal/realtime"
	"github.com/mbeoliero/nexochat/internal/session"
	"github.com/mbeoliero/nexochat/internal/store"
	"github.com/mbeoliero/nexochat/pkg/metrics"
)

func newFollowCmd() *cobra.Command {
	var active string

	cmd := &cobra.Command{
		Use:   "follow",
		Short: "Stay connected and print messages as they arrive",
		Long: `Connect to the realtime channel and print every pushed message.
Messages for conversations other than --active raise a notification and
count as unread.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			claims, err := a.authenticate()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if a.cfg.Metrics.Enabled {
				srv := startMetrics(a.cfg.Metrics.Addr)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			opts := realtime.Options{
				ReconnectDelay:    a.cfg.Realtime.ReconnectDelay,
				HeartbeatIncoming: a.cfg.Realtime.HeartbeatIncoming,
				HeartbeatOutgoing: a.cfg.Realtime.HeartbeatOutgoing,
			}
			conn := realtime.NewConnection(realtime.NewStompDialer(a.cfg.Realtime.URL, a.cfg.Realtime.Host, opts), opts)
			defer conn.Close()

			out := cmd.OutOrStdout()
			sess := session.New(a.api, conn,
				session.WithDestination(a.cfg.Realtime.UserDestination),
				session.WithNotifier(notify.LogDispatcher{}),
				session.OnConnected(func() { fmt.Fprintln(out, "* connected") }),
				session.OnConnectError(func(err error) { fmt.Fprintf(out, "* connection problem: %v\n", err) }),
			)

			user := &entity.User{Username: claims.Username()}
			if err := sess.Login(ctx, a.api.GetToken(), user); err != nil {
				return err
			}
			defer sess.Logout()

			st := sess.Store()
			if active != "" {
				st.SetActiveConversation(active)
			}

			events, cancel := st.Watch()
			defer cancel()

			shown := make(map[string]string)
			for {
				select {
				case <-ctx.Done():
					fmt.Fprintln(out, "* bye")
					return nil
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					printEvent(out, st, ev, shown)
				}
			}
		},
	}

	cmd.Flags().StringVar(&active, "active", "", "conversation treated as open")
	return cmd
}

// printEvent prints the newest message of a conversation once
func printEvent(w io.Writer, st *store.Store, ev store.Event, shown map[string]string) {
	switch ev.Kind {
	case store.EventLastMessage:
		last := st.LastMessage(ev.ConversationId)
		if last == nil || shown[ev.ConversationId] == last.Id {
			return
		}
		shown[ev.ConversationId] = last.Id
		fmt.Fprintf(w, "[%s] ", ev.ConversationId)
		printMessage(w, last)
	case store.EventUnread:
		if n := st.Unread(ev.ConversationId); n > 0 {
			fmt.Fprintf(w, "  %d unread in %s (%d total)\n", n, ev.ConversationId, st.TotalUnread())
		}
	}
}

func startMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped: %v", err)
		}
	}()
	log.Info("metrics listening on %s", addr)
	return srv
}
