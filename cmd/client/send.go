package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbeoliero/nexochat/internal/entity"
)

func newSendCmd() *cobra.Command {
	var to, replyTo string

	cmd := &cobra.Command{
		Use:   "send [chat-id] <message>",
		Short: "Send a message to a conversation or, with --to, to a person",
		Args:  cobra.RangeArgs(1, 2),
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
			ctx := cmd.Context()

			if to != "" {
				if len(args) != 1 {
					return errors.New("with --to pass only the message")
				}
				conv, err := svc.OpenDirect(ctx, entity.Person{Username: to})
				if err != nil {
					return err
				}
				conv, msg, err := svc.SendFirstMessage(ctx, conv, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", msg.Id, conv.Id)
				return nil
			}

			if len(args) != 2 {
				return errors.New("usage: send <chat-id> <message>")
			}
			chatId := args[0]

			var reply *entity.Message
			if replyTo != "" {
				// the reply preview needs the original message
				if err := loadPages(ctx, svc.MessagesPager(), chatId, 0); err != nil {
					return err
				}
				for _, m := range st.Messages(chatId) {
					if m.Id == replyTo {
						reply = m
						break
					}
				}
				if reply == nil {
					return fmt.Errorf("message %s not found in %s", replyTo, chatId)
				}
			}

			msg, err := svc.SendMessage(ctx, chatId, args[1], reply)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", msg.Id)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "username to message directly")
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "id of the message to reply to")
	return cmd
}

func newGroupCmd() *cobra.Command {
	var members string

	cmd := &cobra.Command{
		Use:   "group <name>",
		Short: "Create a group conversation",
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
			svc, _ := a.chatService(claims.Username())

			conv, err := svc.CreateGroup(cmd.Context(), args[0], strings.Split(members, ","))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", conv.Name, conv.Id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&members, "members", "m", "", "comma separated usernames")
	return cmd
}
