package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/nexochat/internal/entity"
	"github.com/mbeoliero/nexochat/internal/pager"
	"github.com/mbeoliero/nexochat/internal/store"
	"github.com/mbeoliero/nexochat/pkg/constant"
	"github.com/mbeoliero/nexochat/pkg/idgen"
	"github.com/mbeoliero/nexochat/sdk"
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrNoConversation = errors.New("conversation id is empty")
	ErrEmptyGroupName = errors.New("group name is empty")
	ErrNoMembers      = errors.New("group needs at least one member")
)

// ChatAPI is the REST surface used by ChatService
type ChatAPI interface {
	ListMyChats(ctx context.Context, query string, page, size int) (*entity.Page[*entity.Conversation], error)
	ListMessages(ctx context.Context, chatId string, page, size int) (*entity.Page[*entity.Message], error)
	SendMessage(ctx context.Context, chatId string, req *sdk.SendMessageRequest) (*entity.Message, error)
	CreateChat(ctx context.Context, req *sdk.CreateChatRequest) (*entity.Conversation, error)
	GetDirectChat(ctx context.Context, username string) (*entity.Conversation, error)
	SearchUsers(ctx context.Context, query string, page, size int) (*entity.Page[*entity.Person], error)
}

// ChatService ties REST calls to the conversation store
type ChatService struct {
	api      ChatAPI
	store    *store.Store
	ids      idgen.IDGenerator
	me       entity.Person
	pageSize int
}

// NewChatService creates a new ChatService
func NewChatService(api ChatAPI, st *store.Store, ids idgen.IDGenerator, me entity.Person, pageSize int) *ChatService {
	if ids == nil {
		ids = idgen.GetDefaultGenerator()
	}
	if pageSize <= 0 {
		pageSize = constant.DefaultPageSize
	}
	return &ChatService{
		api:      api,
		store:    st,
		ids:      ids,
		me:       me,
		pageSize: pageSize,
	}
}

// ConversationsPager lists the user's chats keyed by search query. Every
// applied page seeds the store's last messages.
func (s *ChatService) ConversationsPager() *pager.Pager[*entity.Conversation] {
	fetch := func(ctx context.Context, query string, page int) (*entity.Page[*entity.Conversation], error) {
		return s.api.ListMyChats(ctx, query, page, s.pageSize)
	}
	return pager.New(fetch,
		pager.WithName[*entity.Conversation]("conversations"),
		pager.WithOnPage(func(_ string, page *entity.Page[*entity.Conversation], _ bool) {
			for _, conv := range page.Content {
				if conv != nil && conv.LastMessage != nil {
					s.store.SetLastMessage(conv.Id, conv.LastMessage)
				}
			}
		}),
	)
}

// PeoplePager searches users keyed by search query
func (s *ChatService) PeoplePager() *pager.Pager[*entity.Person] {
	fetch := func(ctx context.Context, query string, page int) (*entity.Page[*entity.Person], error) {
		return s.api.SearchUsers(ctx, query, page, s.pageSize)
	}
	return pager.New(fetch, pager.WithName[*entity.Person]("people"))
}

// MessagesPager pages a conversation's history keyed by conversation id
// and merges every page into the store. The list renders inverted, so
// it never auto-fills.
func (s *ChatService) MessagesPager() *pager.Pager[*entity.Message] {
	fetch := func(ctx context.Context, chatId string, page int) (*entity.Page[*entity.Message], error) {
		if chatId == "" {
			return &entity.Page[*entity.Message]{Number: page, Last: true}, nil
		}
		return s.api.ListMessages(ctx, chatId, page, s.pageSize)
	}
	return pager.New(fetch,
		pager.WithName[*entity.Message]("messages"),
		pager.WithAutoFill[*entity.Message](false),
		pager.WithOnPage(func(chatId string, page *entity.Page[*entity.Message], replaced bool) {
			if chatId == "" {
				return
			}
			mode := store.ModeAppendOlder
			if replaced {
				mode = store.ModeReplace
			}
			s.store.IngestPage(chatId, page.Content, mode)
		}),
	)
}

// OpenConversation puts id in the foreground
func (s *ChatService) OpenConversation(id string) {
	s.store.SetActiveConversation(id)
}

func (s *ChatService) CloseConversation() {
	s.store.ClearActiveConversation()
}

// SendMessage shows a pending copy of the message right away and swaps it
// for the server's message once the send succeeds. A failed send removes
// the pending copy and returns the error.
func (s *ChatService) SendMessage(ctx context.Context, chatId, content string, replyTo *entity.Message) (*entity.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if chatId == "" {
		return nil, ErrNoConversation
	}

	clientId, err := s.ids.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate client id: %w", err)
	}

	s.store.AddPending(chatId, entity.NewPendingMessage(clientId, chatId, s.me, content, replyTo))

	req := &sdk.SendMessageRequest{Content: content}
	if replyTo != nil {
		id := replyTo.Id
		req.ReplyToId = &id
	}

	msg, err := s.api.SendMessage(ctx, chatId, req)
	if err != nil {
		s.store.DropPending(chatId, clientId)
		log.CtxWarn(ctx, "send message failed: chat_id=%s, client_id=%s, error=%v", chatId, clientId, err)
		return nil, err
	}

	s.store.ConfirmPending(chatId, clientId, msg)
	log.CtxDebug(ctx, "message sent: chat_id=%s, message_id=%s", chatId, msg.Id)
	return msg, nil
}

// DraftConversation is the placeholder shown for a person without a
// direct chat yet; the chat is created by the first message.
func DraftConversation(person entity.Person) *entity.Conversation {
	return &entity.Conversation{
		Name:    person.Username,
		Members: []entity.Person{person},
	}
}

// OpenDirect returns the direct chat with person, or a draft when none exists
func (s *ChatService) OpenDirect(ctx context.Context, person entity.Person) (*entity.Conversation, error) {
	conv, err := s.api.GetDirectChat(ctx, person.Username)
	if err != nil {
		if sdk.IsNotFound(err) {
			log.CtxDebug(ctx, "no direct chat yet: username=%s", person.Username)
			return DraftConversation(person), nil
		}
		return nil, err
	}
	return conv, nil
}

// SendFirstMessage creates the chat behind a draft and sends content to it.
// For an existing chat it only sends.
func (s *ChatService) SendFirstMessage(ctx context.Context, conv *entity.Conversation, content string) (*entity.Conversation, *entity.Message, error) {
	if strings.TrimSpace(content) == "" {
		return conv, nil, ErrEmptyMessage
	}

	if conv.IsDraft() {
		if len(conv.Members) == 0 {
			return conv, nil, ErrNoMembers
		}
		username := conv.Members[0].Username
		created, err := s.api.CreateChat(ctx, &sdk.CreateChatRequest{
			Name:        username,
			MembersList: []string{username},
		})
		if err != nil {
			log.CtxWarn(ctx, "create direct chat failed: username=%s, error=%v", username, err)
			return conv, nil, err
		}
		conv = created
	}

	msg, err := s.SendMessage(ctx, conv.Id, content, nil)
	return conv, msg, err
}

// CreateGroup creates a named chat with the given members
func (s *ChatService) CreateGroup(ctx context.Context, name string, members []string) (*entity.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyGroupName
	}

	seen := make(map[string]struct{}, len(members))
	list := make([]string, 0, len(members))
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		list = append(list, m)
	}
	if len(list) == 0 {
		return nil, ErrNoMembers
	}

	conv, err := s.api.CreateChat(ctx, &sdk.CreateChatRequest{Name: name, MembersList: list})
	if err != nil {
		log.CtxWarn(ctx, "create group failed: name=%s, error=%v", name, err)
		return nil, err
	}
	return conv, nil
}
