package sdk

import (
	"context"
	"net/url"
	"strconv"

	"github.com/mbeoliero/nexochat/internal/entity"
	"github.com/mbeoliero/nexochat/pkg/constant"
)

func pageParams(query string, page, size int, sort string) url.Values {
	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	params.Set("page", strconv.Itoa(page))
	if size <= 0 {
		size = constant.DefaultPageSize
	}
	params.Set("size", strconv.Itoa(size))
	if sort != "" {
		params.Set("sort", sort)
	}
	return params
}

// ListMyChats gets one page of the current user's chats, most recent first
func (c *Client) ListMyChats(ctx context.Context, query string, page, size int) (*entity.Page[*entity.Conversation], error) {
	var result entity.Page[*entity.Conversation]
	if err := c.get(ctx, "/chats/me", pageParams(query, page, size, constant.SortChatsByRecent), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListMessages gets one page of a chat's messages, newest first
func (c *Client) ListMessages(ctx context.Context, chatId string, page, size int) (*entity.Page[*entity.Message], error) {
	var result entity.Page[*entity.Message]
	path := "/chats/" + url.PathEscape(chatId) + "/messages"
	if err := c.get(ctx, path, pageParams("", page, size, constant.SortMessagesDesc), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendMessage posts a message and returns the created message
func (c *Client) SendMessage(ctx context.Context, chatId string, req *SendMessageRequest) (*entity.Message, error) {
	var result entity.Message
	path := "/chats/" + url.PathEscape(chatId) + "/messages"
	if err := c.post(ctx, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateChat creates a chat, or returns the existing direct chat for the same member
func (c *Client) CreateChat(ctx context.Context, req *CreateChatRequest) (*entity.Conversation, error) {
	var result entity.Conversation
	if err := c.post(ctx, "/chats/me", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetDirectChat gets the direct chat with username. A missing chat is
// reported as an application error, see IsNotFound.
func (c *Client) GetDirectChat(ctx context.Context, username string) (*entity.Conversation, error) {
	var result entity.Conversation
	if err := c.get(ctx, "/chats/me/person/"+url.PathEscape(username), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
