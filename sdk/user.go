package sdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/mbeoliero/nexochat/internal/entity"
)

// SearchUsers gets one page of people matching query
func (c *Client) SearchUsers(ctx context.Context, query string, page, size int) (*entity.Page[*entity.Person], error) {
	var result entity.Page[*entity.Person]
	if err := c.get(ctx, "/users", pageParams(query, page, size, ""), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateMe updates the current user's names
func (c *Client) UpdateMe(ctx context.Context, req *UpdateMeRequest) error {
	return c.put(ctx, "/users/me", req, nil)
}

// UpdateProfilePicture uploads a new profile picture as multipart form field "file"
func (c *Client) UpdateProfilePicture(ctx context.Context, filename string, r io.Reader) (*ProfilePictureResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read picture: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode form: %w", err)
	}

	var result ProfilePictureResponse
	if err := c.do(ctx, consts.MethodPut, "/users/me/profile-picture", nil, w.FormDataContentType(), buf.Bytes(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
