package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"ticket-fulfillment/internal/model"
	apperrors "ticket-fulfillment/pkg/app_errors"
)

// DirectoryClient 使用者與活動的存在檢查
type DirectoryClient interface {
	UserExists(ctx context.Context, userID string) error
	EventExists(ctx context.Context, eventID string) error
	// EventStatus 回傳活動販售狀態，例如 ON_SALE
	EventStatus(ctx context.Context, eventID string) (string, error)
}

type DirectoryClientImpl struct {
	users   *Client
	catalog *Client
}

func NewDirectoryClient(users *Client, catalog *Client) DirectoryClient {
	return &DirectoryClientImpl{users: users, catalog: catalog}
}

func (c *DirectoryClientImpl) UserExists(ctx context.Context, userID string) error {
	if c.users == nil {
		return nil
	}
	return c.users.Do(ctx, Call{
		Method: http.MethodGet,
		Path:   "/" + url.PathEscape(userID),
		Errors: map[int]error{http.StatusNotFound: apperrors.ErrUserNotFound},
	})
}

func (c *DirectoryClientImpl) EventExists(ctx context.Context, eventID string) error {
	_, err := c.event(ctx, eventID)
	return err
}

func (c *DirectoryClientImpl) EventStatus(ctx context.Context, eventID string) (string, error) {
	info, err := c.event(ctx, eventID)
	if err != nil {
		return "", err
	}
	return info.Status, nil
}

func (c *DirectoryClientImpl) event(ctx context.Context, eventID string) (*model.EventInfo, error) {
	if c.catalog == nil {
		return nil, errors.New("catalog service not configured")
	}
	var info model.EventInfo
	err := c.catalog.Do(ctx, Call{
		Method: http.MethodGet,
		Path:   "/" + url.PathEscape(eventID),
		Out:    &info,
		Errors: map[int]error{http.StatusNotFound: apperrors.ErrEventNotFound},
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}
