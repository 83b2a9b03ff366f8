package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/psychedhire/psychedhire-api/internal/middleware"
	"github.com/psychedhire/psychedhire-api/internal/models"
	"github.com/psychedhire/psychedhire-api/internal/service"
	"github.com/psychedhire/psychedhire-api/pkg/response"
)

type notificationRepoStub struct {
	items  []models.Notification
	marked []string
}

func (s *notificationRepoStub) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	var out []models.Notification
	for _, n := range s.items {
		if n.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (s *notificationRepoStub) CountUnread(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range s.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	s.items = append(s.items, *n)
	return nil
}

func (s *notificationRepoStub) MarkRead(ctx context.Context, userID, id string) error {
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID {
			s.items[i].Read = true
			s.marked = append(s.marked, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *notificationRepoStub) MarkAllRead(ctx context.Context, userID string) (int, error) {
	count := 0
	for i := range s.items {
		if s.items[i].UserID == userID && !s.items[i].Read {
			s.items[i].Read = true
			count++
		}
	}
	return count, nil
}

func newNotificationHandler(repo *notificationRepoStub) *NotificationHandler {
	return NewNotificationHandler(service.NewNotificationService(repo, nil))
}

func TestNotificationHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &notificationRepoStub{items: []models.Notification{
		{ID: "n1", UserID: "u1", Message: "Your district has been approved.", Read: false},
		{ID: "n2", UserID: "u1", Message: "Older news", Read: true},
		{ID: "n3", UserID: "u2", Message: "Not yours"},
	}}
	handler := newNotificationHandler(repo)

	c, w := newGinContext(http.MethodGet, "/notifications?unread=true", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleDistrict})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	require.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestNotificationHandlerUnreadCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &notificationRepoStub{items: []models.Notification{
		{ID: "n1", UserID: "u1", Read: false},
		{ID: "n2", UserID: "u1", Read: false},
	}}
	handler := newNotificationHandler(repo)

	c, w := newGinContext(http.MethodGet, "/notifications/unread-count", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleDistrict})

	handler.UnreadCount(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"unread":2`)
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &notificationRepoStub{items: []models.Notification{
		{ID: "n1", UserID: "u1", Read: false},
	}}
	handler := newNotificationHandler(repo)

	c, w := newGinContext(http.MethodPost, "/notifications/n1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "n1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleDistrict})

	handler.MarkRead(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, []string{"n1"}, repo.marked)
}

func TestNotificationHandlerMarkReadForeign(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &notificationRepoStub{items: []models.Notification{
		{ID: "n1", UserID: "u2", Read: false},
	}}
	handler := newNotificationHandler(repo)

	c, w := newGinContext(http.MethodPost, "/notifications/n1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "n1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleDistrict})

	handler.MarkRead(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationHandlerRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newNotificationHandler(&notificationRepoStub{})

	c, w := newGinContext(http.MethodGet, "/notifications", nil)
	handler.List(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
