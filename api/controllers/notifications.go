package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/auctionhouse-backend/api/responses"
	"github.com/angelmondragon/auctionhouse-backend/api/validators"
	"github.com/angelmondragon/auctionhouse-backend/internal/notifications"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/pagination"
)

const maxCursorLength = 512

type notificationView struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	Priority  string         `json:"priority"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	ActionURL *string        `json:"action_url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type inboxPage struct {
	Items       []notificationView `json:"items"`
	Cursor      string             `json:"cursor,omitempty"`
	UnreadCount int64              `json:"unread_count"`
}

// inboxHandler resolves the caller and writes whatever fn returns as the
// success payload.
func inboxHandler(svc notifications.Service, logg *logger.Logger, fn func(r *http.Request, userID uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := func() (any, error) {
			if svc == nil {
				return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable")
			}
			userID, err := UserIDFromRequest(r)
			if err != nil {
				return nil, err
			}
			return fn(r, userID)
		}()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

// ListNotifications returns the caller's inbox newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		params, err := inboxParams(r, userID)
		if err != nil {
			return nil, err
		}
		result, err := svc.List(r.Context(), params)
		if err != nil {
			return nil, err
		}
		return toInboxPage(result), nil
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		id, err := PathUUID(r, "notificationId")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), userID, id); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		n, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": n}, nil
	})
}

func inboxParams(r *http.Request, userID uuid.UUID) (notifications.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return notifications.ListParams{}, err
	}
	q := r.URL.Query()
	params := notifications.ListParams{
		UserID: userID,
		Limit:  limit,
		Cursor: validators.SanitizeString(q.Get("cursor"), maxCursorLength),
	}
	if raw := strings.TrimSpace(q.Get("unreadOnly")); raw != "" {
		if params.UnreadOnly, err = strconv.ParseBool(raw); err != nil {
			return notifications.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unreadOnly value")
		}
	}
	return params, nil
}

func toInboxPage(result *notifications.ListResult) inboxPage {
	page := inboxPage{Items: []notificationView{}}
	if result == nil {
		return page
	}
	page.Cursor = result.Cursor
	page.UnreadCount = result.UnreadCount
	for _, n := range result.Items {
		page.Items = append(page.Items, toNotificationView(n))
	}
	return page
}

func toNotificationView(n models.Notification) notificationView {
	view := notificationView{
		ID:        n.ID,
		Type:      string(n.Type),
		Priority:  string(n.Priority),
		Title:     n.Title,
		Message:   n.Message,
		ActionURL: n.ActionURL,
		ReadAt:    n.ReadAt,
		ExpiresAt: n.ExpiresAt,
		CreatedAt: n.CreatedAt,
	}
	// unreadable metadata is dropped rather than failing the page
	if len(n.Metadata) > 0 {
		_ = json.Unmarshal(n.Metadata, &view.Metadata)
	}
	return view
}

func chiURLParam(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}
