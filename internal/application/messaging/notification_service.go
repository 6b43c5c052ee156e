package messaging

import (
	"context"

	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/notification"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// NotificationService reads and acknowledges a company's notifications
type NotificationService struct {
	notifications notification.Repository
	logger        *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifications notification.Repository, logger *zap.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, logger: logger}
}

// List returns the actor company's notifications, newest first
func (s *NotificationService) List(ctx context.Context, actor *identity.User, q NotificationQuery) (shared.Paginated[NotificationDTO], error) {
	page, err := s.notifications.ListByCompany(ctx, actor.CompanyID, notification.Filter{
		Pagination: shared.NewPagination(q.Page, q.PageSize),
		UnreadOnly: q.UnreadOnly,
	})
	if err != nil {
		return shared.Paginated[NotificationDTO]{}, err
	}
	items := make([]NotificationDTO, len(page.Items))
	for i, n := range page.Items {
		items[i] = ToNotificationDTO(n)
	}
	return shared.Paginated[NotificationDTO]{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// MarkRead flags one notification read
func (s *NotificationService) MarkRead(ctx context.Context, actor *identity.User, id string) (*NotificationDTO, error) {
	n, err := s.notifications.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.CompanyID != actor.CompanyID {
		return nil, shared.ErrNotFound
	}
	if n.MarkRead() {
		if err := s.notifications.Update(ctx, n); err != nil {
			return nil, err
		}
	}
	dto := ToNotificationDTO(n)
	return &dto, nil
}

// MarkAllRead flags every unread notification read and returns how many
// changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor *identity.User) (int, error) {
	marked := 0
	for {
		page, err := s.notifications.ListByCompany(ctx, actor.CompanyID, notification.Filter{
			Pagination: shared.NewPagination(1, shared.MaxPageSize),
			UnreadOnly: true,
		})
		if err != nil {
			return marked, err
		}
		changed := 0
		for _, n := range page.Items {
			if !n.MarkRead() {
				continue
			}
			if err := s.notifications.Update(ctx, n); err != nil {
				return marked, err
			}
			changed++
		}
		marked += changed
		if changed == 0 || int64(len(page.Items)) >= page.Total {
			break
		}
	}
	s.logger.Debug("Notifications marked read", zap.String("company_id", actor.CompanyID), zap.Int("count", marked))
	return marked, nil
}

// UnreadCount returns the number of unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, actor *identity.User) (int64, error) {
	return s.notifications.CountUnread(ctx, actor.CompanyID)
}
