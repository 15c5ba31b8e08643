package service

import (
	"context"
	"fmt"

	"hotelhub-linencount/internal/domain"
	"hotelhub-linencount/internal/repository"
	"hotelhub-linencount/internal/store"

	"go.uber.org/zap"
)

// PresenceTracker 在线状态跟踪（Redis实现见 store.PresenceStore）
type PresenceTracker interface {
	Touch(ctx context.Context, locationID int64, date string, user store.ActiveUser) error
	ActiveUsers(ctx context.Context, locationID int64, date string, excludeUserID string) ([]store.ActiveUser, error)
}

// ChangeFeedService 变更轮询服务
// Serves the near-real-time poll loop: records the caller's presence,
// returns rows changed past the caller's cursor, and reports who else is
// active on the same location/date.
type ChangeFeedService struct {
	counts     repository.CountsRepository
	presence   PresenceTracker
	authorizer Authorizer
	names      NameResolver
	logger     *zap.Logger
}

// NewChangeFeedService 创建变更轮询服务
func NewChangeFeedService(counts repository.CountsRepository, presence PresenceTracker, authorizer Authorizer, names NameResolver, logger *zap.Logger) *ChangeFeedService {
	return &ChangeFeedService{
		counts:     counts,
		presence:   presence,
		authorizer: authorizer,
		names:      names,
		logger:     logger,
	}
}

// PollRequest 轮询请求
type PollRequest struct {
	LocationID  int64
	Date        string
	Cursor      int64
	RoomID      string // optional: scope changes to one room
	CurrentRoom string // what the caller is viewing, for presence
	DetailOpen  bool
	Actor       domain.Actor
}

// ChangedRow 变更行
type ChangedRow struct {
	RoomID            string `json:"room_id"`
	LinenItemID       string `json:"linen_item_id"`
	Count             int    `json:"count"`
	Status            string `json:"status"`
	SubmittedBy       string `json:"submitted_by"`
	SubmittedByName   string `json:"submitted_by_name"`
	LastUpdatedBy     string `json:"last_updated_by,omitempty"`
	LastUpdatedByName string `json:"last_updated_by_name,omitempty"`
	ChangeSeq         int64  `json:"change_seq"`
}

// ActiveUserView 在线用户（前端格式）
type ActiveUserView struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	CurrentRoom string `json:"current_room,omitempty"`
	DetailOpen  bool   `json:"detail_open"`
}

// PollResponse 轮询响应
type PollResponse struct {
	Changes     []ChangedRow     `json:"changes"`
	Cursor      int64            `json:"cursor"`
	ActiveUsers []ActiveUserView `json:"active_users"`
}

// Poll 轮询变更
// The returned Cursor is the highest change_seq delivered, or the request
// cursor unchanged when nothing moved; feeding it back yields each change
// exactly once. Presence failures degrade the ActiveUsers list but never
// fail the poll.
func (s *ChangeFeedService) Poll(ctx context.Context, req PollRequest) (*PollResponse, error) {
	if req.LocationID == 0 || !validDate(req.Date) || req.Cursor < 0 {
		return nil, ErrInvalidInput
	}
	if !s.authorizer.Can(ctx, req.Actor, domain.CapAccessModule) {
		return nil, ErrForbidden
	}

	if err := s.presence.Touch(ctx, req.LocationID, req.Date, store.ActiveUser{
		UserID:      req.Actor.UserID,
		DisplayName: req.Actor.DisplayName,
		CurrentRoom: req.CurrentRoom,
		DetailOpen:  req.DetailOpen,
	}); err != nil {
		s.logger.Warn("Failed to record presence", zap.Error(err))
	}

	records, err := s.counts.ChangesSince(ctx, req.LocationID, req.Date, req.Cursor, req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	changes := make([]ChangedRow, 0, len(records))
	cursor := req.Cursor
	for _, rec := range records {
		row := ChangedRow{
			RoomID:          rec.RoomID,
			LinenItemID:     rec.LinenItemID,
			Count:           rec.Count,
			Status:          string(rec.Status),
			SubmittedBy:     rec.SubmittedBy,
			SubmittedByName: s.names.UserName(rec.SubmittedBy),
			ChangeSeq:       rec.ChangeSeq,
		}
		if rec.LastUpdatedBy.Valid {
			row.LastUpdatedBy = rec.LastUpdatedBy.String
			row.LastUpdatedByName = s.names.UserName(rec.LastUpdatedBy.String)
		}
		changes = append(changes, row)
		if rec.ChangeSeq > cursor {
			cursor = rec.ChangeSeq
		}
	}

	users, err := s.presence.ActiveUsers(ctx, req.LocationID, req.Date, req.Actor.UserID)
	if err != nil {
		s.logger.Warn("Failed to list active users", zap.Error(err))
		users = nil
	}
	active := make([]ActiveUserView, 0, len(users))
	for _, u := range users {
		active = append(active, ActiveUserView{
			UserID:      u.UserID,
			DisplayName: u.DisplayName,
			CurrentRoom: u.CurrentRoom,
			DetailOpen:  u.DetailOpen,
		})
	}

	return &PollResponse{Changes: changes, Cursor: cursor, ActiveUsers: active}, nil
}
