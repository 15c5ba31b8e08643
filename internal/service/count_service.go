package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotelhub-linencount/internal/domain"
	"hotelhub-linencount/internal/repository"

	"go.uber.org/zap"
)

// NameResolver 将用户ID解析为显示名（宿主应用提供）
type NameResolver interface {
	UserName(userID string) string
}

// IdentityResolver: 无宿主环境下的名称解析，直接回显用户ID
type IdentityResolver struct{}

func (IdentityResolver) UserName(userID string) string { return userID }

// CountService 计数账本服务
// Owns the draft/submit/unlock lifecycle of CountRecord rows.
type CountService struct {
	counts     repository.CountsRepository
	settings   repository.SettingsRepository
	authorizer Authorizer
	names      NameResolver
	logger     *zap.Logger
	now        func() time.Time
}

// NewCountService 创建计数账本服务
func NewCountService(counts repository.CountsRepository, settings repository.SettingsRepository, authorizer Authorizer, names NameResolver, logger *zap.Logger) *CountService {
	return &CountService{
		counts:     counts,
		settings:   settings,
		authorizer: authorizer,
		names:      names,
		logger:     logger,
		now:        time.Now,
	}
}

const timeOfDayFormat = "15:04"

// validDate 校验 YYYY-MM-DD 日期
func validDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func (s *CountService) moduleEnabled(ctx context.Context, locationID int64) error {
	settings, err := s.settings.GetSettings(ctx, locationID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !settings.Enabled {
		return ErrModuleDisabled
	}
	return nil
}

// GetCountsRequest 查询房间计数请求
type GetCountsRequest struct {
	LocationID int64
	RoomID     string
	Date       string
	Actor      domain.Actor
}

// GetCountsResponse 查询房间计数响应
type GetCountsResponse struct {
	Counts  []CountRow `json:"counts"`
	HasData bool       `json:"has_data"`
}

// CountRow 计数记录（前端格式）
type CountRow struct {
	LinenItemID       string `json:"linen_item_id"`
	Count             int    `json:"count"`
	Status            string `json:"status"`
	SubmittedBy       string `json:"submitted_by"`
	SubmittedByName   string `json:"submitted_by_name"`
	SubmittedAt       string `json:"submitted_at"`
	LastUpdatedBy     string `json:"last_updated_by,omitempty"`
	LastUpdatedByName string `json:"last_updated_by_name,omitempty"`
	LastUpdatedAt     string `json:"last_updated_at,omitempty"`
	BookingRef        string `json:"booking_ref,omitempty"`
	ChangeSeq         int64  `json:"change_seq"`
}

func (s *CountService) toCountRow(rec *domain.CountRecord) CountRow {
	row := CountRow{
		LinenItemID:     rec.LinenItemID,
		Count:           rec.Count,
		Status:          string(rec.Status),
		SubmittedBy:     rec.SubmittedBy,
		SubmittedByName: s.names.UserName(rec.SubmittedBy),
		SubmittedAt:     rec.SubmittedAt.Format(time.RFC3339),
		ChangeSeq:       rec.ChangeSeq,
	}
	if rec.LastUpdatedBy.Valid {
		row.LastUpdatedBy = rec.LastUpdatedBy.String
		row.LastUpdatedByName = s.names.UserName(rec.LastUpdatedBy.String)
	}
	if rec.LastUpdatedAt.Valid {
		row.LastUpdatedAt = rec.LastUpdatedAt.Time.Format(time.RFC3339)
	}
	if rec.BookingRef.Valid {
		row.BookingRef = rec.BookingRef.String
	}
	return row
}

// GetRoomCounts 查询房间/日期的全部计数行
// An empty Counts slice with HasData=false means "no data yet": the UI
// renders a zero-valued, unlocked form.
func (s *CountService) GetRoomCounts(ctx context.Context, req GetCountsRequest) (*GetCountsResponse, error) {
	if req.LocationID == 0 || req.RoomID == "" || !validDate(req.Date) {
		return nil, ErrInvalidInput
	}
	if !s.authorizer.Can(ctx, req.Actor, domain.CapAccessModule) {
		return nil, ErrForbidden
	}

	records, err := s.counts.GetRoomCounts(ctx, req.LocationID, req.RoomID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	rows := make([]CountRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, s.toCountRow(rec))
	}
	return &GetCountsResponse{Counts: rows, HasData: len(rows) > 0}, nil
}

// DraftSaveRequest 自动保存请求
type DraftSaveRequest struct {
	LocationID int64
	RoomID     string
	Date       string
	ItemID     string
	Count      int
	BookingRef string
	Actor      domain.Actor
}

// DraftSaveResponse 自动保存响应
type DraftSaveResponse struct {
	Message string `json:"message"`
	SavedBy string `json:"saved_by"`
	SavedAt string `json:"saved_at"`
	Cursor  int64  `json:"cursor"`
}

// DraftSave 保存单条草稿（自动保存路径）
// Amending an already-submitted row is an explicit privileged path: it
// requires the edit-submitted capability and keeps the row locked.
func (s *CountService) DraftSave(ctx context.Context, req DraftSaveRequest) (*DraftSaveResponse, error) {
	if req.LocationID == 0 || req.RoomID == "" || req.ItemID == "" || !validDate(req.Date) {
		return nil, ErrInvalidInput
	}
	if !s.authorizer.Can(ctx, req.Actor, domain.CapAccessModule) {
		return nil, ErrForbidden
	}
	if err := s.moduleEnabled(ctx, req.LocationID); err != nil {
		return nil, err
	}

	count := req.Count
	if count < 0 {
		count = 0
	}

	existing, err := s.counts.GetRecord(ctx, req.LocationID, req.RoomID, req.ItemID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if existing != nil && existing.Status.Locked() &&
		!s.authorizer.Can(ctx, req.Actor, domain.CapEditSubmitted) {
		return nil, ErrLocked
	}

	now := s.now()
	rec, err := s.counts.SaveDraft(ctx, repository.DraftWrite{
		LocationID: req.LocationID,
		RoomID:     req.RoomID,
		ItemID:     req.ItemID,
		Date:       req.Date,
		Count:      count,
		ActorID:    req.Actor.UserID,
		BookingRef: req.BookingRef,
		Now:        now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Debug("Draft saved",
		zap.Int64("location_id", req.LocationID),
		zap.String("room_id", req.RoomID),
		zap.String("item_id", req.ItemID),
		zap.Int("count", count),
		zap.Int64("change_seq", rec.ChangeSeq))

	return &DraftSaveResponse{
		Message: "Auto-saved",
		SavedBy: s.names.UserName(req.Actor.UserID),
		SavedAt: now.Format(timeOfDayFormat),
		Cursor:  rec.ChangeSeq,
	}, nil
}

// SubmitRequest 整房提交请求
type SubmitRequest struct {
	LocationID int64
	RoomID     string
	Date       string
	Counts     map[string]int
	BookingRef string
	Actor      domain.Actor
}

// SubmitResponse 整房提交响应
type SubmitResponse struct {
	Message     string `json:"message"`
	SubmittedBy string `json:"submitted_by"`
	SubmittedAt string `json:"submitted_at"`
	IsUpdate    bool   `json:"is_update"`
}

// Submit 整房提交：锁定本次调用携带的全部条目计数
// All rows of one call commit atomically; a partial failure leaves the
// stored state untouched.
func (s *CountService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if req.LocationID == 0 || req.RoomID == "" || !validDate(req.Date) || len(req.Counts) == 0 {
		return nil, ErrInvalidInput
	}
	for itemID := range req.Counts {
		if itemID == "" {
			return nil, ErrInvalidInput
		}
	}
	if !s.authorizer.Can(ctx, req.Actor, domain.CapAccessModule) {
		return nil, ErrForbidden
	}
	if err := s.moduleEnabled(ctx, req.LocationID); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(req.Counts))
	for itemID, count := range req.Counts {
		if count < 0 {
			count = 0
		}
		counts[itemID] = count
	}

	now := s.now()
	isUpdate, err := s.counts.Submit(ctx, repository.SubmitWrite{
		LocationID:  req.LocationID,
		RoomID:      req.RoomID,
		Date:        req.Date,
		Counts:      counts,
		ActorID:     req.Actor.UserID,
		BookingRef:  req.BookingRef,
		Now:         now,
		AllowLocked: s.authorizer.Can(ctx, req.Actor, domain.CapEditSubmitted),
	})
	if err != nil {
		if errors.Is(err, repository.ErrLockedRows) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	message := "Linen count submitted successfully"
	if isUpdate {
		message = "Linen count updated successfully"
	}

	s.logger.Info("Linen count submitted",
		zap.Int64("location_id", req.LocationID),
		zap.String("room_id", req.RoomID),
		zap.String("date", req.Date),
		zap.Int("items", len(counts)),
		zap.Bool("is_update", isUpdate),
		zap.String("submitted_by", req.Actor.UserID))

	return &SubmitResponse{
		Message:     message,
		SubmittedBy: s.names.UserName(req.Actor.UserID),
		SubmittedAt: now.Format(timeOfDayFormat),
		IsUpdate:    isUpdate,
	}, nil
}

// UnlockRequest 解锁请求
type UnlockRequest struct {
	LocationID int64
	RoomID     string
	Date       string
	Actor      domain.Actor
}

// UnlockResponse 解锁响应
type UnlockResponse struct {
	Message string `json:"message"`
}

// Unlock 解锁整个房间/日期，计数与审计字段保持不变
func (s *CountService) Unlock(ctx context.Context, req UnlockRequest) (*UnlockResponse, error) {
	if req.LocationID == 0 || req.RoomID == "" || !validDate(req.Date) {
		return nil, ErrInvalidInput
	}
	if !s.authorizer.Can(ctx, req.Actor, domain.CapAccessModule) {
		return nil, ErrForbidden
	}
	if !s.authorizer.Can(ctx, req.Actor, domain.CapEditSubmitted) {
		return nil, ErrForbidden
	}

	if _, err := s.counts.Unlock(ctx, req.LocationID, req.RoomID, req.Date); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Info("Linen count unlocked",
		zap.Int64("location_id", req.LocationID),
		zap.String("room_id", req.RoomID),
		zap.String("date", req.Date),
		zap.String("unlocked_by", req.Actor.UserID))

	return &UnlockResponse{Message: "Count unlocked for editing"}, nil
}

// SubmitAllRequest 提交全部未提交请求
type SubmitAllRequest struct {
	LocationID int64
	Date       string
	Actor      domain.Actor
}

// SubmitAllResponse 提交全部未提交响应
type SubmitAllResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

// SubmitAllUnsubmitted 锁定位置/日期下的全部草稿
// Count reports how many rows were locked; zero means there was nothing to
// submit, which the handler surfaces as a failure to match the host UI.
func (s *CountService) SubmitAllUnsubmitted(ctx context.Context, req SubmitAllRequest) (*SubmitAllResponse, error) {
	if req.LocationID == 0 || !validDate(req.Date) {
		return nil, ErrInvalidInput
	}
	if !s.authorizer.Can(ctx, req.Actor, domain.CapAccessModule) {
		return nil, ErrForbidden
	}

	affected, err := s.counts.LockAllDrafts(ctx, req.LocationID, req.Date, req.Actor.UserID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return &SubmitAllResponse{
		Message: fmt.Sprintf("%d room count(s) submitted successfully", affected),
		Count:   affected,
	}, nil
}
