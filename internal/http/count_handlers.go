package httpapi

import (
	"net/http"

	"hotelhub-linencount/internal/service"

	"go.uber.org/zap"
)

const maxBodyBytes = 64 * 1024

// CountHandler 计数账本 Handler
type CountHandler struct {
	counts *service.CountService
	logger *zap.Logger
}

// NewCountHandler 创建计数账本 Handler
func NewCountHandler(counts *service.CountService, logger *zap.Logger) *CountHandler {
	return &CountHandler{counts: counts, logger: logger}
}

// GetCounts 查询房间/日期的计数行
// GET /linen/api/v1/counts?location_id=&room_id=&date=
func (h *CountHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	resp, err := h.counts.GetRoomCounts(r.Context(), service.GetCountsRequest{
		LocationID: parseInt64(q.Get("location_id"), 0),
		RoomID:     q.Get("room_id"),
		Date:       q.Get("date"),
		Actor:      actor,
	})
	if err != nil {
		h.logger.Warn("GetCounts failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

type autosaveBody struct {
	LocationID int64  `json:"location_id"`
	RoomID     string `json:"room_id"`
	Date       string `json:"date"`
	ItemID     string `json:"linen_item_id"`
	Count      int    `json:"count"`
	BookingRef string `json:"booking_ref"`
}

// Autosave 保存单条草稿
// POST /linen/api/v1/counts/autosave
func (h *CountHandler) Autosave(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	var body autosaveBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	resp, err := h.counts.DraftSave(r.Context(), service.DraftSaveRequest{
		LocationID: body.LocationID,
		RoomID:     body.RoomID,
		Date:       body.Date,
		ItemID:     body.ItemID,
		Count:      body.Count,
		BookingRef: body.BookingRef,
		Actor:      actor,
	})
	if err != nil {
		h.logger.Warn("Autosave failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

type submitBody struct {
	LocationID int64          `json:"location_id"`
	RoomID     string         `json:"room_id"`
	Date       string         `json:"date"`
	Counts     map[string]int `json:"counts"`
	BookingRef string         `json:"booking_ref"`
}

// Submit 整房提交
// POST /linen/api/v1/counts/submit
func (h *CountHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	var body submitBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	resp, err := h.counts.Submit(r.Context(), service.SubmitRequest{
		LocationID: body.LocationID,
		RoomID:     body.RoomID,
		Date:       body.Date,
		Counts:     body.Counts,
		BookingRef: body.BookingRef,
		Actor:      actor,
	})
	if err != nil {
		h.logger.Warn("Submit failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

type unlockBody struct {
	LocationID int64  `json:"location_id"`
	RoomID     string `json:"room_id"`
	Date       string `json:"date"`
}

// Unlock 解锁房间/日期
// POST /linen/api/v1/counts/unlock
func (h *CountHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	var body unlockBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	resp, err := h.counts.Unlock(r.Context(), service.UnlockRequest{
		LocationID: body.LocationID,
		RoomID:     body.RoomID,
		Date:       body.Date,
		Actor:      actor,
	})
	if err != nil {
		h.logger.Warn("Unlock failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

type submitAllBody struct {
	LocationID int64  `json:"location_id"`
	Date       string `json:"date"`
}

// SubmitAll 提交位置/日期下全部未提交草稿
// POST /linen/api/v1/counts/submit-all
func (h *CountHandler) SubmitAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	var body submitAllBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	resp, err := h.counts.SubmitAllUnsubmitted(r.Context(), service.SubmitAllRequest{
		LocationID: body.LocationID,
		Date:       body.Date,
		Actor:      actor,
	})
	if err != nil {
		h.logger.Warn("SubmitAll failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	if resp.Count == 0 {
		writeJSON(w, http.StatusOK, Fail("no unsubmitted counts found"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
