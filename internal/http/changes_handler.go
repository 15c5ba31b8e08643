package httpapi

import (
	"net/http"

	"hotelhub-linencount/internal/service"

	"go.uber.org/zap"
)

// ChangesHandler 变更轮询 Handler
type ChangesHandler struct {
	feed   *service.ChangeFeedService
	logger *zap.Logger
}

// NewChangesHandler 创建变更轮询 Handler
func NewChangesHandler(feed *service.ChangeFeedService, logger *zap.Logger) *ChangesHandler {
	return &ChangesHandler{feed: feed, logger: logger}
}

// Poll 轮询变更并上报在线状态
// GET /linen/api/v1/changes?location_id=&date=&cursor=&room_id=&current_room=&detail_open=
func (h *ChangesHandler) Poll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	resp, err := h.feed.Poll(r.Context(), service.PollRequest{
		LocationID:  parseInt64(q.Get("location_id"), 0),
		Date:        q.Get("date"),
		Cursor:      parseInt64(q.Get("cursor"), 0),
		RoomID:      q.Get("room_id"),
		CurrentRoom: q.Get("current_room"),
		DetailOpen:  q.Get("detail_open") == "1" || q.Get("detail_open") == "true",
		Actor:       actor,
	})
	if err != nil {
		h.logger.Warn("Poll failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
