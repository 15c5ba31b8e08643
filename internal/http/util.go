package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"hotelhub-linencount/internal/domain"
	"hotelhub-linencount/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// actorFromReq 从网关注入的请求头中还原当前用户
// The hub gateway authenticates the session and forwards identity headers;
// this service trusts them.
func actorFromReq(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor := domain.Actor{
		UserID:      r.Header.Get("X-User-Id"),
		DisplayName: r.Header.Get("X-User-Name"),
		Role:        r.Header.Get("X-User-Role"),
	}
	if actor.UserID == "" {
		writeJSON(w, http.StatusOK, Fail("user ID is required"))
		return domain.Actor{}, false
	}
	if actor.Role == "" {
		writeJSON(w, http.StatusOK, Fail("user role is required"))
		return domain.Actor{}, false
	}
	if actor.DisplayName == "" {
		actor.DisplayName = actor.UserID
	}
	return actor, true
}

// writeServiceError 将服务层错误映射为前端可读的失败信息
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeJSON(w, http.StatusOK, Fail("invalid request parameters"))
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusOK, Fail("permission denied"))
	case errors.Is(err, service.ErrLocked):
		writeJSON(w, http.StatusOK, Fail("this count has been submitted and is locked"))
	case errors.Is(err, service.ErrModuleDisabled):
		writeJSON(w, http.StatusOK, Fail("linen count module is disabled for this location"))
	default:
		writeJSON(w, http.StatusOK, Fail("internal error"))
	}
}
