package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterCountRoutes 注册计数账本路由
func (r *Router) RegisterCountRoutes(h *CountHandler) {
	r.Handle("/linen/api/v1/counts", methodOnly(http.MethodGet, h.GetCounts))
	r.Handle("/linen/api/v1/counts/autosave", methodOnly(http.MethodPost, h.Autosave))
	r.Handle("/linen/api/v1/counts/submit", methodOnly(http.MethodPost, h.Submit))
	r.Handle("/linen/api/v1/counts/unlock", methodOnly(http.MethodPost, h.Unlock))
	r.Handle("/linen/api/v1/counts/submit-all", methodOnly(http.MethodPost, h.SubmitAll))
}

// RegisterChangeRoutes 注册变更轮询路由
func (r *Router) RegisterChangeRoutes(h *ChangesHandler) {
	r.Handle("/linen/api/v1/changes", methodOnly(http.MethodGet, h.Poll))
}

// RegisterReportRoutes 注册报表路由
func (r *Router) RegisterReportRoutes(h *ReportHandler) {
	r.Handle("/linen/api/v1/reports/today", methodOnly(http.MethodGet, h.Today))
	r.Handle("/linen/api/v1/reports/totals", methodOnly(http.MethodGet, h.Totals))
	r.Handle("/linen/api/v1/reports/range", methodOnly(http.MethodGet, h.Range))
	r.Handle("/linen/api/v1/reports/calendar", methodOnly(http.MethodGet, h.Calendar))
	r.Handle("/linen/api/v1/reports/export", methodOnly(http.MethodGet, h.Export))
}

// RegisterSettingsRoutes 注册配置与位置路由
func (r *Router) RegisterSettingsRoutes(h *SettingsHandler) {
	r.Handle("/linen/api/v1/settings", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.GetSettings(w, req)
		case http.MethodPut:
			h.SaveSettings(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	r.Handle("/linen/api/v1/locations", methodOnly(http.MethodGet, h.ListLocations))
}
