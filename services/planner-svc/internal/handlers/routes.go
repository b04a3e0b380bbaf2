package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"skypath/pkg/logger"
	"skypath/services/planner-svc/internal/middleware"
	"skypath/services/planner-svc/internal/render"
	"skypath/services/planner-svc/internal/service"
)

// RoutesHandler обработчики планирования маршрутов
type RoutesHandler struct {
	planner  *service.Planner
	renderer *render.Service
}

// NewRoutesHandler создаёт обработчик
func NewRoutesHandler(planner *service.Planner, renderer *render.Service) *RoutesHandler {
	return &RoutesHandler{planner: planner, renderer: renderer}
}

type planRequest struct {
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	StartTime   float64 `json:"start_time"`
	Title       string  `json:"title,omitempty"`
}

type planResponse struct {
	*service.Itinerary
	ArrivalTime float64 `json:"arrival_time"`
}

func (req planRequest) toService() service.PlanRequest {
	return service.PlanRequest{
		Source:      strings.TrimSpace(req.Source),
		Destination: strings.TrimSpace(req.Destination),
		StartTime:   req.StartTime,
	}
}

// Plan ищет маршрут с самым ранним прибытием. Для аутентифицированного
// пользователя маршрут сохраняется в историю.
func (h *RoutesHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	pr := req.toService()
	if id, ok := middleware.GetUserID(r.Context()); ok {
		pr.UserID = id
	}

	it, err := h.planner.Plan(r.Context(), pr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := it.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, planResponse{Itinerary: it, ArrivalTime: it.ArrivalHours()})
}

// Render планирует маршрут без сохранения и возвращает документ в формате ?format=
func (h *RoutesHandler) Render(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	it, err := h.planner.Plan(r.Context(), req.toService())
	if err != nil {
		writeError(w, r, err)
		return
	}

	n, _ := h.planner.Network()
	out, err := h.renderer.Render(r.Context(), format, &render.Data{
		Itinerary: it,
		Network:   n,
		Title:     req.Title,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Debug("Itinerary rendered",
		"format", format, "bytes", len(out), "found", it.Found)
	writeDocument(w, format, fmt.Sprintf("itinerary-%s-%s", it.Source, it.Destination), out)
}

func writeDocument(w http.ResponseWriter, format render.Format, name string, body []byte) {
	h := w.Header()
	h.Set("Content-Type", format.ContentType())
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+format.Extension()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Log.Debug("Failed to write document", "error", err)
	}
}
