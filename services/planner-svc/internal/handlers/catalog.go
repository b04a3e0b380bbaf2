package handlers

import (
	"net/http"
	"strings"

	"skypath/pkg/apperror"
	"skypath/pkg/domain"
	"skypath/services/planner-svc/internal/render"
	"skypath/services/planner-svc/internal/service"
)

// CatalogHandler обработчики справочной информации о сети
type CatalogHandler struct {
	planner  *service.Planner
	renderer *render.Service
}

// NewCatalogHandler создаёт обработчик
func NewCatalogHandler(planner *service.Planner, renderer *render.Service) *CatalogHandler {
	return &CatalogHandler{planner: planner, renderer: renderer}
}

type airportsResponse struct {
	Airports []service.AirportInfo `json:"airports"`
	Total    int                   `json:"total"`
}

type flightView struct {
	*domain.Flight
	DepartureClock string `json:"departure_clock"`
	ArrivalClock   string `json:"arrival_clock"`
}

type flightsResponse struct {
	Flights []flightView `json:"flights"`
	Total   int          `json:"total"`
}

type statsResponse struct {
	*domain.NetworkStatistics
	Fingerprint string `json:"fingerprint"`
}

// Airports возвращает аэропорты сети
func (h *CatalogHandler) Airports(w http.ResponseWriter, r *http.Request) {
	airports := h.planner.Airports()
	writeJSON(w, http.StatusOK, airportsResponse{Airports: airports, Total: len(airports)})
}

// Flights возвращает рейсы с фильтрами origin и dest
func (h *CatalogHandler) Flights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin := strings.TrimSpace(q.Get("origin"))
	dest := strings.TrimSpace(q.Get("dest"))

	n, _ := h.planner.Network()
	for _, p := range [][2]string{{"origin", origin}, {"dest", dest}} {
		if p[1] != "" && !n.HasVertex(p[1]) {
			writeError(w, r, apperror.Newf(apperror.CodeUnknownVertex, "unknown airport %q", p[1]).WithField(p[0]))
			return
		}
	}

	flights := h.planner.Flights(origin, dest)
	out := make([]flightView, len(flights))
	for i, f := range flights {
		out[i] = flightView{
			Flight:         f,
			DepartureClock: domain.FormatHour(f.Departure),
			ArrivalClock:   domain.FormatHour(f.Arrival),
		}
	}
	writeJSON(w, http.StatusOK, flightsResponse{Flights: out, Total: len(out)})
}

// Stats возвращает статистику сети
func (h *CatalogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	_, fp := h.planner.Network()
	writeJSON(w, http.StatusOK, statsResponse{NetworkStatistics: h.planner.Statistics(), Fingerprint: fp})
}

// Render рисует всю сеть без маршрута (dot или geojson)
func (h *CatalogHandler) Render(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if format != render.FormatDOT && format != render.FormatGeoJSON {
		writeError(w, r, apperror.Newf(apperror.CodeRenderFormat,
			"network can be rendered only as dot or geojson, got %s", format).WithField("format"))
		return
	}

	n, _ := h.planner.Network()
	out, err := h.renderer.Render(r.Context(), format, &render.Data{Network: n})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDocument(w, format, "network", out)
}
