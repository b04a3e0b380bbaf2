package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"skypath/pkg/apperror"
	"skypath/pkg/domain"
	"skypath/services/planner-svc/internal/middleware"
	"skypath/services/planner-svc/internal/repository"
	"skypath/services/planner-svc/internal/service"
)

// TripsHandler обработчики истории поездок
type TripsHandler struct {
	planner      *service.Planner
	defaultLimit int
}

// NewTripsHandler создаёт обработчик
func NewTripsHandler(planner *service.Planner, defaultLimit int) *TripsHandler {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &TripsHandler{planner: planner, defaultLimit: defaultLimit}
}

type tripLegView struct {
	Seq          int    `json:"seq"`
	FlightID     string `json:"flight_id"`
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	Departure    string `json:"departure"`
	Arrival      string `json:"arrival"`
	DelayMinutes int    `json:"delay_minutes"`
}

type tripView struct {
	ID           string        `json:"id"`
	Source       string        `json:"source"`
	Destination  string        `json:"destination"`
	StartTime    float64       `json:"start_time"`
	Itinerary    string        `json:"itinerary"`
	FlightIDs    []string      `json:"flight_ids"`
	ArrivalTime  float64       `json:"arrival_time"`
	ArrivalClock string        `json:"arrival_clock"`
	DelayMinutes int           `json:"delay_minutes"`
	Legs         []tripLegView `json:"legs,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

type tripsResponse struct {
	Trips []tripView `json:"trips"`
	Total int        `json:"total"`
}

// List возвращает поездки текущего пользователя, новые первыми
func (h *TripsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	limit := h.defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeError(w, r, apperror.NewWithField(apperror.CodeInvalidArgument,
				"limit must be a positive integer", "limit"))
			return
		}
		limit = v
	}

	trips, err := h.planner.ListTrips(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]tripView, len(trips))
	for i, t := range trips {
		out[i] = convertTrip(t)
	}
	writeJSON(w, http.StatusOK, tripsResponse{Trips: out, Total: len(out)})
}

// Get возвращает поездку пользователя с рейсами
func (h *TripsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	trip, err := h.planner.GetTrip(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convertTrip(trip))
}

func convertTrip(t *repository.Trip) tripView {
	v := tripView{
		ID:           t.ID,
		Source:       t.Source,
		Destination:  t.Destination,
		StartTime:    t.StartTime,
		Itinerary:    t.Itinerary,
		FlightIDs:    t.FlightIDs,
		ArrivalTime:  t.ArrivalTime,
		ArrivalClock: domain.FormatHour(t.ArrivalTime),
		DelayMinutes: t.DelayMinutes,
		CreatedAt:    t.CreatedAt,
	}
	for _, l := range t.Legs {
		v.Legs = append(v.Legs, tripLegView{
			Seq:          l.Seq,
			FlightID:     l.FlightID,
			Origin:       l.Origin,
			Destination:  l.Destination,
			Departure:    domain.FormatHour(l.Departure),
			Arrival:      domain.FormatHour(l.Arrival),
			DelayMinutes: l.DelayMinutes,
		})
	}
	return v
}
