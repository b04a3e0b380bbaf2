package main

import (
	"fmt"
	"io"

	"skypath/pkg/domain"
	"skypath/services/planner-svc/internal/repository"
	"skypath/services/planner-svc/internal/service"
)

// printItinerary печатает найденный маршрут. Ненайденный маршрут
// сообщается ошибкой NO_ROUTE из вызывающей команды.
func printItinerary(w io.Writer, it *service.Itinerary) {
	if !it.Found {
		return
	}

	fmt.Fprintf(w, "%s %s\n", bold("Route:"), boldGreen(it.Route))
	for i, l := range it.Legs {
		f := l.Flight
		status := green("on time")
		if l.Delayed {
			status = boldRed("⚠ delayed")
		}
		fmt.Fprintf(w, "  %d. %-8s %s → %s  %s → %s  %s  %s\n",
			i+1, cyan(f.ID), f.Origin, f.Dest,
			domain.FormatHour(f.Departure), domain.FormatHour(f.Arrival),
			dim(fmt.Sprintf("+%d min", l.DelayMinutes)), status)
	}
	fmt.Fprintf(w, "%s %s\n", bold("Scheduled arrival:"), it.ArrivalClock)
	fmt.Fprintf(w, "%s %d min\n", bold("Total delay:"), it.TotalDelayMinutes)
	fmt.Fprintf(w, "%s %s\n", bold("Expected arrival:"), it.ArrivalWithDelay)

	for _, l := range it.Legs {
		if l.Delayed {
			fmt.Fprintf(w, "%s flight %s may be delayed by %d minutes\n",
				yellow("warning:"), l.Flight.ID, l.DelayMinutes)
		}
	}
	if it.DelayFallbacks > 0 {
		fmt.Fprintf(w, "%s delay unknown for %d flight(s), counted as 0\n", yellow("note:"), it.DelayFallbacks)
	}
	if it.Saved {
		fmt.Fprintf(w, "%s saved as trip %s\n", boldGreen("✓"), it.TripID)
	} else if it.SaveError != "" {
		fmt.Fprintf(w, "%s trip not saved: %s\n", yellow("warning:"), it.SaveError)
	}
}

func printTrip(w io.Writer, t *repository.Trip, withLegs bool) {
	fmt.Fprintf(w, "%s  %s  %s %s  %s %s  %s\n",
		magenta(t.ID), t.CreatedAt.Format("2006-01-02 15:04"),
		dim("start"), domain.FormatHour(t.StartTime),
		dim("arrive"), service.FormatClock(t.ArrivalTime, t.DelayMinutes),
		t.Itinerary)
	if !withLegs {
		return
	}
	for _, l := range t.Legs {
		fmt.Fprintf(w, "  %d. %-8s %s → %s  %s → %s  %s\n",
			l.Seq, cyan(l.FlightID), l.Origin, l.Destination,
			domain.FormatHour(l.Departure), domain.FormatHour(l.Arrival),
			dim(fmt.Sprintf("+%d min", l.DelayMinutes)))
	}
}
