package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"skypath/pkg/apperror"
	"skypath/pkg/domain"
	"skypath/services/planner-svc/internal/app"
	"skypath/services/planner-svc/internal/render"
	"skypath/services/planner-svc/internal/service"
)

// credentials флаги входа для команд с историей поездок
type credentials struct {
	username string
	password string
}

func (c *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.username, "user", "u", "", "Username")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "Password (or SKYPATH_PASSWORD)")
}

func (c *credentials) resolve() (string, string) {
	password := c.password
	if password == "" {
		password = os.Getenv("SKYPATH_PASSWORD")
	}
	return strings.TrimSpace(c.username), password
}

func routeCmd(opts *options) *cobra.Command {
	var (
		req    service.PlanRequest
		start  int
		format string
		output string
		title  string
		creds  credentials
	)

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Find the earliest-arrival itinerary between two airports",
		Example: `  skypath route --from A --to E --start 2
  skypath route --from A --to E --start 2 --format pdf --output trip.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.StartTime = float64(start)

			var rf render.Format
			if format != "" {
				var err error
				if rf, err = render.ParseFormat(format); err != nil {
					return err
				}
				if (rf == render.FormatPDF || rf == render.FormatXLSX) && output == "" {
					return apperror.NewWithField(apperror.CodeInvalidArgument,
						fmt.Sprintf("%s output is binary, use --output", rf), "output")
				}
			}

			return withApp(cmd.Context(), opts, func(a *app.App) error {
				if username, password := creds.resolve(); username != "" {
					session, err := a.Auth.Login(cmd.Context(), username, password)
					if err != nil {
						return err
					}
					req.UserID = session.User.ID
				}

				it, err := a.Planner.Plan(cmd.Context(), req)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if format != "" {
					n, _ := a.Planner.Network()
					out, err := a.Renderer.Render(cmd.Context(), rf, &render.Data{
						Itinerary: it,
						Network:   n,
						Title:     title,
					})
					if err != nil {
						return err
					}
					return writeOutput(w, output, out)
				}

				if opts.jsonOut {
					if err := outputJSON(w, it); err != nil {
						return err
					}
					return it.Err()
				}
				printItinerary(w, it)
				return it.Err()
			})
		},
	}

	cmd.Flags().StringVarP(&req.Source, "from", "f", "", "Source airport")
	cmd.Flags().StringVarP(&req.Destination, "to", "t", "", "Destination airport")
	cmd.Flags().IntVarP(&start, "start", "s", 0, "Start hour (0-23)")
	cmd.Flags().StringVar(&format, "format", "", "Render as md, csv, json, pdf, xlsx, dot or geojson")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write rendered document to file")
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	creds.bind(cmd)
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func airportsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "airports",
		Short: "List airports of the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				airports := a.Planner.Airports()
				w := cmd.OutOrStdout()
				if opts.jsonOut {
					return outputJSON(w, airports)
				}
				fmt.Fprintf(w, "%s %d airports\n", bold("🛫"), len(airports))
				for _, ap := range airports {
					fmt.Fprintf(w, "  %-6s %s %d  %s %d\n",
						magenta(ap.Name), dim("departing"), ap.Departing, dim("arriving"), ap.Arriving)
				}
				stats := a.Planner.Statistics()
				if len(stats.Isolated) > 0 {
					fmt.Fprintf(w, "%s isolated: %s\n", yellow("⚠"), strings.Join(stats.Isolated, ", "))
				}
				return nil
			})
		},
	}
}

func flightsCmd(opts *options) *cobra.Command {
	var origin, dest string

	cmd := &cobra.Command{
		Use:   "flights",
		Short: "List scheduled flights",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				n, _ := a.Planner.Network()
				for _, p := range [][2]string{{"from", origin}, {"to", dest}} {
					if p[1] != "" && !n.HasVertex(p[1]) {
						return apperror.Newf(apperror.CodeUnknownVertex, "unknown airport %q", p[1]).WithField(p[0])
					}
				}

				flights := a.Planner.Flights(origin, dest)
				w := cmd.OutOrStdout()
				if opts.jsonOut {
					return outputJSON(w, flights)
				}
				for _, f := range flights {
					fmt.Fprintf(w, "  %-8s %s → %s  %s → %s\n", cyan(f.ID), f.Origin, f.Dest,
						domain.FormatHour(f.Departure), domain.FormatHour(f.Arrival))
				}
				fmt.Fprintf(w, "%s flights\n", bold(len(flights)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&origin, "from", "f", "", "Filter by origin airport")
	cmd.Flags().StringVarP(&dest, "to", "t", "", "Filter by destination airport")
	return cmd
}

func graphCmd(opts *options) *cobra.Command {
	var (
		format string
		output string
		req    service.PlanRequest
		start  int
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the network, optionally highlighting an itinerary",
		Example: `  skypath graph | dot -Tpng -o network.png
  skypath graph --from A --to E --start 2 --format geojson -o route.geojson`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rf, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			if rf != render.FormatDOT && rf != render.FormatGeoJSON {
				return apperror.Newf(apperror.CodeRenderFormat,
					"graph can be rendered only as dot or geojson, got %s", rf).WithField("format")
			}
			if (req.Source == "") != (req.Destination == "") {
				return apperror.New(apperror.CodeInvalidArgument, "--from and --to must be given together")
			}

			return withApp(cmd.Context(), opts, func(a *app.App) error {
				n, _ := a.Planner.Network()
				data := &render.Data{Network: n}
				if req.Source != "" {
					req.StartTime = float64(start)
					it, err := a.Planner.Plan(cmd.Context(), req)
					if err != nil {
						return err
					}
					data.Itinerary = it
				}

				out, err := a.Renderer.Render(cmd.Context(), rf, data)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, out)
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "dot", "dot or geojson")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().StringVarP(&req.Source, "from", "f", "", "Highlight itinerary from this airport")
	cmd.Flags().StringVarP(&req.Destination, "to", "t", "", "Highlight itinerary to this airport")
	cmd.Flags().IntVarP(&start, "start", "s", 0, "Start hour of the highlighted itinerary")
	return cmd
}

func registerCmd(opts *options) *cobra.Command {
	var creds credentials

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user for saved trips",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, password := creds.resolve()
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				user, err := a.Auth.Register(cmd.Context(), username, password)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if opts.jsonOut {
					return outputJSON(w, map[string]any{"id": user.ID, "username": user.Username})
				}
				fmt.Fprintf(w, "%s user %s registered (id %d)\n", boldGreen("✓"), bold(user.Username), user.ID)
				return nil
			})
		},
	}

	creds.bind(cmd)
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func tripsCmd(opts *options) *cobra.Command {
	var (
		creds credentials
		limit int
		id    string
	)

	cmd := &cobra.Command{
		Use:   "trips",
		Short: "Show saved trips of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, password := creds.resolve()
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				session, err := a.Auth.Login(cmd.Context(), username, password)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()

				if id != "" {
					trip, err := a.Planner.GetTrip(cmd.Context(), session.User.ID, id)
					if err != nil {
						return err
					}
					if opts.jsonOut {
						return outputJSON(w, trip)
					}
					printTrip(w, trip, true)
					return nil
				}

				trips, err := a.Planner.ListTrips(cmd.Context(), session.User.ID, limit)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return outputJSON(w, trips)
				}
				if len(trips) == 0 {
					fmt.Fprintln(w, dim("no saved trips"))
					return nil
				}
				for _, t := range trips {
					printTrip(w, t, false)
				}
				return nil
			})
		},
	}

	creds.bind(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum trips to show")
	cmd.Flags().StringVar(&id, "id", "", "Show one trip with its flights")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(w, "%s wrote %s (%d bytes)\n", boldGreen("✓"), path, len(data))
	return nil
}
