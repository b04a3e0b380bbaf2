//go:build integration

package repository_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skypath/internal/testutil"
	"skypath/migrations"
	"skypath/pkg/database"
	"skypath/services/planner-svc/internal/repository"
)

func newPostgresRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	cfg := testutil.RequirePostgres(t)
	ctx := testutil.Context(t)

	repos, err := repository.NewRepositories(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(repos.Close)

	require.NoError(t, database.RunMigrations(ctx, repos.DB().Pool(), cfg, migrations.PostgresMigrations, "postgres"))
	require.NoError(t, repos.Ping(ctx))
	return repos
}

func TestPostgres_UsersAndTrips(t *testing.T) {
	repos := newPostgresRepos(t)
	ctx := testutil.Context(t)

	user := &repository.User{Username: testutil.UniqueName("user"), PasswordHash: "hash"}
	require.NoError(t, repos.Users.Create(ctx, user))
	require.NotZero(t, user.ID)

	err := repos.Users.Create(ctx, &repository.User{Username: user.Username, PasswordHash: "other"})
	assert.True(t, errors.Is(err, repository.ErrUserAlreadyExists))

	got, err := repos.Users.GetByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	trip := &repository.Trip{
		UserID:       user.ID,
		Source:       "A",
		Destination:  "E",
		StartTime:    2,
		Itinerary:    "A → B → D → E",
		FlightIDs:    []string{"FN-101", "FN-103", "FN-107"},
		ArrivalTime:  14,
		DelayMinutes: 31,
		Legs: []repository.TripLeg{
			{Seq: 1, FlightID: "FN-101", Origin: "A", Destination: "B", Departure: 2, Arrival: 6, DelayMinutes: 4},
			{Seq: 2, FlightID: "FN-103", Origin: "B", Destination: "D", Departure: 12, Arrival: 13, DelayMinutes: 12},
			{Seq: 3, FlightID: "FN-107", Origin: "D", Destination: "E", Departure: 13, Arrival: 14, DelayMinutes: 14},
		},
	}
	require.NoError(t, repos.Trips.Save(ctx, trip))
	require.NotEmpty(t, trip.ID)

	trips, err := repos.Trips.ListByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, trip.FlightIDs, trips[0].FlightIDs)

	full, err := repos.Trips.Get(ctx, user.ID, trip.ID)
	require.NoError(t, err)
	require.Len(t, full.Legs, 3)
	assert.Equal(t, "FN-103", full.Legs[1].FlightID)

	_, err = repos.Trips.Get(ctx, user.ID+1, trip.ID)
	assert.True(t, errors.Is(err, repository.ErrTripNotFound))
}
