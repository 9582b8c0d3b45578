package lunchbot

import (
	"context"
	"testing"
	"time"

	"lunchbot/lib/menu"
	"lunchbot/lib/testutil"
	"lunchbot/lib/timezone"
	"lunchbot/services/lunchbot/db"

	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	setup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/lunchbot",
		DbSchema: db.Schema,
	})
	history := NewHistory(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	now := time.Date(2024, time.March, 12, 11, 0, 0, 0, timezone.Location)
	yesterday := now.AddDate(0, 0, -1)
	lastWeek := now.AddDate(0, 0, -7)

	pasta := dish("Pasta", "DESY Canteen")
	pasta.ImageURL = "https://cdn.test/pasta.png"
	pasta.GenerationTag = TagReused

	require.NoError(t, history.Record(ctx, lastWeek, []menu.Dish{dish("Chili", "DESY Canteen")}))
	require.NoError(t, history.Record(ctx, yesterday, []menu.Dish{dish("Soup", "Cafe CFEL")}))
	require.NoError(t, history.Record(ctx, now, []menu.Dish{dish("Curry", "DESY Canteen")}))
	// publishing a day again replaces it
	require.NoError(t, history.Record(ctx, now, []menu.Dish{pasta, dish("Salad", "Cafe CFEL")}))

	entries, err := history.List(ctx, now, 2)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.Equal(t, timezone.Date(now), entries[0].Day)
	require.Equal(t, pasta.Name, entries[0].Dish.Name)
	require.Equal(t, pasta.Hash, entries[0].Dish.Hash)
	require.Equal(t, pasta.ImageURL, entries[0].Dish.ImageURL)
	require.Equal(t, TagReused, entries[0].Dish.GenerationTag)
	require.Equal(t, menu.DietVegetarian, entries[0].Dish.Diet)
	require.Equal(t, "Salad", entries[1].Dish.Name)
	require.Equal(t, "Soup", entries[2].Dish.Name)
	require.Equal(t, timezone.Date(yesterday), entries[2].Day)

	entries, err = history.List(ctx, now, 30)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	require.Equal(t, "Chili", entries[3].Dish.Name)

	entries, err = history.List(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestOpenHistory(t *testing.T) {
	setup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/lunchbot",
		DbSchema: db.Schema,
		DbPath:   testutil.TempDB,
	})

	// the schema is idempotent
	history, err := OpenHistory(context.Background(), setup.DB)
	require.NoError(t, err)
	entries, err := history.List(context.Background(), timezone.Now(), 7)
	require.NoError(t, err)
	require.Empty(t, entries)
}
