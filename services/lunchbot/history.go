package lunchbot

import (
	"context"
	"database/sql"
	"time"

	"lunchbot/lib/menu"
	"lunchbot/lib/timezone"
	"lunchbot/services/lunchbot/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const dayLayout = "2006-01-02"

// HistoryEntry is a dish as it was published on Day.
type HistoryEntry struct {
	Day         time.Time
	PublishedAt time.Time
	Dish        menu.Dish
}

// History is the ledger of published dishes. Publishing the same day again
// replaces that day's entries.
type History struct {
	db  *sql.DB
	qry *db.Queries
}

func NewHistory(database *sql.DB) History {
	return History{
		db:  database,
		qry: db.New(database),
	}
}

// OpenHistory opens the database and makes sure the schema exists.
func OpenHistory(ctx context.Context, database *sql.DB) (History, error) {
	_, err := database.ExecContext(ctx, db.Schema)
	if err != nil {
		return History{}, err
	}
	return NewHistory(database), nil
}

func (h History) Record(ctx context.Context, day time.Time, dishes []menu.Dish) error {
	ctx, span := tracer.Start(ctx, "History.Record")
	defer span.End()

	key := timezone.Date(day).Format(dayLayout)
	span.SetAttributes(
		attribute.String("day", key),
		attribute.Int("dishes", len(dishes)),
	)

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer tx.Rollback()
	txqry := h.qry.WithTx(tx)

	err = txqry.DeletePublishedDishesOn(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	publishedAt := timezone.Now().Unix()
	for _, dish := range dishes {
		err = txqry.CreatePublishedDish(ctx, db.CreatePublishedDishParams{
			Day:           key,
			Hash:          dish.Hash,
			Name:          dish.Name,
			Source:        dish.Source,
			Price:         dish.Price,
			Diet:          string(dish.Diet),
			Imageurl:      dish.ImageURL,
			Generationtag: dish.GenerationTag,
			Publishedat:   publishedAt,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// List returns the entries of the last `days` days including today, the
// newest day first.
func (h History) List(ctx context.Context, now time.Time, days int) ([]HistoryEntry, error) {
	ctx, span := tracer.Start(ctx, "History.List")
	defer span.End()

	if days < 1 {
		days = 1
	}
	today := timezone.Date(now)
	since := today.AddDate(0, 0, -(days - 1)).Format(dayLayout)
	span.SetAttributes(attribute.String("since", since))

	rows, err := h.qry.ListPublishedDishesSince(ctx, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		day, err := time.ParseInLocation(dayLayout, row.Day, timezone.Location)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out = append(out, HistoryEntry{
			Day:         day,
			PublishedAt: time.Unix(row.Publishedat, 0).In(timezone.Location),
			Dish: menu.Dish{
				Hash:          row.Hash,
				Name:          row.Name,
				Source:        row.Source,
				Price:         row.Price,
				Diet:          menu.Diet(row.Diet),
				ImageURL:      row.Imageurl,
				GenerationTag: row.Generationtag,
			},
		})
	}
	return out, nil
}
