package db

import (
	"context"
)

const createPublishedDish = `-- name: CreatePublishedDish :exec
insert into PublishedDish(day, hash, name, source, price, diet, imageUrl, generationTag, publishedAt)
values (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreatePublishedDishParams struct {
	Day           string
	Hash          string
	Name          string
	Source        string
	Price         string
	Diet          string
	Imageurl      string
	Generationtag string
	Publishedat   int64
}

func (q *Queries) CreatePublishedDish(ctx context.Context, arg CreatePublishedDishParams) error {
	_, err := q.db.ExecContext(ctx, createPublishedDish,
		arg.Day,
		arg.Hash,
		arg.Name,
		arg.Source,
		arg.Price,
		arg.Diet,
		arg.Imageurl,
		arg.Generationtag,
		arg.Publishedat,
	)
	return err
}

const deletePublishedDishesOn = `-- name: DeletePublishedDishesOn :exec
delete from PublishedDish where day = ?
`

func (q *Queries) DeletePublishedDishesOn(ctx context.Context, day string) error {
	_, err := q.db.ExecContext(ctx, deletePublishedDishesOn, day)
	return err
}

const listPublishedDishesSince = `-- name: ListPublishedDishesSince :many
select day, hash, name, source, price, diet, imageUrl, generationTag, publishedAt
from PublishedDish
where day >= ?
order by day desc, id asc
`

type ListPublishedDishesSinceRow struct {
	Day           string
	Hash          string
	Name          string
	Source        string
	Price         string
	Diet          string
	Imageurl      string
	Generationtag string
	Publishedat   int64
}

func (q *Queries) ListPublishedDishesSince(ctx context.Context, day string) ([]ListPublishedDishesSinceRow, error) {
	rows, err := q.db.QueryContext(ctx, listPublishedDishesSince, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListPublishedDishesSinceRow
	for rows.Next() {
		var i ListPublishedDishesSinceRow
		if err := rows.Scan(
			&i.Day,
			&i.Hash,
			&i.Name,
			&i.Source,
			&i.Price,
			&i.Diet,
			&i.Imageurl,
			&i.Generationtag,
			&i.Publishedat,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
