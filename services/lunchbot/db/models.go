package db

type PublishedDish struct {
	ID            int64
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
