package task

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Leumas-Tech/leumas-education/internal/model"
	"github.com/Leumas-Tech/leumas-education/internal/store"
)

// Location is where a task record lives. It is the value of the id index.
type Location struct {
	Practice string `json:"practice"`
	Date     string `json:"date"`
	Index    int    `json:"index"`
}

// Repo is the typed view of task records in a store.Store.
type Repo struct {
	st store.Store
}

func NewRepo(st store.Store) *Repo {
	return &Repo{st: st}
}

func (r *Repo) Save(ctx context.Context, slug, date string, index int, t model.Task) error {
	if err := store.PutJSON(ctx, r.st, store.Tasks(slug), model.DayKey(date, index), t); err != nil {
		return fmt.Errorf("save task %s/%s#%d: %w", slug, date, index, err)
	}
	return nil
}

// Load returns store.ErrNotFound when there is no task at the position.
func (r *Repo) Load(ctx context.Context, slug, date string, index int) (model.Task, error) {
	var t model.Task
	err := store.GetJSON(ctx, r.st, store.Tasks(slug), model.DayKey(date, index), &t)
	return t, err
}

// Positions lists every parseable task position for slug whose key starts
// with prefix, ordered by date then index. Store keys sort as strings, which
// would put "--10" before "--2".
func (r *Repo) Positions(ctx context.Context, slug, prefix string) ([]Location, error) {
	keys, err := r.st.ListKeys(ctx, store.Tasks(slug), prefix)
	if err != nil {
		return nil, fmt.Errorf("list tasks %s: %w", slug, err)
	}
	out := make([]Location, 0, len(keys))
	for _, k := range keys {
		date, index, ok := model.ParseDayKey(k)
		if !ok {
			continue
		}
		out = append(out, Location{Practice: slug, Date: date, Index: index})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// DayIndexes returns the indexes of the tasks stored for slug on date, ascending.
func (r *Repo) DayIndexes(ctx context.Context, slug, date string) ([]int, error) {
	locs, err := r.Positions(ctx, slug, date)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(locs))
	for _, l := range locs {
		if l.Date == date {
			out = append(out, l.Index)
		}
	}
	return out, nil
}

func (r *Repo) PutLocation(ctx context.Context, id string, loc Location) error {
	if err := store.PutJSON(ctx, r.st, store.IDs, id, loc); err != nil {
		return fmt.Errorf("index task %s: %w", id, err)
	}
	return nil
}

// Location looks id up in the id index. ok is false when the id is unknown.
func (r *Repo) Location(ctx context.Context, id string) (loc Location, ok bool, err error) {
	err = store.GetJSON(ctx, r.st, store.IDs, id, &loc)
	if errors.Is(err, store.ErrNotFound) {
		return Location{}, false, nil
	}
	if err != nil {
		return Location{}, false, err
	}
	return loc, true, nil
}
