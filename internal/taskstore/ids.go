package taskstore

import (
	"strconv"
	"time"

	"github.com/nibzard/todo-go/internal/todo"
)

// idSource hands out creation-time ids in milliseconds, bumped so each id is
// strictly greater than the last one issued or observed.
type idSource struct {
	now  func() time.Time
	last int64
}

func newIDSource() *idSource {
	return &idSource{now: time.Now}
}

// observe raises the floor to the largest numeric id in tasks.
func (g *idSource) observe(tasks []todo.Task) {
	for _, t := range tasks {
		n, err := strconv.ParseInt(t.ID, 10, 64)
		if err == nil && n > g.last {
			g.last = n
		}
	}
}

// next returns an id not present in tasks.
func (g *idSource) next(tasks []todo.Task) string {
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	id := strconv.FormatInt(ms, 10)
	for todo.Index(tasks, id) >= 0 {
		ms++
		id = strconv.FormatInt(ms, 10)
	}
	g.last = ms
	return id
}
