package pgstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
)

// where accumulates positional conditions. Each cond contains a single %d
// verb that is replaced with the argument's placeholder number.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) raw(cond string) {
	w.conds = append(w.conds, cond)
}

// next reserves a placeholder for a non-filter argument such as LIMIT.
func (w *where) next(arg any) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func statusArgs(statuses []taskqueue.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func filterWhere(typ taskqueue.Type, statuses []taskqueue.Status, externalTaskID string) *where {
	w := &where{}
	if typ != "" {
		w.add("type = $%d", string(typ))
	}
	if len(statuses) > 0 {
		w.add("status = ANY($%d)", statusArgs(statuses))
	}
	if externalTaskID != "" {
		w.add("external_task_id = $%d", externalTaskID)
	}
	return w
}

func buildListQuery(f taskqueue.ListFilter) (string, []any) {
	bookmarkedOnly := f.Bookmarked != nil && *f.Bookmarked

	w := filterWhere(f.Type, f.Statuses, f.ExternalTaskID)
	if bookmarkedOnly {
		w.raw("bookmarked = TRUE")
	}
	if f.WorkerID != "" {
		w.add("worker_id = $%d", f.WorkerID)
	}

	dir := "ASC"
	if f.Order == taskqueue.OrderDesc {
		dir = "DESC"
	}
	order := make([]string, 0, 3)
	if !bookmarkedOnly {
		order = append(order, "bookmarked ASC")
	}
	order = append(order, "priority "+dir, "seq "+dir)

	var b strings.Builder
	b.WriteString("SELECT " + taskColumns + " FROM task")
	b.WriteString(w.String())
	b.WriteString(" ORDER BY " + strings.Join(order, ", "))
	if f.Limit > 0 {
		b.WriteString(" LIMIT " + w.next(f.Limit))
	}
	if f.Offset > 0 {
		b.WriteString(" OFFSET " + w.next(f.Offset))
	}

	return b.String(), w.args
}

func buildCountQuery(f taskqueue.CountFilter) (string, []any) {
	w := filterWhere(f.Type, f.Statuses, f.ExternalTaskID)
	return "SELECT COUNT(*) FROM task" + w.String(), w.args
}

func buildDeleteManyQuery(f taskqueue.DeleteFilter) (string, []any) {
	w := &where{}
	w.raw("bookmarked = FALSE")
	w.add("status = ANY($%d)", statusArgs(f.StatusesOrDefault()))
	if !f.Before.IsZero() {
		w.add("created_at < $%d", f.Before.UTC())
	}
	return "DELETE FROM task" + w.String(), w.args
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}
