// Package taskqueue implements a durable, priority-ordered queue of image
// generation tasks.
//
// The package is organised around four pieces:
//
//   - Task: the persisted record, its builder (NewTask) and its wire
//     codec (EncodeWire / DecodeWire)
//   - Storage: the durable table contract; MemoryStorage here, the
//     PostgreSQL implementation in the pgstore subpackage
//   - Queue: idempotent enqueue, status transitions, reads and
//     operator actions on top of a Storage
//   - Signal: the work-signal bridge that wakes workers up; see pkg/wakeup
//
// # Ordering
//
// Lower priority values are served first. NewTask defaults the priority to the
// enqueue time in milliseconds, so tasks are FIFO unless reprioritized. Equal
// priorities are ordered by insertion. Reprioritize accepts PriorityFront (0),
// PriorityBack (-1) or an exact value; an exact value shifts every task at or
// above it up by one so relative order is preserved.
//
// # Lifecycle
//
//	pending -> running -> done | failed
//	pending | running -> interrupted
//
// done, failed and interrupted are terminal. Storage.Transition refuses any
// other change with ErrInvalidTransition and never touches priority or the
// bookmark, so operator edits made meanwhile survive.
//
// # Usage
//
//	store := pgstore.New(pool)
//	q, err := taskqueue.NewQueue(store, workerID,
//	    taskqueue.WithSignal(wakeup.NewRedisSignal(rdb)),
//	    taskqueue.WithStateStore(store),
//	)
//	if err != nil {
//	    return err
//	}
//
//	task, err := taskqueue.NewTask(taskqueue.TypeTxt2Img, params, scriptArgs)
//	if err != nil {
//	    return err
//	}
//	ok, err := q.Enqueue(ctx, task) // ok == false: the id already finished
//
// # Error Handling
//
// Package-level sentinel errors (ErrNotFound, ErrInvalidTransition,
// ErrValidation, ErrStoreUnavailable) can be checked with errors.Is.
package taskqueue
