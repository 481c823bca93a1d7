// Package taskapi exposes the task queue over HTTP with a chi router.
//
// Routes:
//
//	GET    /tasks                      list tasks (type, status, bookmarked, external_task_id, worker_id, limit, offset, order)
//	GET    /tasks/count                count tasks (type, status, external_task_id)
//	POST   /tasks                      enqueue a task in wire form
//	POST   /tasks/cleanup              delete finished, unbookmarked tasks
//	GET    /tasks/{id}                 get a task
//	DELETE /tasks/{id}                 delete a task
//	GET    /tasks/{id}/position        pending tasks ahead of this one
//	POST   /tasks/{id}/reprioritize    body {"priority": 0 | -1 | N}
//	POST   /tasks/{id}/interrupt       cancel a pending or running task
//	PUT    /tasks/{id}/bookmark        bookmark a task
//	DELETE /tasks/{id}/bookmark        remove the bookmark
//	GET    /queue                      run state of the queue
//	POST   /queue/pause                stop handing out tasks
//	POST   /queue/resume               resume handing out tasks
//	GET    /usage/{window}             model usage for 5_min, 7_day or 30_day
//
// Every response uses the envelope {"data": ..., "meta": ..., "error": {"code", "message"}}.
// Queue errors map to status codes: not found 404, validation 400, invalid
// transition and finished ids 409, store unavailable 503.
package taskapi
