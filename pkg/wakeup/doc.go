// Package wakeup provides taskqueue.Signal transports that wake workers up
// when new tasks are enqueued for them.
//
// Two transports are available:
//
//   - RedisSignal pushes a wake-up onto a Redis list named after the worker
//     channel and consumes it with BLPOP. Wake-ups survive a worker restart
//     and are delivered to exactly one consumer per announcement.
//   - MemorySignal delivers in process, for tests and single-node setups.
//
// Wake-ups are hints, not work items: the task itself lives in the task store
// and a worker always asks the queue for the next pending task. Lost or
// duplicated wake-ups therefore only change latency.
//
// Example:
//
//	sig := wakeup.NewRedisSignal(rdb, wakeup.WithLogger(log))
//	defer sig.Close()
//
//	q, _ := taskqueue.NewQueue(store, workerID, taskqueue.WithSignal(sig))
//	_ = q.Bind(ctx, func(ctx context.Context, msg taskqueue.SignalMessage) error {
//	    task, err := q.Next(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    _, err = q.Start(ctx, task.ID, &msg.DeliveryTag)
//	    return err
//	})
package wakeup
