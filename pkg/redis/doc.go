// Package redis connects the scheduler to the Redis server that carries
// work-signal wake-ups. It wraps go-redis with a retrying Connect and a
// readiness check; the signal transport itself lives in pkg/wakeup.
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Redis is an optimisation for wake-up latency, never a source of truth; the
// queue keeps working when it is down, so callers may choose to continue
// without it when Connect fails.
package redis
