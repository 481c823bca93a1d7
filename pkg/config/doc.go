// Package config loads environment-driven configuration structs.
//
// Structs declare their variables with caarlos0/env tags:
//
//	type Config struct {
//		WorkerID  string        `env:"WORKER_ID"`
//		Retention time.Duration `env:"QUEUE_RETENTION" envDefault:"168h"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// A .env file in the working directory is read once per process (missing files
// are ignored). Successfully parsed values are cached per type and prefix, so
// repeated Load calls for the same struct are cheap. Supplying an explicit
// environment map with WithEnvironment bypasses both the .env file and the
// cache, which keeps tests hermetic.
package config
