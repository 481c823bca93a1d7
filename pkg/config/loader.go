package config

import (
	"errors"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option customises a single Load call.
type Option func(*options)

type options struct {
	prefix      string
	environment map[string]string
	envFiles    []string
}

// WithPrefix prepends prefix to every variable name of the struct.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvironment parses from the given map instead of the process environment.
func WithEnvironment(environment map[string]string) Option {
	return func(o *options) { o.environment = environment }
}

// WithEnvFiles names the dotenv files read before parsing. Missing files are
// ignored; by default ".env" is tried.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = files }
}

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]any)

	dotenvOnce sync.Once
)

// Load parses environment variables into v according to its struct tags.
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.environment != nil {
		return parse(v, o)
	}

	loadEnvFiles(o.envFiles)

	key := cacheKey[T](o.prefix)

	cacheMu.RLock()
	cached, ok := cache[key]
	cacheMu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	if err := parse(v, o); err != nil {
		return err
	}

	cacheMu.Lock()
	cache[key] = *v
	cacheMu.Unlock()

	return nil
}

// loadEnvFiles reads the named dotenv files on every call, or ".env" once
// when none are named. Files are optional and never override variables that
// are already set.
func loadEnvFiles(files []string) {
	if len(files) == 0 {
		dotenvOnce.Do(func() { _ = godotenv.Load() })
		return
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func parse[T any](v *T, o *options) error {
	if err := env.ParseWithOptions(v, env.Options{
		Prefix:      o.prefix,
		Environment: o.environment,
	}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

func cacheKey[T any](prefix string) string {
	return prefix + reflect.TypeFor[T]().String()
}
