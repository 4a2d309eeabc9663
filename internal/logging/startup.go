package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects process identity, storage, model and feature
// settings, then emits a single structured event summarising how the
// process was configured.
type StartupLogger struct {
	name         string
	commitHash   string
	buildTime    string
	initDuration time.Duration

	storage  map[string]string
	models   map[string]string
	ssmParam map[string]string
	features map[string]bool
	config   map[string]string
}

// NewStartupLogger creates a StartupLogger for the given binary name
// (e.g. "noksha-web", "noksha-lambda").
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:     name,
		storage:  make(map[string]string),
		models:   make(map[string]string),
		ssmParam: make(map[string]string),
		features: make(map[string]bool),
		config:   make(map[string]string),
	}
}

// CommitHash sets the git commit hash baked into the binary at build time.
func (s *StartupLogger) CommitHash(hash string) *StartupLogger {
	s.commitHash = hash
	return s
}

// BuildTime sets the UTC build timestamp baked into the binary at build time.
func (s *StartupLogger) BuildTime(t string) *StartupLogger {
	s.buildTime = t
	return s
}

// Storage registers a storage setting, e.g. ("type", "sqlite").
func (s *StartupLogger) Storage(label, value string) *StartupLogger {
	s.storage[label] = value
	return s
}

// Model registers a provider model in use, e.g. ("image", "gemini-2.5-flash-image").
func (s *StartupLogger) Model(label, name string) *StartupLogger {
	s.models[label] = name
	return s
}

// SSMParam registers an SSM parameter path loaded at startup.
// Only the path is logged, never the value.
func (s *StartupLogger) SSMParam(label, path string) *StartupLogger {
	s.ssmParam[label] = path
	return s
}

// Feature registers a boolean feature flag (e.g. "share", "imagen").
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// InitDuration records how long startup took.
func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// EnvOrDefault returns the value of the named environment variable, or
// defaultVal if the variable is empty or unset.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

// Log emits a single structured INFO log event with all collected information.
func (s *StartupLogger) Log() {
	evt := log.Info()

	process := zerolog.Dict().
		Str("name", s.name).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", os.Getenv(LevelEnv))

	if fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); fn != "" {
		process = process.
			Str("functionName", fn).
			Str("region", os.Getenv("AWS_REGION")).
			Str("memoryMB", os.Getenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE"))
	}
	if s.commitHash != "" {
		process = process.Str("commitHash", s.commitHash)
	}
	if s.buildTime != "" {
		process = process.Str("buildTime", s.buildTime)
	}
	evt = evt.Dict("process", process)

	if len(s.storage) > 0 {
		evt = evt.Dict("storage", dictFromMap(s.storage))
	}
	if len(s.models) > 0 {
		evt = evt.Dict("models", dictFromMap(s.models))
	}
	if len(s.ssmParam) > 0 {
		evt = evt.Dict("ssmParams", dictFromMap(s.ssmParam))
	}

	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}

	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}

	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Startup complete")
}

func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
