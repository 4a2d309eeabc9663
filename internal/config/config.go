// Package config loads process configuration: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/fpang/noksha/internal/chat"
	"github.com/fpang/noksha/internal/history"
	"github.com/fpang/noksha/internal/store"
)

// PathEnv names the config file when no --config flag is given.
const PathEnv = "NOKSHA_CONFIG"

// Recolor backends.
const (
	RecolorGemini = "gemini"
	RecolorImagen = "imagen"
)

// Share modes.
const (
	ShareNone   = "none"
	ShareDialog = "dialog"
	ShareDir    = "dir"
)

// Config is the full configuration of a binary.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  store.Config   `yaml:"storage"`
	History  HistoryConfig  `yaml:"history"`
	Provider ProviderConfig `yaml:"provider"`
	Share    ShareConfig    `yaml:"share"`
	Overlay  OverlayConfig  `yaml:"overlay"`
}

type ServerConfig struct {
	Port        int           `yaml:"port"`
	SessionTTL  time.Duration `yaml:"sessionTTL"`
	MaxSessions int           `yaml:"maxSessions"`
}

type HistoryConfig struct {
	Key string `yaml:"key"`
}

type ProviderConfig struct {
	ImageModel     string       `yaml:"imageModel"`
	TextModel      string       `yaml:"textModel"`
	RecolorBackend string       `yaml:"recolorBackend"`
	Vertex         VertexConfig `yaml:"vertex"`
}

// VertexConfig locates the Imagen recolor backend. The access token is
// normally supplied through the environment only.
type VertexConfig struct {
	Project     string `yaml:"project"`
	Region      string `yaml:"region"`
	AccessToken string `yaml:"-"`
}

type ShareConfig struct {
	Mode string `yaml:"mode"`
	Dir  string `yaml:"dir"`
}

type OverlayConfig struct {
	StrokeWidth float64 `yaml:"strokeWidth"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			SessionTTL:  30 * time.Minute,
			MaxSessions: 1000,
		},
		Storage: store.Config{Type: store.TypeFile, Path: "./data"},
		History: HistoryConfig{Key: history.DefaultKey},
		Provider: ProviderConfig{
			ImageModel:     chat.DefaultImageModel,
			TextModel:      chat.DefaultTextModel,
			RecolorBackend: RecolorGemini,
			Vertex:         VertexConfig{Region: "us-central1"},
		},
		Share:   ShareConfig{Mode: ShareNone},
		Overlay: OverlayConfig{StrokeWidth: 20},
	}
}

// Load builds the configuration. An empty path falls back to $NOKSHA_CONFIG;
// if that is empty too, only defaults and environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Config file loaded")
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Storage.Type, "NOKSHA_STORAGE_TYPE")
	setString(&c.Storage.Path, "NOKSHA_STORAGE_PATH")
	setString(&c.Storage.Bucket, "NOKSHA_S3_BUCKET")
	setString(&c.Storage.Prefix, "NOKSHA_S3_PREFIX")
	setString(&c.Storage.Table, "NOKSHA_DYNAMO_TABLE")
	setString(&c.History.Key, "NOKSHA_HISTORY_KEY")
	setString(&c.Provider.ImageModel, "NOKSHA_IMAGE_MODEL")
	setString(&c.Provider.TextModel, "NOKSHA_TEXT_MODEL")
	setString(&c.Provider.RecolorBackend, "NOKSHA_RECOLOR_BACKEND")
	setString(&c.Provider.Vertex.Project, "VERTEX_PROJECT")
	setString(&c.Provider.Vertex.Region, "VERTEX_REGION")
	setString(&c.Provider.Vertex.AccessToken, "VERTEX_ACCESS_TOKEN")
	setString(&c.Share.Mode, "NOKSHA_SHARE_MODE")
	setString(&c.Share.Dir, "NOKSHA_SHARE_DIR")

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("NOKSHA_SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid NOKSHA_SESSION_TTL %q: %w", v, err)
		}
		c.Server.SessionTTL = ttl
	}
	return nil
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

// Validate rejects combinations no binary can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("server.sessionTTL must be positive"))
	}
	if c.History.Key == "" {
		errs = append(errs, fmt.Errorf("history.key must not be empty"))
	}
	switch c.Provider.RecolorBackend {
	case RecolorGemini:
	case RecolorImagen:
		if c.Provider.Vertex.Project == "" || c.Provider.Vertex.Region == "" {
			errs = append(errs, fmt.Errorf("imagen recolor backend needs provider.vertex.project and region"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider.recolorBackend %q", c.Provider.RecolorBackend))
	}
	switch c.Share.Mode {
	case ShareNone, ShareDialog:
	case ShareDir:
		if c.Share.Dir == "" {
			errs = append(errs, fmt.Errorf("share.mode dir needs share.dir"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown share.mode %q", c.Share.Mode))
	}
	if c.Overlay.StrokeWidth <= 0 {
		errs = append(errs, fmt.Errorf("overlay.strokeWidth must be positive"))
	}
	return errors.Join(errs...)
}

// Summary renders the effective configuration for the startup log. The
// access token is omitted.
func (c *Config) Summary() map[string]string {
	return map[string]string{
		"storage":        c.Storage.Type,
		"history_key":    c.History.Key,
		"image_model":    c.Provider.ImageModel,
		"text_model":     c.Provider.TextModel,
		"recolor":        c.Provider.RecolorBackend,
		"share":          c.Share.Mode,
		"session_ttl":    c.Server.SessionTTL.String(),
		"stroke_width":   strconv.FormatFloat(c.Overlay.StrokeWidth, 'f', -1, 64),
		"vertex_project": c.Provider.Vertex.Project,
	}
}
