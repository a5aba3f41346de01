// Package cache prepares writable model cache directories and points the ML libraries at them.
package cache

import (
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// DefaultBase is the only writable location on a Lambda filesystem
const DefaultBase = "/tmp/.cache"

// Config holds every cache path derived from a single base directory
type Config struct {
	Base         string
	Whisper      string
	HuggingFace  string
	Hub          string
	Datasets     string
	Torch        string
	Transformers string
}

// NewConfig derives the cache layout from base
func NewConfig(base string) Config {
	if base == "" {
		base = DefaultBase
	}
	hf := filepath.Join(base, "huggingface")
	return Config{
		Base:         base,
		Whisper:      filepath.Join(base, "whisper"),
		HuggingFace:  hf,
		Hub:          filepath.Join(hf, "hub"),
		Datasets:     filepath.Join(hf, "datasets"),
		Torch:        filepath.Join(base, "torch"),
		Transformers: filepath.Join(base, "transformers"),
	}
}

// Directories lists the directories Setup creates, parents first
func (c Config) Directories() []string {
	return []string{
		c.Base,
		c.Whisper,
		c.HuggingFace,
		c.Hub,
		c.Datasets,
		c.Torch,
		c.Transformers,
	}
}

// Env returns the environment variables consumed by the model libraries
func (c Config) Env() map[string]string {
	return map[string]string{
		"WHISPER_CACHE":         c.Whisper,
		"TRANSFORMERS_CACHE":    c.Hub,
		"HF_HOME":               c.HuggingFace,
		"TORCH_HOME":            c.Torch,
		"XDG_CACHE_HOME":        c.Base,
		"WHISPER_MODEL_PATH":    c.Whisper,
		"HUGGINGFACE_HUB_CACHE": c.Hub,
		"TRANSFORMERS_OFFLINE":  "0",
		"HF_DATASETS_CACHE":     c.Datasets,
	}
}

// Probed are the directories checked on every request
func (c Config) Probed() []string {
	return []string{c.Whisper, c.Hub, c.Torch}
}

// Inspected are the directories listed when a request fails
func (c Config) Inspected() []string {
	return []string{c.Whisper, c.Hub}
}

// Failure records a setup step that did not succeed
type Failure struct {
	Target string
	Err    error
}

// SetupResult is the outcome of Setup
type SetupResult struct {
	Directories []string
	Env         map[string]string
	Failures    []Failure
}

// OK reports whether every step succeeded
func (r SetupResult) OK() bool {
	return len(r.Failures) == 0
}

// Setup creates the cache directories and exports the cache variables.
// It never fails: errors are logged and returned in the result so the caller can
// carry on without a warm cache.
func Setup(c Config, log *zap.Logger) SetupResult {
	if log == nil {
		log = zap.NewNop()
	}

	res := SetupResult{Env: c.Env()}

	for _, dir := range c.Directories() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn("could not create cache directory", zap.String("path", dir), zap.Error(err))
			res.Failures = append(res.Failures, Failure{Target: dir, Err: err})
			continue
		}
		res.Directories = append(res.Directories, dir)
		log.Info("cache directory ready", zap.String("path", dir))
	}

	keys := make([]string, 0, len(res.Env))
	for k := range res.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := os.Setenv(k, res.Env[k]); err != nil {
			log.Warn("could not set environment variable", zap.String("key", k), zap.Error(err))
			res.Failures = append(res.Failures, Failure{Target: k, Err: err})
			continue
		}
		log.Info("set environment variable", zap.String("key", k), zap.String("value", res.Env[k]))
	}

	if res.OK() {
		log.Info("cache environment setup completed")
	} else {
		log.Warn("cache environment setup completed with failures", zap.Int("failures", len(res.Failures)))
	}
	return res
}

// DirStatus describes a cache directory at a point in time
type DirStatus struct {
	Path     string `json:"-"`
	Exists   bool   `json:"exists"`
	Writable bool   `json:"writable"`
}

// Status reports existence and writability of dirs
func Status(dirs []string) []DirStatus {
	out := make([]DirStatus, 0, len(dirs))
	for _, d := range dirs {
		st := DirStatus{Path: d}
		if fi, err := os.Stat(d); err == nil && fi.IsDir() {
			st.Exists = true
			st.Writable = unix.Access(d, unix.W_OK) == nil
		}
		out = append(out, st)
	}
	return out
}

// Listing is the content of a cache directory
type Listing struct {
	Path    string
	Exists  bool
	Entries []string
	Err     error
}

// List reads the entry names of dirs
func List(dirs []string) []Listing {
	out := make([]Listing, 0, len(dirs))
	for _, d := range dirs {
		l := Listing{Path: d}
		entries, err := os.ReadDir(d)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			l.Exists = true
			l.Err = err
		default:
			l.Exists = true
			l.Entries = make([]string, 0, len(entries))
			for _, e := range entries {
				l.Entries = append(l.Entries, e.Name())
			}
		}
		out = append(out, l)
	}
	return out
}
