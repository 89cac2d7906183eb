package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Leumas-Tech/leumas-education/internal/model"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Version   string           `yaml:"version" json:"version"`
	Server    Server           `yaml:"server" json:"server"`
	DataDir   string           `yaml:"data_dir" json:"data_dir"`
	User      model.User       `yaml:"user" json:"user"`
	Practices []model.Practice `yaml:"practices" json:"practices"`
	Store     Store            `yaml:"store" json:"store"`
	LLM       LLM              `yaml:"llm" json:"llm"`
	Flow      Flow             `yaml:"flow" json:"flow"`
}

type Server struct {
	Addr string `yaml:"addr" json:"addr"`
}

type Store struct {
	// Driver is one of file, sqlite, postgres, memory.
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"-"`
}

type LLM struct {
	// Provider is one of ollama, gemini, none.
	Provider string        `yaml:"provider" json:"provider"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	Ollama   Ollama        `yaml:"ollama" json:"ollama"`
	Gemini   Gemini        `yaml:"gemini" json:"gemini"`
}

type Ollama struct {
	Host          string   `yaml:"host" json:"host"`
	ModelPriority []string `yaml:"model_priority" json:"model_priority"`
}

type Gemini struct {
	APIKey string `yaml:"api_key" json:"-"`
	Model  string `yaml:"model" json:"model"`
}

type Flow struct {
	// AutoNext creates the next task for a practice after every proof or grade.
	AutoNext *bool `yaml:"auto_next" json:"auto_next,omitempty"`
}

func (f Flow) AutoNextEnabled() bool {
	return f.AutoNext == nil || *f.AutoNext
}

func Default() *Config {
	return &Config{
		Version: "1",
		Server:  Server{Addr: ":4124"},
		DataDir: "data",
		User:    model.User{Name: "friend"},
		Store:   Store{Driver: "file"},
		LLM: LLM{
			Provider: "ollama",
			Timeout:  2 * time.Minute,
			Ollama: Ollama{
				Host:          "http://127.0.0.1:11434",
				ModelPriority: []string{"llama3.2:latest"},
			},
			Gemini: Gemini{Model: "gemini-2.5-flash"},
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// Validate normalizes practice kinds and rejects empty or duplicate slugs.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i := range c.Practices {
		p := &c.Practices[i]
		p.Slug = strings.TrimSpace(p.Slug)
		if p.Slug == "" {
			return fmt.Errorf("practice %d: slug is required", i)
		}
		if strings.ContainsAny(p.Slug, `/\.`) {
			return fmt.Errorf("practice %q: slug must not contain '/', '\\' or '.'", p.Slug)
		}
		if seen[p.Slug] {
			return fmt.Errorf("practice %q: duplicate slug", p.Slug)
		}
		seen[p.Slug] = true
		p.Kind = model.ParseKind(string(p.Kind))
		if strings.TrimSpace(p.Title) == "" {
			p.Title = p.Slug
		}
	}
	if strings.TrimSpace(c.User.Name) == "" {
		c.User.Name = "friend"
	}
	return nil
}

// Practice resolves slug; unknown slugs become a generic practice titled by the slug.
func (c *Config) Practice(slug string) model.Practice {
	for _, p := range c.Practices {
		if p.Slug == slug {
			return p
		}
	}
	return model.UnknownPractice(slug)
}

func (c *Config) Slugs() []string {
	out := make([]string, 0, len(c.Practices))
	for _, p := range c.Practices {
		out = append(out, p.Slug)
	}
	return out
}
