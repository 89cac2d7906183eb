package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Leumas-Tech/leumas-education/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
data_dir: /var/lib/leumas
user:
  name: William
practices:
  - slug: yoga
    kind: fitness
    title: Yoga + Muscle
    config:
      yoga_minutes: 15
      muscle_minutes: 10
  - slug: js
    kind: study
    config:
      topics: [Arrays, Loops]
  - slug: garden
    kind: gardening
store:
  driver: sqlite
llm:
  provider: none
  timeout: 30s
flow:
  auto_next: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "leumas.yml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_ParsesPracticesAndNormalizesKinds(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/leumas", cfg.DataDir)
	assert.Equal(t, "William", cfg.User.Name)
	require.Len(t, cfg.Practices, 3)

	yoga := cfg.Practice("yoga")
	assert.Equal(t, model.KindFitness, yoga.Kind)
	assert.Equal(t, 25, yoga.Config.FitnessBaseline())

	js := cfg.Practice("js")
	assert.Equal(t, "js", js.Title)
	assert.Equal(t, []string{"Arrays", "Loops"}, js.Config.Topics)

	assert.Equal(t, model.KindGeneric, cfg.Practice("garden").Kind)
	assert.Equal(t, model.UnknownPractice("nope"), cfg.Practice("nope"))

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.False(t, cfg.Flow.AutoNextEnabled())
	assert.Equal(t, []string{"yoga", "js", "garden"}, cfg.Slugs())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, ":4124", cfg.Server.Addr)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.True(t, cfg.Flow.AutoNextEnabled())
}

func TestLoad_RejectsDuplicateAndInvalidSlugs(t *testing.T) {
	_, err := Load(writeConfig(t, "practices:\n  - slug: a\n  - slug: a\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "practices:\n  - slug: ../etc\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "practices:\n  - title: nameless\n"))
	assert.Error(t, err)
}

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv("LEUMAS_DATA_DIR", "/tmp/leumas")
	t.Setenv("PORT", "9000")
	t.Setenv("OLLAMA_MODEL_PRIORITY", "qwen2.5:7b, llama3.2:latest ,")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("LEUMAS_LLM_TIMEOUT", "bogus")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "/tmp/leumas", cfg.DataDir)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"qwen2.5:7b", "llama3.2:latest"}, cfg.LLM.Ollama.ModelPriority)
	assert.Equal(t, "k", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "leumas.yml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"yoga", "js", "luke", "chem", "uke"}, cfg.Slugs())
	assert.Equal(t, 15, cfg.Practice("uke").Config.HobbyBaseline())
	assert.Equal(t, model.KindMicro, cfg.Practice("chem").Kind)
}
