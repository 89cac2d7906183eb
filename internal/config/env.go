package config

import (
	"os"
	"strings"
	"time"
)

// ApplyEnv overrides file settings from environment variables.
// Unset or empty variables leave the loaded value in place.
func (c *Config) ApplyEnv() {
	if v := getEnv("LEUMAS_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getEnv("LEUMAS_ADDR"); v != "" {
		c.Server.Addr = v
	} else if port := getEnv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if v := getEnv("LEUMAS_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := getEnv("LEUMAS_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := getEnv("LEUMAS_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := getEnv("LEUMAS_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.LLM.Timeout = d
		}
	}
	if v := getEnv("OLLAMA_HOST"); v != "" {
		c.LLM.Ollama.Host = v
	}
	if v := getEnv("OLLAMA_MODEL_PRIORITY"); v != "" {
		models := []string{}
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		if len(models) > 0 {
			c.LLM.Ollama.ModelPriority = models
		}
	}
	if v := getEnv("GEMINI_API_KEY"); v != "" {
		c.LLM.Gemini.APIKey = v
	}
	if v := getEnv("GEMINI_MODEL"); v != "" {
		c.LLM.Gemini.Model = v
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
