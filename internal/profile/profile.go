package profile

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Cloud LLM configuration (OpenAI-compatible protocol).
	// All providers (openai, azure, deepseek) use the same config shape.
	LLMProvider string // Provider identifier: openai, azure, deepseek
	LLMAPIKey   string
	LLMBaseURL  string // Optional, has default per provider
	LLMModel    string
	LLMTimeout  int // LLM request timeout in seconds (default: 120)

	// Local agent configuration. Ollama speaks the OpenAI-compatible
	// protocol, so only a base URL and model are needed.
	LocalLLMBaseURL string
	LocalLLMModel   string
	LocalLLMTimeout int

	// Embedding configuration for the context retriever.
	EmbeddingAPIKey  string
	EmbeddingBaseURL string
	EmbeddingModel   string

	// Agent service credential: authenticates the integration channel and
	// maps to a fixed pseudo-user. Mutations are still attributed to the
	// human user named in each automation request.
	AgentServiceToken  string
	AgentServiceUserID int32

	// Tika server for PDF/Word content extraction.
	TikaServerURL string

	// Secret signs and verifies user access tokens.
	Secret string

	Mode        string
	Addr        string
	Data        string
	Driver      string
	DSN         string
	InstanceURL string
	Version     string
	Port        int
}

// Provider default configurations for the cloud LLM.
// Used when LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"azure": {
		BaseURL: "", // Azure requires an explicit endpoint
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsCloudLLMEnabled returns true if the cloud agent can be served.
func (p *Profile) IsCloudLLMEnabled() bool {
	return p.LLMAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("DOIT_AI_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("DOIT_AI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("DOIT_AI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("DOIT_AI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("DOIT_AI_LLM_TIMEOUT_SECONDS", 120)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("unknown LLM provider, using default: openai", "provider", p.LLMProvider)
		p.LLMProvider = "openai"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.LocalLLMBaseURL = getEnvOrDefault("DOIT_LOCAL_LLM_BASE_URL", "http://localhost:11434")
	p.LocalLLMModel = getEnvOrDefault("DOIT_LOCAL_LLM_MODEL", "qwen2.5-coder:1.5b")
	p.LocalLLMTimeout = getEnvOrDefaultInt("DOIT_LOCAL_LLM_TIMEOUT_SECONDS", 120)

	p.EmbeddingAPIKey = getEnvOrDefault("DOIT_AI_EMBEDDING_API_KEY", p.LLMAPIKey)
	p.EmbeddingBaseURL = getEnvOrDefault("DOIT_AI_EMBEDDING_BASE_URL", p.LLMBaseURL)
	p.EmbeddingModel = getEnvOrDefault("DOIT_AI_EMBEDDING_MODEL", "text-embedding-3-small")

	p.AgentServiceToken = getEnvOrDefault("DOIT_AGENT_SERVICE_TOKEN", "")
	if id := getEnvOrDefaultInt("DOIT_AGENT_SERVICE_USER_ID", 0); id > 0 {
		p.AgentServiceUserID = int32(id)
	}

	p.TikaServerURL = getEnvOrDefault("DOIT_TIKA_URL", "")

	p.Secret = getEnvOrDefault("DOIT_JWT_SECRET", "")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies.
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("assist_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires an explicit DSN")
	}

	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("DOIT_JWT_SECRET must be set in prod mode")
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return errors.Wrap(err, "failed to generate ephemeral secret")
		}
		p.Secret = hex.EncodeToString(buf)
		slog.Warn("no JWT secret configured, using an ephemeral secret; issued tokens will not survive restarts")
	}

	return nil
}
