package llm

import (
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/convoview/internal/config"
)

// NewClient creates an OpenAI-compatible client. An empty base URL keeps the
// OpenAI default; any compatible endpoint (Groq, a local gateway) works.
func NewClient(cfg config.LLMConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	return openai.NewClientWithConfig(clientCfg)
}
