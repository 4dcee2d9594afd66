package config

import "time"

const (
	openAIKeyVar       = "OPENAI_API_KEY"
	openAIBaseURLVar   = "OPENAI_BASE_URL"
	openAIModelVar     = "OPENAI_MODEL"
	llmTimeoutVar      = "LLM_TIMEOUT"
	llmMaxRetriesVar   = "LLM_MAX_RETRIES"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultOpenAIURL   = "https://api.openai.com"
	defaultLLMTimeout  = 30 * time.Second
	defaultLLMRetries  = 3
)

type LLMConfig interface {
	GetOpenAIKey() string
	GetOpenAIBaseURL() string
	GetOpenAIModel() string
	GetLLMTimeout() time.Duration
	GetLLMMaxRetries() int
}

type LLM struct{}

var _ LLMConfig = LLM{}

func (LLM) GetOpenAIKey() string {
	return GetEnv(openAIKeyVar, "")
}

func (LLM) GetOpenAIBaseURL() string {
	return GetEnv(openAIBaseURLVar, defaultOpenAIURL)
}

func (LLM) GetOpenAIModel() string {
	return GetEnv(openAIModelVar, defaultOpenAIModel)
}

func (LLM) GetLLMTimeout() time.Duration {
	return GetDuration(llmTimeoutVar, defaultLLMTimeout)
}

func (LLM) GetLLMMaxRetries() int {
	return GetInt(llmMaxRetriesVar, defaultLLMRetries)
}
