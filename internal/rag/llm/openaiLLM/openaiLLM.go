package openaiLLM

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/rag/llm"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger *logger_i.Logger
var once sync.Once
var openaiClient *llmClient

type llmClient struct {
	api   openai.Client
	model string
}

func GetOpenAIClient(ctx context.Context, modelName string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_openai")
		newOpenAIClient(modelName)
	})

	if openaiClient == nil {
		return nil
	}
	return &llmClient{api: openaiClient.api, model: openaiClient.model}
}

func newOpenAIClient(modelName string) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Error("OPENAI_API_KEY is not set")
		return
	}
	openaiClient = &llmClient{
		api:   openai.NewClient(option.WithAPIKey(apiKey)),
		model: modelName,
	}
	logger.Info("OpenAI client created", "model", modelName)
}

func (c *llmClient) ModelName() string {
	return c.model
}

func (c *llmClient) params(system string, prompt string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(config.MaxOutputTokens),
		Temperature: openai.Float(float64(config.ModelTemperature)),
	}
}

func (c *llmClient) Generate(ctx context.Context, system string, prompt string) (string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	resp, err := c.api.Chat.Completions.New(ctx, c.params(system, prompt))
	if err != nil {
		log.Error("OpenAI generation failed", "error", err.Error())
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *llmClient) GenerateStream(ctx context.Context, system string, prompt string) (<-chan string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	stream := c.api.Chat.Completions.NewStreaming(ctx, c.params(system, prompt))
	out := make(chan string)

	go func() {
		defer close(out)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case out <- delta:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil {
			log.Error("OpenAI stream ended with error", "error", err.Error())
		}
	}()

	return out, nil
}
