package gemini

import (
	"context"
	"os"
	"sync"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/rag/llm"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
}

var logger *logger_i.Logger
var geminiClient *llmClient
var once sync.Once

func GetGeminiClient(ctx context.Context, modelName string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, modelName)
	})

	if geminiClient == nil {
		return nil
	}
	return &llmClient{client: geminiClient.client, modelName: geminiClient.modelName}
}

func newGeminiClient(ctx context.Context, modelName string) {

	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: os.Getenv("GEMINI_API_KEY")})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
		return
	}
	geminiClient = &llmClient{client: c, modelName: modelName}
	logger.Info("Gemini client created", "model", modelName)
	go closeClient(ctx, geminiClient)
}

func (c *llmClient) ModelName() string {
	return c.modelName
}

func (c *llmClient) contentConfig(system string) *genai.GenerateContentConfig {
	temperature := config.ModelTemperature
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: system},
			},
		},
		Temperature: &temperature,
	}
}

func (c *llmClient) Generate(ctx context.Context, system string, prompt string) (string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.modelName,
		genai.Text(prompt),
		c.contentConfig(system),
	)
	if err != nil {
		log.Error("Gemini generation failed", "error", err.Error())
		return "", err
	}
	return result.Text(), nil
}

func (c *llmClient) GenerateStream(ctx context.Context, system string, prompt string) (<-chan string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))
	out := make(chan string)

	go func() {
		defer close(out)
		for resp, err := range c.client.Models.GenerateContentStream(
			ctx,
			c.modelName,
			genai.Text(prompt),
			c.contentConfig(system),
		) {
			if err != nil {
				log.Error("Gemini stream ended with error", "error", err.Error())
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case out <- text:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func closeClient(ctx context.Context, llm *llmClient) {
	<-ctx.Done()
	logger.Info("Closing Gemini client")
	llm.client = nil
	llm.modelName = ""
}
