package llm

import "context"

// Provider is the narrow generation contract. Prompt assembly happens in the
// orchestrator; providers only turn a prompt into text.
type Provider interface {
	Generate(ctx context.Context, system string, prompt string) (string, error)
	//GenerateStream emits tokens until the model finishes or ctx is done.
	//The channel is closed at the end and the stream is not restartable.
	GenerateStream(ctx context.Context, system string, prompt string) (<-chan string, error)
	ModelName() string
}
