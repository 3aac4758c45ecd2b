package openai

import (
	"context"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps the generation backend. The synthesizer only ever needs one
// completion per finalized questionnaire, so the surface is a single-shot call
// plus its streaming variant.
type Client struct {
	api   *openai.Client
	Model string
}

// NewClient reads OPENAI_API_KEY and MEDIGUIDE_MODEL from the environment.
func NewClient() *Client {
	key := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("MEDIGUIDE_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{api: openai.NewClient(key), Model: model}
}

// Complete runs one chat completion with a system instruction and the
// assembled user content.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream runs the same completion but returns the tokens as a channel, closed
// when the model finishes or the stream errors.
func (c *Client) Stream(ctx context.Context, system, user string) (<-chan string, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan string)

	go func() {
		defer stream.Close()
		defer close(ch)
		for {
			resp, err := stream.Recv()
			if err != nil {
				break
			}
			if len(resp.Choices) > 0 {
				ch <- resp.Choices[0].Delta.Content
			}
		}
	}()

	return ch, nil
}
