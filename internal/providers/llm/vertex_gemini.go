package llm

import (
	"context"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

// VertexGemini is an alternative Provider for deployments on Vertex AI.
type VertexGemini struct {
	client    *vertexgenai.Client
	modelName string
	memory    *chatMemory
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string, memoryWindow int) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &VertexGemini{client: c, modelName: modelName, memory: newChatMemory(memoryWindow)}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) StreamChat(ctx context.Context, systemPrompt, userPrompt, conversationID string) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		// Model handles are cheap; a fresh one per call keeps the system
		// instruction and history isolated between conversations.
		model := v.client.GenerativeModel(v.modelName)
		model.SystemInstruction = &vertexgenai.Content{
			Parts: []vertexgenai.Part{vertexgenai.Text(systemPrompt)},
		}

		cs := model.StartChat()
		for _, m := range v.memory.history(conversationID) {
			role := "user"
			if m.Role == "assistant" {
				role = "model"
			}
			cs.History = append(cs.History, &vertexgenai.Content{
				Role:  role,
				Parts: []vertexgenai.Part{vertexgenai.Text(m.Content)},
			})
		}

		var full []byte
		it := cs.SendMessageStream(ctx, vertexgenai.Text(userPrompt))
		for {
			resp, err := it.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				if ctx.Err() == nil {
					errs <- err
				}
				return
			}
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					t, ok := part.(vertexgenai.Text)
					if !ok || t == "" {
						continue
					}
					full = append(full, t...)
					select {
					case out <- string(t):
					case <-ctx.Done():
						return
					}
				}
			}
		}

		v.memory.append(conversationID,
			message{Role: "user", Content: userPrompt},
			message{Role: "assistant", Content: string(full)},
		)
	}()

	return out, errs
}
