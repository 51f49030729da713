package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Ollama streams chat completions from a local Ollama server over its NDJSON
// protocol, with a per-conversation message window.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	memory  *chatMemory
}

type OllamaConfig struct {
	BaseURL       string
	Model         string
	MemoryWindow  int
	StreamTimeout time.Duration
}

func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:7b"
	}
	if cfg.StreamTimeout == 0 {
		cfg.StreamTimeout = 5 * time.Minute
	}
	return &Ollama{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.StreamTimeout},
		memory:  newChatMemory(cfg.MemoryWindow),
	}
}

func (o *Ollama) Close() error { return nil }

func (o *Ollama) StreamChat(ctx context.Context, systemPrompt, userPrompt, conversationID string) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		msgs := []message{{Role: "system", Content: systemPrompt}}
		msgs = append(msgs, o.memory.history(conversationID)...)
		msgs = append(msgs, message{Role: "user", Content: userPrompt})

		body, _ := json.Marshal(map[string]any{
			"model":    o.model,
			"messages": msgs,
			"stream":   true,
		})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
		if err != nil {
			errs <- err
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			errs <- fmt.Errorf("ollama chat: %s", resp.Status)
			return
		}

		var full bytes.Buffer
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
		for sc.Scan() {
			var line struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
				Done  bool   `json:"done"`
				Error string `json:"error"`
			}
			if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
				continue
			}
			if line.Error != "" {
				errs <- fmt.Errorf("ollama chat: %s", line.Error)
				return
			}
			if line.Message.Content != "" {
				full.WriteString(line.Message.Content)
				select {
				case out <- line.Message.Content:
				case <-ctx.Done():
					return
				}
			}
			if line.Done {
				break
			}
		}
		if err := sc.Err(); err != nil {
			if ctx.Err() == nil {
				errs <- err
			}
			return
		}

		o.memory.append(conversationID,
			message{Role: "user", Content: userPrompt},
			message{Role: "assistant", Content: full.String()},
		)
	}()

	return out, errs
}
