package chunker

import (
	"regexp"
	"strings"
)

// Chunk is one ordered segment of extracted text.
type Chunk struct {
	Index      int
	Content    string
	TokenCount int
}

// Splitter turns extracted text into ordered chunks.
type Splitter interface {
	Split(text string) []Chunk
}

// TokenSplitter accumulates sentences until a token budget is reached.
// Token counts are an estimate of one token per four characters.
type TokenSplitter struct {
	maxTokens int
	sentences *regexp.Regexp
}

func NewTokenSplitter(maxTokens int) *TokenSplitter {
	if maxTokens <= 0 {
		maxTokens = 800
	}
	return &TokenSplitter{
		maxTokens: maxTokens,
		sentences: regexp.MustCompile(`(?m)(?U)([^.!?\n]+[.!?\n])`),
	}
}

func (s *TokenSplitter) Split(text string) []Chunk {
	sentences := s.sentences.FindAllString(text, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		sentences = []string{trimmed}
	}

	var chunks []Chunk
	var b strings.Builder
	tokens := 0

	flush := func() {
		content := strings.TrimSpace(b.String())
		if content == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Content:    content,
			TokenCount: EstimateTokens(content),
		})
		b.Reset()
		tokens = 0
	}

	for _, sent := range sentences {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		t := EstimateTokens(sent)
		if tokens > 0 && tokens+t > s.maxTokens {
			flush()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sent)
		tokens += t
	}
	flush()

	return chunks
}

// EstimateTokens approximates the token count of a text segment.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}
