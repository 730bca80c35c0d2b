package upstream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/jmcortes/newswire/internal/errors"
)

// streamDone is the sentinel the gateway sends after the final chunk.
const streamDone = "[DONE]"

// chatCompletionChunk mirrors one event of the gateway's streaming response.
type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// streamOnce performs a single streaming completion attempt, assembling the
// full content from the delta events.
func (c *HTTPClient) streamOnce(ctx context.Context, req ChatRequest, onDelta DeltaFunc) (ChatResponse, error) {
	body, status, err := c.post(ctx, req)
	if err != nil {
		return ChatResponse{}, err
	}
	defer body.Close()

	if status < 200 || status >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(body, 4096))
		return ChatResponse{}, errors.NewUpstreamError(status, errorSnippet(raw), nil)
	}

	var sb strings.Builder
	var finishReason string
	done := false

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == streamDone {
			done = true
			break
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return ChatResponse{}, errors.NewUpstreamError(status, "decode stream chunk", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if fr := strings.TrimSpace(chunk.Choices[0].FinishReason); fr != "" {
			finishReason = fr
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return ChatResponse{}, err
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ChatResponse{}, errors.FromContext(ctxErr)
		}
		return ChatResponse{}, errors.NewUpstreamError(0, "read stream", err)
	}
	if !done && finishReason == "" {
		return ChatResponse{}, errors.NewUpstreamError(0, "stream ended early", errors.ErrStreamClosed)
	}

	content := sb.String()
	if strings.TrimSpace(content) == "" {
		return ChatResponse{}, errors.NewUpstreamError(status, "stream carried empty content", nil)
	}
	return ChatResponse{
		Content:      content,
		FinishReason: finishReason,
	}, nil
}
