// Package ai implements the plan source against Ollama's native generate
// API. Responses stream as newline-delimited JSON chunks; reasoning text
// wrapped in think tags is surfaced to the display stream but stripped from
// the text handed to extraction.
package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nyxlabs/nyx/internal/domain"
	"github.com/nyxlabs/nyx/internal/infrastructure/plan"
	"github.com/nyxlabs/nyx/internal/ports"
)

// ErrBackendUnreachable wraps transport-level failures so callers can
// distinguish a down backend from a bad response.
var ErrBackendUnreachable = errors.New("model backend unreachable")

// Client talks to an Ollama server over /api/generate.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	stream     ports.StreamWriter
}

var _ ports.PlanSource = (*Client)(nil)

// NewClient builds a Client. stream may be nil when no display is attached.
func NewClient(endpoint, model string, httpClient *http.Client, stream ports.StreamWriter) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: domain.DefaultHTTPClientTimeout}
	}
	return &Client{
		endpoint:   endpoint,
		model:      model,
		httpClient: httpClient,
		stream:     stream,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// GeneratePlan streams a planning response, filters think-tag reasoning to
// the display stream, and extracts the JSON plan object. When extraction
// fails it retries once with a stricter prompt before giving up.
func (c *Client) GeneratePlan(ctx context.Context, req ports.PlanRequest) (ports.PlanText, error) {
	prompt := planPrompt(req.Task, req.OS, req.History)
	raw, err := c.generateStreaming(ctx, prompt)
	if err != nil {
		return ports.PlanText{}, err
	}

	jsonText := plan.ExtractJSON(stripThink(raw))
	if !plan.Extracted(jsonText) {
		retry, err := c.generate(ctx, strictRetryPrompt(req.Task, req.OS))
		if err == nil {
			if retried := plan.ExtractJSON(stripThink(retry)); plan.Extracted(retried) {
				return ports.PlanText{Raw: raw, JSON: retried}, nil
			}
		}
	}
	return ports.PlanText{Raw: raw, JSON: jsonText}, nil
}

// CheckCompletion asks the model whether the task is done. Only an explicit
// COMPLETE counts; everything else, including transport errors surfaced to
// the caller, means continue.
func (c *Client) CheckCompletion(ctx context.Context, task string, history []domain.HistoryEntry) (bool, error) {
	text, err := c.generate(ctx, completionPrompt(task, history))
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToUpper(stripThink(text)), "COMPLETE"), nil
}

// SummarizeSession produces the final wrap-up shown to the user.
func (c *Client) SummarizeSession(ctx context.Context, task string, history []domain.HistoryEntry) (string, error) {
	text, err := c.generate(ctx, sessionSummaryPrompt(task, history))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stripThink(text)), nil
}

// SummarizeEntries condenses dropped history entries for compression.
func (c *Client) SummarizeEntries(ctx context.Context, entries []domain.HistoryEntry) (string, error) {
	text, err := c.generate(ctx, compressionPrompt(entries))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stripThink(text)), nil
}

// Generate returns the full response for one prompt without any plan
// post-processing. The relay server is the only caller.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt)
}

// generateStreaming issues a streaming request and feeds chunks through the
// think filter to the display stream while accumulating the full text.
func (c *Client) generateStreaming(ctx context.Context, prompt string) (string, error) {
	resp, err := c.post(ctx, generateRequest{Model: c.model, Prompt: prompt, Stream: true})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	filter := NewThinkFilter(c.stream)
	var full strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		full.WriteString(chunk.Response)
		filter.Feed(chunk.Response)
		if chunk.Done {
			break
		}
	}
	filter.Close()
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	return full.String(), nil
}

// generate issues a non-streaming request and returns the full response text.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.post(ctx, generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded generateChunk
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}
	return decoded.Response, nil
}

func (c *Client) post(ctx context.Context, payload generateRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("ollama: %s", resp.Status)
	}
	return resp, nil
}
