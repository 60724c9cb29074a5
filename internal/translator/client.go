package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// ServiceError classifies a failed service call. Transient errors (rate
// limits, 5xx, timeouts) are retried by the Translator; permanent ones are
// not.
type ServiceError struct {
	Status    int
	Message   string
	Transient bool
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("translation service error (status %d): %s", e.Status, e.Message)
}

// IsTransient checks if err is worth retrying.
func IsTransient(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Transient
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Timeout() || ue.Temporary()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// ContextFunc supplies per-text prompt context (terminology, similar past
// translations) assembled by the caller's wiring.
type ContextFunc func(ctx context.Context, text string) string

// GeminiClient implements Service against the Google Gemini API. One Request
// is a single attempt; the retry policy lives in the Translator.
type GeminiClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	contextFn  ContextFunc
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// SetContextFunc attaches a prompt-context provider.
func (gc *GeminiClient) SetContextFunc(fn ContextFunc) {
	gc.contextFn = fn
}

// --- Gemini API request/response types ---

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  *genConfig      `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type genConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata *geminiUsage      `json:"usageMetadata,omitempty"`
	Error         *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Request sends one translation attempt to Gemini.
func (gc *GeminiClient) Request(ctx context.Context, text, source, target string) (string, error) {
	var promptContext string
	if gc.contextFn != nil {
		promptContext = gc.contextFn(ctx, text)
	}

	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: SystemPrompt(source, target)}},
		},
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: BuildUserPrompt(text, promptContext)}},
			},
		},
		GenerationConfig: &genConfig{
			MaxOutputTokens: 2048,
			Temperature:     0.3,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal translation request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiBaseURL, gc.model, gc.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := gc.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &ServiceError{Status: resp.StatusCode, Message: string(respBody), Transient: true}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{Status: resp.StatusCode, Message: string(respBody)}
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", &ServiceError{Status: apiResp.Error.Code, Message: apiResp.Error.Message}
	}
	if len(apiResp.Candidates) == 0 {
		return "", &ServiceError{Message: "empty response: no candidates", Transient: true}
	}

	var result strings.Builder
	for _, p := range apiResp.Candidates[0].Content.Parts {
		result.WriteString(p.Text)
	}

	if apiResp.UsageMetadata != nil {
		log.Debug().
			Int("prompt_tokens", apiResp.UsageMetadata.PromptTokenCount).
			Int("output_tokens", apiResp.UsageMetadata.CandidatesTokenCount).
			Msg("Translation attempt complete")
	}

	return strings.TrimSpace(result.String()), nil
}
