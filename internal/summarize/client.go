// Package summarize generates document summaries through the remote
// generative-text service and validates what comes back.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercast-dev/papercast/internal/core"
)

// generateContentPath is the REST path of the generation call, relative to
// the service base URL.
const generateContentPath = "/v1beta/models/%s:generateContent"

// headerAPIKey carries the service API key; keeping it out of the URL keeps
// it out of request logs.
const headerAPIKey = "x-goog-api-key"

// finishReasonStop is the normal completion marker; any other finish reason
// may still carry usable partial text.
const finishReasonStop = "STOP"

// GenerationConfig tunes one generation call.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// GenerativeClient is an HTTP client for the generative-text REST API.
type GenerativeClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

// NewGenerativeClient creates a client for the service at baseURL using the
// named model. The timeout applies to every generation call.
func NewGenerativeClient(
	baseURL, model, apiKey string,
	timeout time.Duration,
) *GenerativeClient {
	return &GenerativeClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		model:      model,
		apiKey:     apiKey,
	}
}

// Generate submits one prompt and returns the generated text. Empty output
// and missing candidates surface as validation errors so the caller's
// fallback path can take over; transport failures follow the usual
// transient/permanent classification.
func (c *GenerativeClient) Generate(
	ctx context.Context,
	prompt string,
	cfg GenerationConfig,
) (string, error) {
	requestBody, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: cfg,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	url := c.baseURL + fmt.Sprintf(generateContentPath, c.model)

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create generation request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(headerAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf(
			"%w: generative service at %s unreachable: %w",
			core.ErrTransient,
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.classifyErrorResponse(resp)
	}

	var decoded generateResponse

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return "", fmt.Errorf("%w: malformed generation response: %w", core.ErrPermanent, err)
	}

	return extractText(decoded)
}

// extractText pulls the candidate text out of the response. Partial text from
// an abnormal finish reason is still returned; it is the caller's validation
// that decides whether to keep it.
func extractText(resp generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no response candidates generated", core.ErrValidation)
	}

	first := resp.Candidates[0]

	var builder strings.Builder

	for _, p := range first.Content.Parts {
		builder.WriteString(p.Text)
	}

	text := builder.String()
	if text == "" {
		return "", fmt.Errorf(
			"%w: candidate finished with reason %q and no text",
			core.ErrValidation,
			first.FinishReason,
		)
	}

	return text, nil
}

func (c *GenerativeClient) classifyErrorResponse(resp *http.Response) error {
	kind := core.ErrPermanent
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		kind = core.ErrTransient
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		"%w: generative service returned status %s: %s",
		kind,
		resp.Status,
		string(body),
	)
}
