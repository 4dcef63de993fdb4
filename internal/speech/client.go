// Package speech converts narration scripts into a single audio artifact by
// chunking the text, synthesizing each chunk through the remote
// text-to-speech service, and handing ordered fragments to the assembler.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/papercast-dev/papercast/internal/core"
)

// API endpoints and paths.
const (
	apiSynthesize = "/v1/synthesize"
	apiHealth     = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeMPEG   = "audio/mpeg"
)

// HTTPClient is a client for the remote speech-synthesis HTTP service. The
// service enforces a hard per-call byte budget on the submitted text; callers
// segment first and submit one chunk per request.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// synthesizeRequest is the JSON payload of one synthesis call.
type synthesizeRequest struct {
	// Text is the chunk to narrate. Must be non-empty and within the
	// service's per-call byte budget.
	Text string `json:"text"`

	// Voice names the narration voice.
	Voice string `json:"voice"`

	// LanguageCode is the BCP-47 language code (e.g. "en-US", "ko-KR").
	LanguageCode string `json:"language_code"`

	// SpeakingRate scales narration speed; 1.0 is normal.
	SpeakingRate float64 `json:"speaking_rate,omitempty"`
}

// errorResponse is the structured error body the service returns on failure.
type errorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewHTTPClient creates a client for the speech service at baseURL. The
// timeout applies to every request the client makes.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize submits one text chunk and returns the raw MP3 audio.
// Timeouts, rate limiting, and 5xx responses are marked transient; 4xx
// responses and empty audio are permanent.
func (c *HTTPClient) Synthesize(
	ctx context.Context,
	text string,
	params core.VoiceParams,
) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", core.ErrPermanent)
	}

	requestBody, err := json.Marshal(synthesizeRequest{
		Text:         text,
		Voice:        params.Voice,
		LanguageCode: params.LanguageCode,
		SpeakingRate: params.SpeakingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiSynthesize,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeMPEG)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network failures and client timeouts are worth retrying.
		return nil, fmt.Errorf(
			"%w: speech service at %s unreachable: %w",
			core.ErrTransient,
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != contentTypeMPEG {
		return nil, fmt.Errorf(
			"%w: unexpected content type %q from speech service",
			core.ErrPermanent,
			contentType,
		)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio body: %w", core.ErrTransient, err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("%w: received empty audio data", core.ErrPermanent)
	}

	return audioData, nil
}

// HealthCheck verifies the speech service is reachable and reports healthy.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// classifyErrorResponse maps a non-OK response onto the error taxonomy,
// preserving the service's structured detail when it parses.
func (c *HTTPClient) classifyErrorResponse(resp *http.Response) error {
	kind := core.ErrPermanent
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		kind = core.ErrTransient
	}

	var structured errorResponse

	err := json.NewDecoder(resp.Body).Decode(&structured)
	if err == nil && structured.Detail != "" {
		return fmt.Errorf(
			"%w: speech service error (%s): %s (code: %s)",
			kind,
			resp.Status,
			structured.Detail,
			structured.ErrorCode,
		)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		"%w: speech service returned non-OK status %s: %s",
		kind,
		resp.Status,
		string(body),
	)
}
