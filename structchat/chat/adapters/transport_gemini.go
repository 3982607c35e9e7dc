package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
	"github.com/rs/zerolog"
)

// GeminiTransport sends conversations to a generateContent endpoint.
type GeminiTransport struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
	logger  zerolog.Logger
}

// NewGeminiTransport creates a transport for model at baseURL.
func NewGeminiTransport(baseURL, model, apiKey string, timeout time.Duration, logger zerolog.Logger) *GeminiTransport {
	return &GeminiTransport{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		logger:  logger,
	}
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Send posts turns and returns the status code with the candidate text on
// success, or the raw error body otherwise.
func (t *GeminiTransport) Send(ctx context.Context, turns []ports.Turn) (ports.HTTPResponse, error) {
	payload, err := json.Marshal(buildGeminiRequest(turns))
	if err != nil {
		return ports.HTTPResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", t.baseURL, url.PathEscape(t.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return ports.HTTPResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("x-goog-api-key", t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return ports.HTTPResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.HTTPResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.logger.Debug().Int("status", resp.StatusCode).Msg("model request rejected")
		return ports.HTTPResponse{Code: resp.StatusCode, Body: string(body)}, nil
	}

	var decoded geminiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ports.HTTPResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	var text strings.Builder
	if len(decoded.Candidates) > 0 {
		for _, part := range decoded.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
	}
	return ports.HTTPResponse{Code: resp.StatusCode, Body: text.String()}, nil
}

func buildGeminiRequest(turns []ports.Turn) geminiRequest {
	var req geminiRequest
	for _, turn := range turns {
		content := geminiContent{Parts: []geminiPart{{Text: turn.Text()}}}
		for _, m := range turn.Media {
			content.Parts = append(content.Parts, geminiPart{
				InlineData: &geminiInlineData{MimeType: "audio/" + m.Format, Data: m.Data},
			})
		}

		switch turn.Role {
		case ports.RoleSystem:
			req.SystemInstruction = &content
		case ports.RoleUser:
			content.Role = "user"
			req.Contents = append(req.Contents, content)
		case ports.RoleModel:
			content.Role = "model"
			req.Contents = append(req.Contents, content)
		}
	}
	return req
}

// Ensure GeminiTransport implements the Transport interface.
var _ ports.Transport = (*GeminiTransport)(nil)
