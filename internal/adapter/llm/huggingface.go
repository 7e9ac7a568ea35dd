package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/float-query-service/internal/domain"
)

// HuggingFace rewrites answers with the hosted inference API.
type HuggingFace struct {
	token      string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewHuggingFace creates a HuggingFace augmenter. The per-call deadline comes
// from the caller's context; timeout is a transport-level backstop.
func NewHuggingFace(token, model, baseURL string, timeout time.Duration) (*HuggingFace, error) {
	if token == "" {
		return nil, fmt.Errorf("huggingface: API key is required")
	}
	return &HuggingFace{
		token:      token,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (h *HuggingFace) Name() string { return "huggingface" }

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (h *HuggingFace) Augment(ctx context.Context, text string, ac domain.AugmentContext) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: systemPrompt + "\n\n" + buildPrompt(text, ac),
		Parameters: hfParameters{
			MaxNewTokens: maxOutputTokens,
			Temperature:  0.3,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/"+h.model, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("huggingface request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("huggingface API error: status %d: %s", resp.StatusCode, msg)
	}

	var gens []hfGeneration
	if err := json.NewDecoder(resp.Body).Decode(&gens); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(gens) == 0 {
		return "", ErrEmptyCompletion
	}
	return checkRewrite(gens[0].GeneratedText, ac)
}
