package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/float-query-service/internal/config"
	"github.com/couchcryptid/float-query-service/internal/domain"
)

const draft = "The average temperature at 1000 m (±25 m) is 5.50 °C, based on 3 samples from 3 floats."

func scalarContext() domain.AugmentContext {
	return domain.AugmentContext{
		Query: "average temperature at 1000 m",
		Result: domain.AggregationResult{
			Operation: domain.OperationAverage,
			Variable:  domain.VariableTemperature,
			Value:     5.5,
			NSamples:  3,
		},
	}
}

func profileContext() domain.AugmentContext {
	return domain.AugmentContext{
		Query: "salinity profile",
		Result: domain.AggregationResult{
			Operation: domain.OperationProfile,
			Variable:  domain.VariableSalinity,
			Series: []domain.Series{{ProfileID: "1", Points: []domain.Point{{X: 0, Y: 36}, {X: 500, Y: 35.2}, {X: 1000, Y: 34.9}}}},
		},
	}
}

func compareContext() domain.AugmentContext {
	ac := profileContext()
	ac.Result.Operation = domain.OperationCompare
	ac.Result.Series = append(ac.Result.Series,
		domain.Series{ProfileID: "2", Points: []domain.Point{{X: 0, Y: 35.8}, {X: 500, Y: 35.1}, {X: 1000, Y: 35.3}}})
	return ac
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt(draft, scalarContext())
	assert.True(t, strings.HasPrefix(p, "As a friendly oceanographer, rewrite this answer"))
	assert.Contains(t, p, "Question: average temperature at 1000 m")
	assert.Contains(t, p, draft)
}

func TestCheckRewrite(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		ac      domain.AugmentContext
		want    string
		wantErr error
	}{
		{"keeps value", "  Down at 1000 m it's a chilly 5.50 °C.  ", scalarContext(), "Down at 1000 m it's a chilly 5.50 °C.", nil},
		{"blank", "   ", scalarContext(), "", ErrEmptyCompletion},
		{"drops value", "It's cold down there.", scalarContext(), "", ErrDroppedValue},
		{"profile without series", "A lovely curve.", domain.AugmentContext{Result: domain.AggregationResult{Operation: domain.OperationProfile}}, "A lovely curve.", nil},
		{"profile keeps range", "Salinity runs from 34.90 up to 36.00 PSU.", profileContext(), "Salinity runs from 34.90 up to 36.00 PSU.", nil},
		{"profile drops range", "Salinity gets a little fresher with depth.", profileContext(), "", ErrDroppedValue},
		{"profile drops high", "Salinity bottoms out at 34.90 PSU.", profileContext(), "", ErrDroppedValue},
		{"compare keeps both ranges", "Float 1 goes 34.90 to 36.00 while float 2 goes 35.10 to 35.80.", compareContext(), "Float 1 goes 34.90 to 36.00 while float 2 goes 35.10 to 35.80.", nil},
		{"compare drops second float", "Float 1 goes 34.90 to 36.00.", compareContext(), "", ErrDroppedValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checkRewrite(tt.out, tt.ac)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenAI_Augment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"At 1000 m the water averages 5.50 °C."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI("sk-test", "gpt-4o-mini", srv.URL+"/v1")
	require.NoError(t, err)
	assert.Equal(t, "openai", o.Name())

	got, err := o.Augment(context.Background(), draft, scalarContext())
	require.NoError(t, err)
	assert.Equal(t, "At 1000 m the water averages 5.50 °C.", got)
}

func TestOpenAI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	o, err := NewOpenAI("sk-test", "gpt-4o-mini", srv.URL)
	require.NoError(t, err)

	_, err = o.Augment(context.Background(), draft, scalarContext())
	require.Error(t, err)
}

func TestGemini_Augment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"It averages 5.50 °C at 1000 m."}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "g-test", "gemini-2.0-flash", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "gemini", g.Name())

	got, err := g.Augment(context.Background(), draft, scalarContext())
	require.NoError(t, err)
	assert.Equal(t, "It averages 5.50 °C at 1000 m.", got)
}

func TestHuggingFace_Augment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mistralai/Mistral-7B-Instruct-v0.2", r.URL.Path)
		assert.Equal(t, "Bearer hf-test", r.Header.Get("Authorization"))

		var req hfRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Inputs, draft)
		assert.False(t, req.Parameters.ReturnFullText)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"generated_text":"Deep down, 5.50 °C on average."}]`))
	}))
	defer srv.Close()

	h, err := NewHuggingFace("hf-test", "mistralai/Mistral-7B-Instruct-v0.2", srv.URL+"/", 5*time.Second)
	require.NoError(t, err)

	got, err := h.Augment(context.Background(), draft, scalarContext())
	require.NoError(t, err)
	assert.Equal(t, "Deep down, 5.50 °C on average.", got)
}

func TestHuggingFace_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
		}))
		defer srv.Close()

		h, err := NewHuggingFace("hf-test", "m", srv.URL, time.Second)
		require.NoError(t, err)
		_, err = h.Augment(context.Background(), draft, scalarContext())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("empty list", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		h, err := NewHuggingFace("hf-test", "m", srv.URL, time.Second)
		require.NoError(t, err)
		_, err = h.Augment(context.Background(), draft, scalarContext())
		require.ErrorIs(t, err, ErrEmptyCompletion)
	})
}

func TestConstructors_RequireKey(t *testing.T) {
	_, err := NewOpenAI("", "m", "")
	require.Error(t, err)
	_, err = NewGemini(context.Background(), "", "m", "")
	require.Error(t, err)
	_, err = NewHuggingFace("", "m", "u", time.Second)
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		p := New(context.Background(), &config.Config{LLMProvider: config.ProviderNone}, discardLogger())
		assert.Equal(t, "none", p.Name())
		got, err := p.Augment(context.Background(), draft, scalarContext())
		require.NoError(t, err)
		assert.Equal(t, draft, got)
	})

	t.Run("auto picks openai", func(t *testing.T) {
		p := New(context.Background(), &config.Config{LLMProvider: config.ProviderAuto, OpenAIAPIKey: "sk"}, discardLogger())
		assert.Equal(t, "openai", p.Name())
	})

	t.Run("auto picks huggingface", func(t *testing.T) {
		p := New(context.Background(), &config.Config{LLMProvider: config.ProviderAuto, HuggingFaceAPIKey: "hf"}, discardLogger())
		assert.Equal(t, "huggingface", p.Name())
	})

	t.Run("missing key degrades to noop", func(t *testing.T) {
		p := New(context.Background(), &config.Config{LLMProvider: config.ProviderOpenAI}, discardLogger())
		assert.Equal(t, "none", p.Name())
	})
}
