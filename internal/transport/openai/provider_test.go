package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

func chatCompletionBody(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

func testProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	p, err := NewGemini(&ProviderConfig{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		RecipeModel:     "test-model",
		ChatModel:       "test-chat-model",
		MaxOutputTokens: 512,
		Temperature:     0.3,
		ChatTemperature: 0.7,
		Logger:          zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}
	return p
}

func TestProvider_GenerateRecipe(t *testing.T) {
	recipeJSON := `{
		"dishName": "Phở gà nhanh",
		"description": "Phở gà đơn giản cho bữa sáng",
		"prepTime": "15 phút",
		"cookTime": "30 phút",
		"servings": "2 người",
		"ingredients": [{"name": "thịt gà", "quantity": "300g"}],
		"steps": [
			{"stepNumber": 1, "description": "Luộc gà"},
			{"stepNumber": 2, "description": "Nấu nước dùng"},
			{"stepNumber": 3, "description": "Trình bày"}
		]
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model          string `json:"model"`
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, expected test-model", req.Model)
		}
		if req.ResponseFormat.Type != "json_schema" {
			t.Errorf("response_format.type = %q, expected json_schema", req.ResponseFormat.Type)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionBody(recipeJSON))
	}))
	defer server.Close()

	p := testProvider(t, server.URL)

	recipe, err := p.GenerateRecipe(context.Background(), "tạo công thức phở gà")
	if err != nil {
		t.Fatalf("GenerateRecipe failed: %v", err)
	}

	if recipe.DishName != "Phở gà nhanh" {
		t.Errorf("dishName = %q", recipe.DishName)
	}
	if len(recipe.Steps) != 3 {
		t.Errorf("expected 3 steps, got %d", len(recipe.Steps))
	}
	if err := recipe.Validate(); err != nil {
		t.Errorf("generated recipe failed validation: %v", err)
	}
}

func TestProvider_GenerateRecipe_MalformedOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionBody("not json at all"))
	}))
	defer server.Close()

	p := testProvider(t, server.URL)

	_, err := p.GenerateRecipe(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrMalformedRecipe) {
		t.Fatalf("expected ErrMalformedRecipe, got %v", err)
	}
}

func TestProvider_GenerateRecipe_QuotaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "quota exhausted",
				"type":    "insufficient_quota",
				"code":    "insufficient_quota",
			},
		})
	}))
	defer server.Close()

	p := testProvider(t, server.URL)

	_, err := p.GenerateRecipe(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestProvider_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-chat-model" {
			t.Errorf("model = %q, expected test-chat-model", req.Model)
		}
		if len(req.Messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(req.Messages))
		}
		if req.Messages[0].Role != "system" {
			t.Errorf("first role = %q, expected system", req.Messages[0].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionBody("Chào bạn, mình có thể giúp gì?"))
	}))
	defer server.Close()

	p := testProvider(t, server.URL)

	reply, err := p.Chat(context.Background(), []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "Bạn là trợ lý nấu ăn."},
		{Role: domain.RoleUser, Content: "Gợi ý món cho bữa tối"},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "Chào bạn, mình có thể giúp gì?" {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestProvider_Unavailable(t *testing.T) {
	p, err := NewOpenAI(&ProviderConfig{
		RecipeModel: "test-model",
		ChatModel:   "test-model",
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewOpenAI failed: %v", err)
	}

	if p.IsAvailable() {
		t.Error("provider without credentials must not report available")
	}
	if p.Name() != "openai" {
		t.Errorf("name = %q", p.Name())
	}

	if _, err := p.GenerateRecipe(context.Background(), "prompt"); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
	if _, err := p.Chat(context.Background(), nil); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}
