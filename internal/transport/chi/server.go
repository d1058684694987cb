package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chefmate-cloud/chefmate/internal/domain"
	chatuc "github.com/chefmate-cloud/chefmate/internal/usecase/chat"
	generateuc "github.com/chefmate-cloud/chefmate/internal/usecase/generate"
)

const defaultSearchLimit = 5

// recipeGenerator is the slice of the generation service the server needs.
type recipeGenerator interface {
	Generate(ctx context.Context, req *generateuc.Request) (*generateuc.Response, error)
}

// recipeSearcher is the slice of the recipe repository the server needs.
type recipeSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.RecipeDocument, error)
	Count(ctx context.Context) (int, error)
	IsAvailable() bool
}

// chatter is the slice of the chat service the server needs.
type chatter interface {
	Chat(ctx context.Context, userID, message string) (*chatuc.Reply, error)
	HistoryOf(ctx context.Context, userID string) (chatuc.HistoryResult, error)
	ClearSession(ctx context.Context, userID string) (bool, error)
	Sessions() []chatuc.SessionInfo
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server exposes the recipe and chat API over chi.
type Server struct {
	generate      recipeGenerator
	recipes       recipeSearcher
	chat          chatter
	indexName     string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	generate recipeGenerator,
	recipes recipeSearcher,
	chat chatter,
	indexName string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		generate:  generate,
		recipes:   recipes,
		chat:      chat,
		indexName: indexName,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnsupportedLanguage, http.StatusBadRequest),
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusPaymentRequired),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusServiceUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable),
		sentinelHandler(domain.ErrMalformedRecipe, http.StatusBadGateway),
		sentinelHandler(domain.ErrProviderError, http.StatusBadGateway),
	}
	return s
}

// Register mounts all API routes on the given router.
func (s *Server) Register(r chi.Router) {
	r.Post("/generate-recipe", s.GenerateRecipe)
	r.Post("/search-recipes", s.SearchRecipes)
	r.Get("/vector-store-status", s.VectorStoreStatus)
	r.Post("/chat", s.Chat)
	r.Get("/chat/history/{userID}", s.ChatHistory)
	r.Delete("/chat/history/{userID}", s.ClearChatHistory)
	r.Get("/chat/sessions", s.ChatSessions)
	r.Get("/healthz", s.Healthz)
	r.Get("/metrics", s.Metrics)
}

type generateRecipeRequest struct {
	DishName    string   `json:"dishName"`
	Categories  []string `json:"categories"`
	Category    string   `json:"category"`
	Language    string   `json:"language"`
	ServingSize int      `json:"servingSize"`
}

type generateMeta struct {
	Duration   string              `json:"duration"`
	Attempts   int                 `json:"attempts"`
	RAGUsed    bool                `json:"ragUsed"`
	RAGRecipes int                 `json:"ragRecipes"`
	Stored     domain.StoreOutcome `json:"stored"`
}

// GenerateRecipe handles POST /generate-recipe.
func (s *Server) GenerateRecipe(w http.ResponseWriter, r *http.Request) {
	var req generateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.DishName == "" {
		writeError(w, http.StatusBadRequest, "Vui lòng cung cấp 'dishName' trong body request.")
		return
	}

	// Singular "category" is a legacy alias for a one-element list.
	categories := req.Categories
	if len(categories) == 0 && req.Category != "" {
		categories = []string{req.Category}
	}

	resp, err := s.generate.Generate(r.Context(), &generateuc.Request{
		DishName:    req.DishName,
		Categories:  categories,
		Language:    req.Language,
		ServingSize: req.ServingSize,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedLanguage) {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Language không hợp lệ. Hỗ trợ: %s, %s",
					domain.LanguageVietnamese, domain.LanguageEnglish))
			return
		}
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"recipe":  resp.Recipe,
		"meta": generateMeta{
			Duration:   fmt.Sprintf("%dms", resp.DurationMS),
			Attempts:   resp.Attempts,
			RAGUsed:    resp.RAGUsed,
			RAGRecipes: resp.RAGRecipes,
			Stored:     resp.StoreOutcome,
		},
	})
}

type searchRecipesRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type recipeSummary struct {
	DishName    string   `json:"dishName"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	Language    string   `json:"language"`
	PrepTime    string   `json:"prepTime"`
	CookTime    string   `json:"cookTime"`
	Servings    string   `json:"servings"`
	CreatedAt   string   `json:"createdAt"`
}

// SearchRecipes handles POST /search-recipes.
func (s *Server) SearchRecipes(w http.ResponseWriter, r *http.Request) {
	var req searchRecipesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Vui lòng cung cấp 'query' trong body request.")
		return
	}

	if !s.recipes.IsAvailable() {
		writeError(w, http.StatusServiceUnavailable,
			"Vector store không khả dụng. Vui lòng cấu hình database.addrs.")
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	docs, err := s.recipes.Search(r.Context(), req.Query, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	recipes := make([]recipeSummary, len(docs))
	for i, doc := range docs {
		recipes[i] = recipeSummary{
			DishName:    doc.Metadata.DishName,
			Description: doc.Metadata.Description,
			Categories:  doc.Metadata.Categories,
			Language:    doc.Metadata.Language,
			PrepTime:    doc.Metadata.PrepTime,
			CookTime:    doc.Metadata.CookTime,
			Servings:    doc.Metadata.Servings,
			CreatedAt:   doc.Metadata.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"query":   req.Query,
		"count":   len(recipes),
		"recipes": recipes,
	})
}

// VectorStoreStatus handles GET /vector-store-status.
func (s *Server) VectorStoreStatus(w http.ResponseWriter, r *http.Request) {
	if !s.recipes.IsAvailable() {
		writeJSON(w, http.StatusOK, map[string]any{
			"initialized": false,
			"message":     "Vector store not configured. Set database.addrs in config.",
		})
		return
	}

	count, err := s.recipes.Count(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"initialized": true,
		"recipeCount": count,
		"indexName":   s.indexName,
	})
}

type chatRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "Vui lòng cung cấp 'userId' và 'message'")
		return
	}

	reply, err := s.chat.Chat(r.Context(), req.UserID, req.Message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"userId":  req.UserID,
		"message": reply.Message,
		"sessionInfo": map[string]any{
			"createdAt":    reply.CreatedAt,
			"messageCount": reply.MessageCount,
		},
	})
}

// ChatHistory handles GET /chat/history/{userID}.
func (s *Server) ChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	hist, err := s.chat.HistoryOf(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if !hist.Exists {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"userId":  userID,
			"exists":  false,
			"history": []domain.ChatMessage{},
		})
		return
	}

	messages := hist.Messages
	if messages == nil {
		messages = []domain.ChatMessage{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"userId":       userID,
		"exists":       true,
		"messageCount": len(messages),
		"history":      messages,
		"createdAt":    hist.CreatedAt,
		"lastActivity": hist.LastActivity,
	})
}

// ClearChatHistory handles DELETE /chat/history/{userID}.
func (s *Server) ClearChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	deleted, err := s.chat.ClearSession(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	message := "Không tìm thấy session"
	if deleted {
		message = "Đã xóa lịch sử chat"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"userId":  userID,
		"deleted": deleted,
		"message": message,
	})
}

// ChatSessions handles GET /chat/sessions.
func (s *Server) ChatSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.chat.Sessions()

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"totalSessions": len(sessions),
		"sessions":      sessions,
	})
}

// Healthz handles GET /healthz. The vector store being disabled is a
// supported configuration, so it degrades the check without failing it.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	vectorStore := "ok"
	if !s.recipes.IsAvailable() {
		vectorStore = "disabled"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"checks": map[string]string{
			"vector_store": vectorStore,
		},
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrStoreUnavailable,
		domain.ErrRecipeNotFound,
		domain.ErrSessionNotFound,
		domain.ErrQuotaExceeded,
		domain.ErrRateLimited,
		domain.ErrProviderUnavailable,
		domain.ErrMalformedRecipe,
		domain.ErrProviderError,
		domain.ErrUnsupportedLanguage,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, safeDomainMessage(err))
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
