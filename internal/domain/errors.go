package domain

import "errors"

var (
	// ErrStoreUnavailable signals that the vector store was never initialized.
	ErrStoreUnavailable = errors.New("vector store unavailable")
	// ErrRecipeNotFound signals a missing recipe document.
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrSessionNotFound signals a missing chat session.
	ErrSessionNotFound = errors.New("chat session not found")

	// ErrQuotaExceeded signals an exhausted embedding or generation quota.
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrProviderError signals a generic provider failure.
	ErrProviderError = errors.New("provider error")
	// ErrProviderUnavailable signals an invoke on a provider with no credentials.
	ErrProviderUnavailable = errors.New("provider credentials not configured")
	// ErrMalformedRecipe signals structured output missing mandatory fields.
	ErrMalformedRecipe = errors.New("malformed recipe response")
	// ErrUnsupportedLanguage signals a language outside the supported set.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// IsQuota reports whether quota exhaustion appears anywhere in the error chain.
func IsQuota(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
