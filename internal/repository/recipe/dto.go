package recipe

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

// Hash field names for stored recipe documents. categories is a TAG
// field separated by tagSeparator; vector holds the embedding as a
// little-endian float32 blob.
const (
	fieldText        = "text"
	fieldVector      = "vector"
	fieldDishName    = "dish_name"
	fieldDescription = "description"
	fieldCategories  = "categories"
	fieldLanguage    = "language"
	fieldPrepTime    = "prep_time"
	fieldCookTime    = "cook_time"
	fieldServings    = "servings"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
)

const tagSeparator = "|"

// returnFields is what similarity and tag searches ask the index to
// project. The vector blob is deliberately excluded.
var returnFields = []string{
	fieldText, fieldDishName, fieldDescription, fieldCategories,
	fieldLanguage, fieldPrepTime, fieldCookTime, fieldServings,
	fieldCreatedAt, fieldUpdatedAt,
}

// docToHash converts a domain document to a map for HSET.
func docToHash(doc *domain.RecipeDocument) map[string]string {
	return map[string]string{
		fieldText:        doc.Text,
		fieldVector:      string(vectorToBytes(doc.Embedding)),
		fieldDishName:    doc.Metadata.DishName,
		fieldDescription: doc.Metadata.Description,
		fieldCategories:  strings.Join(doc.Metadata.Categories, tagSeparator),
		fieldLanguage:    doc.Metadata.Language,
		fieldPrepTime:    doc.Metadata.PrepTime,
		fieldCookTime:    doc.Metadata.CookTime,
		fieldServings:    doc.Metadata.Servings,
		fieldCreatedAt:   doc.Metadata.CreatedAt,
		fieldUpdatedAt:   doc.Metadata.UpdatedAt,
	}
}

// docFromHash hydrates a domain document from an HGETALL or FT.SEARCH
// field map. The embedding is restored only when the vector field was
// fetched.
func docFromHash(id string, m map[string]string) domain.RecipeDocument {
	var categories []string
	if raw := m[fieldCategories]; raw != "" {
		categories = strings.Split(raw, tagSeparator)
	}

	return domain.RecipeDocument{
		ID:        id,
		Text:      m[fieldText],
		Embedding: bytesToVector(m[fieldVector]),
		Metadata: domain.RecipeMetadata{
			DishName:    m[fieldDishName],
			Description: m[fieldDescription],
			Categories:  categories,
			Language:    m[fieldLanguage],
			PrepTime:    m[fieldPrepTime],
			CookTime:    m[fieldCookTime],
			Servings:    m[fieldServings],
			CreatedAt:   m[fieldCreatedAt],
			UpdatedAt:   m[fieldUpdatedAt],
		},
	}
}

// vectorToBytes serializes []float32 to the binary blob FT.SEARCH
// expects (little-endian float32).
func vectorToBytes(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// bytesToVector deserializes a binary blob to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// tagEscaper escapes characters that are syntax in RediSearch TAG
// queries so dish names with spaces and punctuation match literally.
var tagEscaper = strings.NewReplacer(
	" ", "\\ ", ",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>",
	"{", "\\{", "}", "\\}", "[", "\\[", "]", "\\]", "\"", "\\\"",
	"'", "\\'", ":", "\\:", ";", "\\;", "!", "\\!", "@", "\\@",
	"#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^", "&", "\\&",
	"*", "\\*", "(", "\\(", ")", "\\)", "-", "\\-", "+", "\\+",
	"=", "\\=", "~", "\\~", "|", "\\|", "/", "\\/",
)

func escapeTag(s string) string {
	return tagEscaper.Replace(s)
}
