// Package codec serializes the annotation collection to and from the
// URL-safe string used in shareable deep links.
//
// The encoded form is base64url over the canonical JSON array. Decode also
// accepts a bare JSON array, which is what older deep links carried in the
// `annotations` query parameter before the collection was wrapped.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/michitomo/douroannotate/internal/models"
)

// Encode serializes a collection to a URL-safe string. The empty collection
// encodes as an empty JSON array, never as "null", so round-trips are exact.
func Encode(list []models.Annotation) (string, error) {
	if list == nil {
		list = []models.Annotation{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode annotations: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses an encoded collection. On any malformed input it returns an
// empty collection together with the error — the error is a report, not a
// failure: callers log it and proceed with the empty collection.
func Decode(s string) ([]models.Annotation, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []models.Annotation{}, nil
	}

	raw := []byte(s)
	if !strings.HasPrefix(s, "[") {
		decoded, err := base64.RawURLEncoding.DecodeString(s)
		if err != nil {
			// Padded variant, for links produced by generic base64 encoders.
			decoded, err = base64.URLEncoding.DecodeString(s)
		}
		if err != nil {
			return []models.Annotation{}, fmt.Errorf("decode annotations: %w", err)
		}
		raw = decoded
	}

	var list []models.Annotation
	if err := json.Unmarshal(raw, &list); err != nil {
		return []models.Annotation{}, fmt.Errorf("decode annotations: %w", err)
	}
	if list == nil {
		list = []models.Annotation{}
	}
	return list, nil
}
