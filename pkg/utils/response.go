package utils

import (
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/frostdev-ops/satwatch/pkg/errors"
)

// ErrorResponse is the body of every non-2xx JSON answer
type ErrorResponse struct {
	OK          bool     `json:"ok"`
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// SendOK writes body with "ok":true merged in
func SendOK(c *gin.Context, statusCode int, body gin.H) {
	out := gin.H{"ok": true}
	for k, v := range body {
		out[k] = v
	}
	c.JSON(statusCode, out)
}

// SendError sends {"ok":false,"error":message}
func SendError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{OK: false, Error: message})
}

// SendAppError maps err to its HTTP status. Non-AppErrors become 500.
func SendAppError(c *gin.Context, err error) {
	SendError(c, apperrors.GetStatusCode(err), apperrors.Message(err))
}

// SendNotFound answers 404 for an unknown route, listing known endpoints that
// look like the requested path.
func SendNotFound(c *gin.Context, endpoints []string) {
	err := apperrors.NotFoundf("endpoint not found: %s %s", c.Request.Method, c.Request.URL.Path)
	c.JSON(err.Code, ErrorResponse{
		OK:          false,
		Error:       err.Message,
		Suggestions: NotFoundSuggestions(c.Request.URL.Path, endpoints),
	})
}

// NotFoundSuggestions returns up to five endpoints sharing a path segment
// with path. When nothing matches every endpoint is suggested.
func NotFoundSuggestions(path string, endpoints []string) []string {
	segments := strings.FieldsFunc(strings.ToLower(path), func(r rune) bool {
		return r == '/' || r == '-' || r == '_' || r == '.'
	})

	seen := make(map[string]bool)
	var suggestions []string
	for _, endpoint := range endpoints {
		endpointLower := strings.ToLower(endpoint)
		for _, seg := range segments {
			if len(seg) < 3 {
				continue
			}
			if strings.Contains(endpointLower, seg) || strings.Contains(seg, strings.TrimPrefix(endpointLower, "/")) {
				if !seen[endpoint] {
					seen[endpoint] = true
					suggestions = append(suggestions, endpoint)
				}
				break
			}
		}
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions, endpoints...)
	}
	sort.Strings(suggestions)
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions
}
