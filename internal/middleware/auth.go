// auth.go provides editor-token authentication for document sessions.
//
// Creating a document returns a signed bearer token scoped to that one
// session. Mutating endpoints require it; read endpoints stay open so a
// shared link works without the token. There are no user accounts — the
// token is a capability, not an identity.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/michitomo/douroannotate/internal/models"
)

const documentContextKey = "document_id"

// EditorClaims extends standard JWT claims with the session scope.
type EditorClaims struct {
	DocumentID string `json:"document_id"`
	jwt.RegisteredClaims
}

// GenerateEditorToken creates the bearer token for one document session.
func GenerateEditorToken(documentID, secret string) (string, error) {
	claims := EditorClaims{
		DocumentID: documentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(72 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   documentID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseEditorToken validates and parses a token string.
func ParseEditorToken(tokenString, secret string) (*EditorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &EditorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*EditorClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// EditorAuth returns middleware that requires a Bearer token scoped to the
// document named by the :id route parameter.
func EditorAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Missing or invalid Authorization header. Use 'Bearer <token>'",
				Code:    http.StatusUnauthorized,
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := ParseEditorToken(tokenString, secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
				Code:    http.StatusUnauthorized,
			})
			c.Abort()
			return
		}

		if id := c.Param("id"); id != "" && id != claims.DocumentID {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "forbidden",
				Message: "Token is not valid for this document",
				Code:    http.StatusForbidden,
			})
			c.Abort()
			return
		}

		c.Set(documentContextKey, claims.DocumentID)
		c.Next()
	}
}

// GetDocumentID retrieves the authenticated document scope, "" when the
// request was unauthenticated.
func GetDocumentID(c *gin.Context) string {
	val, exists := c.Get(documentContextKey)
	if !exists {
		return ""
	}
	id, ok := val.(string)
	if !ok {
		return ""
	}
	return id
}
