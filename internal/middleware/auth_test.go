package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

const testSecret = "unit-test-secret"

func TestEditorTokenRoundTrip(t *testing.T) {
	token, err := GenerateEditorToken("doc-123", testSecret)
	if err != nil {
		t.Fatalf("GenerateEditorToken: %v", err)
	}

	claims, err := ParseEditorToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseEditorToken: %v", err)
	}
	if claims.DocumentID != "doc-123" {
		t.Errorf("DocumentID = %q, want doc-123", claims.DocumentID)
	}
	if claims.Subject != "doc-123" {
		t.Errorf("Subject = %q, want doc-123", claims.Subject)
	}
}

func TestParseEditorTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateEditorToken("doc-123", testSecret)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseEditorToken(token, "a-different-secret"); err == nil {
		t.Error("token signed with another secret was accepted")
	}
}

func TestParseEditorTokenRejectsGarbage(t *testing.T) {
	if _, err := ParseEditorToken("not.a.token", testSecret); err == nil {
		t.Error("garbage token was accepted")
	}
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/documents/:id/annotations", EditorAuth(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"document_id": GetDocumentID(c)})
	})
	return r
}

func TestEditorAuthMiddleware(t *testing.T) {
	r := authRouter()

	token, err := GenerateEditorToken("doc-1", testSecret)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"matching token", "/documents/doc-1/annotations", "Bearer " + token, http.StatusOK},
		{"missing header", "/documents/doc-1/annotations", "", http.StatusUnauthorized},
		{"not a bearer scheme", "/documents/doc-1/annotations", "Basic abc", http.StatusUnauthorized},
		{"malformed token", "/documents/doc-1/annotations", "Bearer junk", http.StatusUnauthorized},
		{"token for another document", "/documents/doc-2/annotations", "Bearer " + token, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestGetDocumentIDUnauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := GetDocumentID(c); got != "" {
		t.Errorf("GetDocumentID = %q, want empty", got)
	}
}
