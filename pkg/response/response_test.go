package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		write    func(c *gin.Context)
		status   int
		wantBody Body
	}{
		{"ok", func(c *gin.Context) { OK(c, "x") }, http.StatusOK, Body{Success: true, Data: "x"}},
		{"created", func(c *gin.Context) { Created(c, "y") }, http.StatusCreated, Body{Success: true, Data: "y"}},
		{"accepted", func(c *gin.Context) { Accepted(c, "z") }, http.StatusAccepted, Body{Success: true, Data: "z"}},
		{"not found", func(c *gin.Context) { NotFound(c, "event not found") }, http.StatusNotFound,
			Body{Error: &APIError{Code: CodeNotFound, Message: "event not found"}}},
		{"forbidden", func(c *gin.Context) { Forbidden(c, "nope") }, http.StatusForbidden,
			Body{Error: &APIError{Code: CodeForbidden, Message: "nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.write(c)

			assert.Equal(t, tt.status, w.Code)
			var got Body
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestFailAborts(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	BadRequest(c, "bad")
	assert.True(t, c.IsAborted())
}
