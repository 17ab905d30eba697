// Package proxy serves /api/github-proxy, the endpoint the static board
// pages read and write the whole match document through.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/usv-planning/matchboard/internal/store"
)

const maxBody = 5 << 20

// Document is the raw collection behind the endpoint.
type Document interface {
	Raw(ctx context.Context) ([]byte, error)
	ReplaceRaw(ctx context.Context, data []byte) error
}

// Middleware adapts rs/cors to gin. Preflight requests stop here.
func Middleware(origins []string) gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	})
	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == http.MethodOptions && ctx.GetHeader("Access-Control-Request-Method") != "" {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}

func Register(r *gin.Engine, doc Document, origins []string, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	g := r.Group("/api/github-proxy", Middleware(origins))

	g.GET("", func(c *gin.Context) {
		data, err := doc.Raw(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	})

	g.PUT("", func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "read body"})
			return
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(body, &rows); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON array"})
			return
		}

		err = doc.ReplaceRaw(c.Request.Context(), body)
		switch {
		case errors.Is(err, store.ErrPartialSave):
			log.Warn("proxy save kept locally", zap.Error(err))
			c.JSON(http.StatusAccepted, gin.H{"success": true, "warning": err.Error()})
		case err != nil:
			log.Error("proxy save failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusOK, gin.H{"success": true})
		}
	})

	// Reached only when the request is not a CORS preflight.
	g.OPTIONS("", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}
