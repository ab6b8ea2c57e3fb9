// Package httpapi はオペレーションを HTTP (gin) で公開する。
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/0x6d61/secops-mcp/internal/ops"
)

// maxBodyBytes は POST /tools/:name のリクエストボディ上限。
const maxBodyBytes = 1 << 20

// NewRouter は reg を公開する gin.Engine を返す。
//
//	GET  /healthz
//	GET  /tools
//	POST /tools/:name   （ボディ = 引数の JSON オブジェクト）
func NewRouter(reg *ops.Registry, log logrus.FieldLogger) *gin.Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))

	h := &handler{reg: reg}
	engine.GET("/healthz", h.health)
	engine.GET("/tools", h.list)
	engine.POST("/tools/:name", h.call)
	return engine
}

type handler struct {
	reg *ops.Registry
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": h.reg.List()})
}

// call はオペレーションを実行する。失敗 Envelope も 200 で返し、
// HTTP のエラーステータスは未知のオペレーションと読めないボディだけに使う。
func (h *handler) call(c *gin.Context) {
	name := c.Param("name")
	if _, ok := h.reg.Get(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown operation: " + name})
		return
	}

	args := map[string]any{}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return
	}
	if len(body) > maxBodyBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object: " + err.Error()})
			return
		}
	}

	resp, err := h.reg.Call(c.Request.Context(), name, args)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ops.ErrUnknownOperation) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// requestLogger はリクエストごとに1行 logrus に書く。
func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Info("http request")
	}
}

// Serve は addr で待ち受け、ctx がキャンセルされたら graceful に停止する。
func Serve(ctx context.Context, addr string, handler http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
