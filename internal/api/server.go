package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"contact-form-guard/internal/config"
	"contact-form-guard/internal/feedback"
	"contact-form-guard/internal/security"
)

const (
	requestIDHeader = "X-Request-Id"
	maxFormMemory   = 1 << 20
)

// Submitter 表单提交编排
type Submitter interface {
	Submit(ctx context.Context, attempt feedback.Attempt, sink feedback.StatusSink) feedback.Outcome
}

// Server HTTP 服务封装
type Server struct {
	cfg       config.Config
	submitter Submitter
	limiter   security.RateLimiter
	engine    *gin.Engine
}

func NewServer(cfg config.Config, submitter Submitter, limiter security.RateLimiter) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		cfg:       cfg,
		submitter: submitter,
		limiter:   limiter,
		engine:    gin.New(),
	}

	// 默认不信任任何代理，ClientIP 取连接地址，避免伪造 X-Forwarded-For 绕过限流
	if err := server.engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Printf("TRUSTED_PROXIES 无效，改为不信任任何代理: %v", err)
		_ = server.engine.SetTrustedProxies(nil)
	}

	server.engine.Use(gin.Recovery(), requestID(), server.cors())
	server.registerRoutes()

	return server
}

func (s *Server) Run() error {
	return s.engine.Run(":" + s.cfg.Port)
}

// Handler 暴露 gin 引擎，便于测试与嵌入
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/v1/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)})
	})

	s.engine.POST("/v1/contact", s.handleContact)
}

func (s *Server) handleContact(c *gin.Context) {
	if !s.validateOrigin(c) {
		writeError(c, http.StatusForbidden, "Origin 不允许")
		return
	}

	clientIP := c.ClientIP()
	if !s.allowRate(c.Request.Context(), "submit", clientIP) {
		writeError(c, http.StatusTooManyRequests, "提交过于频繁")
		return
	}

	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(c, http.StatusBadRequest, "表单格式无效")
		return
	}

	outcome := s.submitter.Submit(c.Request.Context(), feedback.Attempt{
		FormID: clientIP,
		Values: c.Request.PostForm,
	}, nil)

	c.JSON(statusCode(outcome.Result), newContactResponse(outcome, c.GetString(requestIDHeader)))
}

// validateOrigin 未配置 ALLOWED_ORIGIN 时放行；无 Origin 头（非浏览器客户端）也放行
func (s *Server) validateOrigin(c *gin.Context) bool {
	allowed := strings.TrimSpace(s.cfg.AllowedOrigin)
	if allowed == "" {
		return true
	}
	origin := strings.TrimSpace(c.GetHeader("Origin"))
	return origin == "" || strings.EqualFold(origin, allowed)
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AllowedOrigin != "" {
			c.Header("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
			c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Accept, Content-Type")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) allowRate(ctx context.Context, action, clientIP string) bool {
	if s.limiter == nil {
		return true
	}
	key := fmt.Sprintf("%s:%s", action, clientIP)
	return s.limiter.Allow(ctx, key, s.cfg.SubmitLimitPerWindow, s.cfg.RateWindow)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func writeError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success":    false,
		"kind":       string(feedback.KindDanger),
		"error":      message,
		"request_id": c.GetString(requestIDHeader),
	})
}
