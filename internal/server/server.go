package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shlokparab/builder-navigator/internal/advisor"
	"github.com/shlokparab/builder-navigator/internal/logger"
	"github.com/shlokparab/builder-navigator/internal/pipeline"
)

// 日志实例
var log = logger.New("Server")

// Transcriber 音频转写服务
// 验证音频想法时先转写为文本，再走常规验证流程
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// Server HTTP 服务，聚合会话验证与分析流水线
type Server struct {
	manager     *advisor.Manager
	pipeline    *pipeline.Pipeline
	transcriber Transcriber // 可为 nil，此时音频端点返回 501
}

// New 创建 HTTP 服务
func New(manager *advisor.Manager, p *pipeline.Pipeline, transcriber Transcriber) *Server {
	return &Server{manager: manager, pipeline: p, transcriber: transcriber}
}

// Handler 构建路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/chat/validate_idea", s.handleValidateIdea)
	mux.HandleFunc("/chat/validate_audio", s.handleValidateAudio)
	mux.HandleFunc("/chat/market_analysis", s.handleMarketAnalysis)
	mux.HandleFunc("/chat/generate_mvp", s.handleGenerateMVP)
	return mux
}

// ListenAndServe 启动 HTTP 服务
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("listening on %s", addr)
	return srv.ListenAndServe()
}

// handleRoot 健康检查
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Builder Navigator backend is running"})
}

// validateRequest 验证请求体（POST JSON）
type validateRequest struct {
	Idea         string `json:"idea"`
	AudioURL     string `json:"audio_url"`
	SessionToken string `json:"session_token"`
}

// sessionRequest 只携带会话 token 的请求体
type sessionRequest struct {
	SessionToken string `json:"session_token"`
}

// handleValidateIdea 想法验证端点
// GET 用查询参数（兼容最初版本），POST 用 JSON 体；token 缺失时签发新 token
func (s *Server) handleValidateIdea(w http.ResponseWriter, r *http.Request) {
	var idea, token string

	switch r.Method {
	case http.MethodGet:
		idea = r.URL.Query().Get("idea")
		token = r.URL.Query().Get("session_token")
	case http.MethodPost:
		var req validateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		idea = req.Idea
		token = req.SessionToken
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.validate(w, r, idea, token)
}

// handleValidateAudio 音频想法验证端点：先转写再验证
func (s *Server) handleValidateAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.transcriber == nil {
		writeError(w, http.StatusNotImplemented, "audio transcription is not configured")
		return
	}

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.AudioURL) == "" {
		writeError(w, http.StatusBadRequest, "audio_url is required")
		return
	}

	idea, err := s.transcriber.Transcribe(r.Context(), req.AudioURL)
	if err != nil {
		log.Error("transcription error: %v", err)
		writeError(w, http.StatusInternalServerError, "audio transcription failed")
		return
	}

	s.validate(w, r, idea, req.SessionToken)
}

// validate 公共验证逻辑：签发 token（按需）、提交、映射错误
func (s *Server) validate(w http.ResponseWriter, r *http.Request, idea, token string) {
	if strings.TrimSpace(idea) == "" {
		writeError(w, http.StatusBadRequest, "idea is required")
		return
	}
	if token == "" {
		token = s.manager.IssueToken()
	}

	result, err := s.manager.Submit(r.Context(), token, idea)
	if err != nil {
		var parseErr *advisor.ParseError
		switch {
		case errors.As(err, &parseErr):
			writeError(w, http.StatusUnprocessableEntity, parseErr.Error())
		case errors.Is(err, advisor.ErrEmptyResponse):
			writeError(w, http.StatusInternalServerError, "Sorry, I could not generate a response. Please try again.")
		default:
			log.Error("validate error: %v", err)
			writeError(w, http.StatusInternalServerError, "idea validation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_token": token,
		"status":        result.Status,
		"response":      result.Payload,
	})
}

// handleMarketAnalysis 市场分析端点
func (s *Server) handleMarketAnalysis(w http.ResponseWriter, r *http.Request) {
	token, ok := s.readToken(w, r)
	if !ok {
		return
	}

	analysis, err := s.pipeline.MarketAnalysis(r.Context(), token)
	if err != nil {
		s.writePipelineError(w, "market analysis", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_token": token,
		"analysis":      analysis.BusinessAnalysis,
		"queries":       analysis.Queries,
		"competitors":   analysis.Competitors,
		"report":        analysis.Report,
	})
}

// handleGenerateMVP MVP 生成端点
func (s *Server) handleGenerateMVP(w http.ResponseWriter, r *http.Request) {
	token, ok := s.readToken(w, r)
	if !ok {
		return
	}

	plan, err := s.pipeline.GenerateMVP(r.Context(), token)
	if err != nil {
		s.writePipelineError(w, "mvp generation", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_token": token,
		"plan":          plan,
	})
}

// readToken 从 POST JSON 体读取会话 token
func (s *Server) readToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return "", false
	}
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	return req.SessionToken, true
}

// writePipelineError 流水线错误到 HTTP 状态的映射
func (s *Server) writePipelineError(w http.ResponseWriter, what string, err error) {
	var decodeErr *pipeline.StructuredDecodeError
	switch {
	case errors.Is(err, pipeline.ErrNoSession):
		writeError(w, http.StatusBadRequest, "no validated session found, validate an idea first")
	case errors.As(err, &decodeErr):
		writeError(w, http.StatusUnprocessableEntity, decodeErr.Error())
	default:
		log.Error("%s error: %v", what, err)
		writeError(w, http.StatusInternalServerError, what+" failed")
	}
}

// writeJSON 写 JSON 响应
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("write response error: %v", err)
	}
}

// writeError 错误响应体采用 {"detail": ...} 形式
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
