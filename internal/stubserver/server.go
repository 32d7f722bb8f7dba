package stubserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumenweb/webchat-core/internal/chatapi"
	"github.com/lumenweb/webchat-core/pkg/logging"
)

// cannedReplies is the stub AI, keyed by lang.
var cannedReplies = map[string]string{
	"az": "Sualınız üçün təşəkkürlər! Sizə qısa zamanda ətraflı cavab verəcəyik.",
	"en": "Thanks for your question! Here is what I can tell you right away.",
	"ru": "Спасибо за вопрос! Вот что я могу рассказать вам сразу.",
}

// operatorAcks is sent while handoff is on: the AI acknowledges and
// stays out of the way.
var operatorAcks = map[string]string{
	"az": "Sorğunuz operatora ötürüldü, zəhmət olmasa gözləyin.",
	"en": "Your request was passed to an operator, please hold on.",
	"ru": "Ваш запрос передан оператору, пожалуйста, подождите.",
}

// Server is an in-memory implementation of the chat backend contract,
// enough to run the widget and admin console end to end in development
// and tests.
type Server struct {
	store       *memoryStore
	logger      *logging.Logger
	adminSecret string
}

// New creates a stub backend.
func New(adminSecret string, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{
		store:       newMemoryStore(),
		logger:      logger,
		adminSecret: adminSecret,
	}
}

// Router builds the chi router for the contract.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/ai/chat", s.handleChat)
	r.Get("/api/widget/messages", s.handleWidgetMessages)

	r.Group(func(admin chi.Router) {
		admin.Use(adminJWT(s.adminSecret))
		admin.Get("/api/admin/conversations", s.handleListConversations)
		admin.Get("/api/admin/conversations/{id}/messages", s.handleThread)
		admin.Post("/api/admin/conversations/{id}/reply", s.handleReply)
		admin.Patch("/api/admin/conversations/{id}/handoff", s.handleHandoff)
	})

	return r
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatapi.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "messages must not be empty", http.StatusBadRequest)
		return
	}

	conv := s.store.findOrCreate(req.SessionID, req.Lang, req.Page)
	last := req.Messages[len(req.Messages)-1]
	s.store.append(conv, "user", last.Content, "")

	if req.RequestOperator {
		s.store.setHandoff(conv, true)
	}

	replies := cannedReplies
	if conv.Handoff {
		replies = operatorAcks
	}
	text, ok := replies[req.Lang]
	if !ok {
		text = replies["en"]
	}
	s.store.append(conv, "assistant", text, "")

	s.logger.Debug("stub: chat handled",
		"session_id", req.SessionID,
		"lead_id", conv.LeadID,
		"handoff", conv.Handoff,
	)

	handoff := conv.Handoff
	writeJSON(w, chatapi.ChatResponse{
		Text:    text,
		LeadID:  conv.LeadID,
		Handoff: &handoff,
	})
}

func (s *Server) handleWidgetMessages(w http.ResponseWriter, r *http.Request) {
	leadID := r.URL.Query().Get("lead_id")
	after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)

	conv, ok := s.store.byLeadID(leadID)
	if !ok {
		writeJSON(w, map[string]any{"messages": []chatapi.WidgetMessage{}})
		return
	}

	msgs := s.store.assistantAfter(conv, after)
	out := make([]chatapi.WidgetMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chatapi.WidgetMessage{
			ID:      m.ID,
			Role:    m.Role,
			Content: m.Content,
			TS:      m.Timestamp,
			Channel: m.Channel,
		})
	}
	writeJSON(w, map[string]any{"messages": out})
}

func (s *Server) handleListConversations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"conversations": s.store.list()})
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.store.byConvID(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"messages": s.store.thread(conv)})
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.store.byConvID(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Content) == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	// An operator reply engages handoff.
	s.store.setHandoff(conv, true)
	msg := s.store.append(conv, "assistant", body.Content, "admin")

	writeJSON(w, map[string]any{"message": chatapi.AdminMessage{
		ID:        msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
		Channel:   msg.Channel,
	}})
}

func (s *Server) handleHandoff(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.store.byConvID(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	var body struct {
		Handoff *bool `json:"handoff"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Handoff == nil {
		http.Error(w, "handoff is required", http.StatusBadRequest)
		return
	}

	s.store.setHandoff(conv, *body.Handoff)

	list := s.store.list()
	for _, c := range list {
		if c.ID == conv.ID {
			writeJSON(w, map[string]any{"conversation": c})
			return
		}
	}
	http.Error(w, "conversation not found", http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
