package routes

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ceprud-chatbot/internal/agent"
	"ceprud-chatbot/internal/analytics"
	"ceprud-chatbot/internal/config"
	"ceprud-chatbot/internal/llm"
	"ceprud-chatbot/internal/logger"
	"ceprud-chatbot/internal/ratelimit"
	"ceprud-chatbot/internal/session"
	"ceprud-chatbot/models"
	"ceprud-chatbot/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultSubject = "ingenieria_de_servidores"
	anonymousEmail = "anonimo@ugr.es"
	botPrefix      = "🤖: "
)

// ChatAgent is the conversational surface the chat routes drive.
type ChatAgent interface {
	Ask(ctx context.Context, threadID, subject, question string) (*agent.Reply, error)
	Clear(ctx context.Context, threadID string) error
}

// AnalyticsSink receives best-effort analytics events.
type AnalyticsSink interface {
	SessionEvent(ctx context.Context, event models.SessionEventLog)
	UserMessage(ctx context.Context, event models.UserMessageLog)
	LearningEvent(ctx context.Context, event models.LearningEventLog)
	ConversationMessage(ctx context.Context, event models.ConversationMessageLog)
}

// ChatDeps bundles what the chat endpoints need.
type ChatDeps struct {
	Limiter   *ratelimit.Limiter
	Tracker   *session.Tracker
	Agent     ChatAgent
	LoraAgent ChatAgent // nil when no fine-tuned endpoint is configured
	BaseLLM   llm.Generator
	Logs      AnalyticsSink
}

func SetupChatRoutes(router *gin.Engine, cfg *config.Config, deps *ChatDeps) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		})
	})

	router.POST("/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		req.Message = strings.TrimSpace(req.Message)
		if req.Message == "" {
			utils.RespondWithBadRequest(c, "message must not be empty", nil)
			return
		}

		email := req.Email
		if email == "" {
			email = anonymousEmail
		}
		subject := req.Subject
		if subject == "" {
			subject = defaultSubject
		}
		mode := req.Mode
		if mode == "" {
			mode = "rag"
		}
		if mode != "rag" && mode != "base" && mode != "rag_lora" {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_mode",
				"mode must be one of rag, base, rag_lora", nil)
			return
		}

		userKey := utils.AnonymizeUserID(email)
		if !deps.Limiter.Allow(userKey) {
			info := deps.Limiter.GetInfo(userKey)
			retry := deps.Limiter.RetryAfter(userKey)
			setRateLimitHeaders(c, deps.Limiter.Limit(), info)
			c.Header("Retry-After", fmt.Sprintf("%d", retry))
			c.JSON(http.StatusTooManyRequests, models.RateLimitExceededResponse{
				Error:             "Rate limit exceeded. Please wait before sending more messages.",
				RequestsMade:      info.RequestsMade,
				RequestsRemaining: info.RequestsRemaining,
				ResetTime:         info.ResetTime,
				RetryAfter:        retry,
			})
			return
		}

		sessionID, created := deps.Tracker.GetOrCreate(email, subject)
		if created {
			deps.Logs.SessionEvent(c.Request.Context(), models.SessionEventLog{
				SessionID: sessionID,
				UserID:    userKey,
				Subject:   subject,
				EventType: "session_started",
				Timestamp: time.Now().UTC(),
			})
		}
		deps.Tracker.Touch(email, subject)

		answer, sources, modelUsed, err := deps.answer(c.Request.Context(), mode, email, subject, req.Message, cfg)
		if err != nil {
			logger.Error("failed to generate answer", "subject", subject, "mode", mode, "error", err)
			utils.RespondWithError(c, http.StatusInternalServerError, "generation_failed",
				"😔 No he podido responder ahora mismo, inténtalo de nuevo en un momento.", nil)
			return
		}

		queryType := analytics.ClassifyQueryType(req.Message)
		complexity := analytics.EstimateComplexity(req.Message)
		sources = analytics.DedupeSources(sources)
		response := botPrefix + answer

		go logInteraction(deps.Logs, logEntry{
			sessionID:  sessionID,
			email:      email,
			userKey:    userKey,
			subject:    subject,
			message:    req.Message,
			response:   response,
			queryType:  queryType,
			complexity: complexity,
			sources:    sources,
			modelUsed:  modelUsed,
		})

		setRateLimitHeaders(c, deps.Limiter.Limit(), deps.Limiter.GetInfo(userKey))
		c.JSON(http.StatusOK, models.ChatResponse{
			Response:  response,
			Sources:   sources,
			ModelUsed: modelUsed,
			SessionID: sessionID,
			QueryType: queryType,
		})
	})

	router.POST("/clear-session", func(c *gin.Context) {
		var req models.ClearSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		threadID := agent.ThreadID(req.Email, req.Subject)
		if err := deps.Agent.Clear(c.Request.Context(), threadID); err != nil {
			logger.Error("failed to clear conversation", "thread_id", threadID, "error", err)
			utils.RespondWithInternalError(c, "Failed to clear the conversation", nil)
			return
		}

		sessionID := deps.Tracker.End(req.Email, req.Subject)
		if sessionID != "" {
			deps.Logs.SessionEvent(c.Request.Context(), models.SessionEventLog{
				SessionID: sessionID,
				UserID:    utils.AnonymizeUserID(req.Email),
				Subject:   req.Subject,
				EventType: "session_cleared",
				Timestamp: time.Now().UTC(),
			})
		}
		c.JSON(http.StatusOK, models.ClearSessionResponse{
			Success:   true,
			Message:   "Conversation cleared",
			SessionID: sessionID,
		})
	})

	rateLimitStatus := func(c *gin.Context, email string) {
		userKey := utils.AnonymizeUserID(email)
		info := deps.Limiter.GetInfo(userKey)
		c.JSON(http.StatusOK, models.RateLimitStatus{
			RequestsMade:      info.RequestsMade,
			RequestsRemaining: info.RequestsRemaining,
			ResetTime:         info.ResetTime,
			UserIdentifier:    utils.PartialUserID(userKey),
		})
	}

	router.GET("/rate-limit/:email", func(c *gin.Context) {
		rateLimitStatus(c, c.Param("email"))
	})

	router.GET("/rate-limit-info", func(c *gin.Context) {
		email := c.Query("email")
		if email == "" {
			email = anonymousEmail
		}
		rateLimitStatus(c, email)
	})

	router.GET("/sessions/active", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"active_sessions": deps.Tracker.ActiveCount()})
	})
}

// answer routes the question through the requested mode. rag_lora
// degrades to the base pipeline when no fine-tuned endpoint is up.
func (deps *ChatDeps) answer(ctx context.Context, mode, email, subject, question string, cfg *config.Config) (string, []string, string, error) {
	threadID := agent.ThreadID(email, subject)

	switch mode {
	case "base":
		msg, err := deps.BaseLLM.Generate(ctx, []llm.Message{
			{Role: "system", Content: "Eres un asistente docente universitario. Responde en español de forma clara y breve."},
			{Role: "user", Content: question},
		}, nil)
		if err != nil {
			return "", nil, "", err
		}
		return msg.Content, nil, cfg.GenerationModel, nil

	case "rag_lora":
		if deps.LoraAgent != nil {
			reply, err := deps.LoraAgent.Ask(ctx, threadID, subject, question)
			if err != nil {
				return "", nil, "", err
			}
			return reply.Answer, reply.Sources, cfg.LoraGenerationModel, nil
		}
		logger.Warn("rag_lora requested but no fine-tuned endpoint configured, using base model")
		fallthrough

	default:
		reply, err := deps.Agent.Ask(ctx, threadID, subject, question)
		if err != nil {
			return "", nil, "", err
		}
		return reply.Answer, reply.Sources, cfg.GenerationModel, nil
	}
}

type logEntry struct {
	sessionID  string
	email      string
	userKey    string
	subject    string
	message    string
	response   string
	queryType  string
	complexity string
	sources    []string
	modelUsed  string
}

// logInteraction ships all analytics for one exchange. It runs off the
// request goroutine with its own deadline.
func logInteraction(sink AnalyticsSink, entry logEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := time.Now().UTC()

	sink.UserMessage(ctx, models.UserMessageLog{
		SessionID:      entry.sessionID,
		UserIDPartial:  utils.PartialUserID(entry.userKey),
		Subject:        entry.subject,
		MessageLength:  len(entry.message),
		QueryType:      entry.queryType,
		Complexity:     entry.complexity,
		ResponseLength: len(entry.response),
		SourceCount:    len(entry.sources),
		LLMModelUsed:   entry.modelUsed,
		Timestamp:      now,
	})

	sink.ConversationMessage(ctx, models.ConversationMessageLog{
		SessionID:      entry.sessionID,
		UserID:         entry.userKey,
		Subject:        entry.subject,
		MessageType:    "user",
		MessageContent: entry.message,
		Timestamp:      now,
	})
	sink.ConversationMessage(ctx, models.ConversationMessageLog{
		SessionID:      entry.sessionID,
		UserID:         entry.userKey,
		Subject:        entry.subject,
		MessageType:    "bot",
		MessageContent: entry.response,
		Timestamp:      now,
	})

	for _, event := range analytics.LearningEvents(entry.sessionID, entry.subject, entry.queryType, entry.complexity, len(entry.sources), now) {
		sink.LearningEvent(ctx, event)
	}
}

func setRateLimitHeaders(c *gin.Context, limit int, info ratelimit.Info) {
	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", info.RequestsRemaining))
	c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime))
}
