package routes

import (
	"net/http"
	"time"

	"ceprud-chatbot/internal/config"
	"ceprud-chatbot/internal/logger"
	"ceprud-chatbot/models"
	"ceprud-chatbot/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetupLogRoutes registers the logging service's ingest and query
// surface. Ingest endpoints accept one event per call and stamp the
// server time when the client omits it.
func SetupLogRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client) {
	db := mongoClient.Database(cfg.DBName)
	sessionEvents := db.Collection("session_events")
	interactions := db.Collection("interactions")
	learningEvents := db.Collection("learning_events")
	conversations := db.Collection("conversation_messages")

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		})
	})

	logs := router.Group("/api/v1/logs")

	logs.POST("/session-event", func(c *gin.Context) {
		var event models.SessionEventLog
		if err := c.ShouldBindJSON(&event); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}
		insertEvent(c, sessionEvents, event, "session event")
	})

	logs.POST("/user-message", func(c *gin.Context) {
		var event models.UserMessageLog
		if err := c.ShouldBindJSON(&event); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}
		insertEvent(c, interactions, event, "user message")
	})

	logs.POST("/learning-event", func(c *gin.Context) {
		var event models.LearningEventLog
		if err := c.ShouldBindJSON(&event); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}
		insertEvent(c, learningEvents, event, "learning event")
	})

	logs.POST("/conversation-message", func(c *gin.Context) {
		var event models.ConversationMessageLog
		if err := c.ShouldBindJSON(&event); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}
		insertEvent(c, conversations, event, "conversation message")
	})

	// Conversation reads share one wildcard tree: /conversations/<id>
	// for a session, /conversations/user/<id> and
	// /conversations/subject/<name> for the scoped views.
	router.GET("/conversations/:scope", func(c *gin.Context) {
		queryConversations(c, conversations, bson.M{"session_id": c.Param("scope")}, "session_id", c.Param("scope"))
	})
	router.GET("/conversations/:scope/:value", func(c *gin.Context) {
		value := c.Param("value")
		switch c.Param("scope") {
		case "user":
			queryConversations(c, conversations, bson.M{"user_id": value}, "user_id", value)
		case "subject":
			queryConversations(c, conversations, bson.M{"subject": value}, "subject", value)
		default:
			utils.RespondWithNotFound(c, "Unknown conversation scope")
		}
	})

	router.GET("/analytics/sessions", func(c *gin.Context) {
		filter, err := rangeFilter(c)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid date range", gin.H{"error": err.Error()})
			return
		}
		ctx := c.Request.Context()

		total, err := sessionEvents.CountDocuments(ctx, filter)
		if err != nil {
			logger.Error("analytics query failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to compute analytics", nil)
			return
		}
		byEventType, err := groupCounts(c, sessionEvents, filter, "$event_type")
		if err != nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"total_events":  total,
			"by_event_type": byEventType,
		})
	})

	router.GET("/analytics/interactions", func(c *gin.Context) {
		filter, err := rangeFilter(c)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid date range", gin.H{"error": err.Error()})
			return
		}
		ctx := c.Request.Context()

		total, err := interactions.CountDocuments(ctx, filter)
		if err != nil {
			logger.Error("analytics query failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to compute analytics", nil)
			return
		}
		byQueryType, err := groupCounts(c, interactions, filter, "$query_type")
		if err != nil {
			return
		}
		byComplexity, err := groupCounts(c, interactions, filter, "$complexity")
		if err != nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"total_interactions": total,
			"by_query_type":      byQueryType,
			"by_complexity":      byComplexity,
		})
	})
}

// rangeFilter builds a mongo filter from the optional subject, from
// and to query parameters (RFC3339 timestamps).
func rangeFilter(c *gin.Context) (bson.M, error) {
	filter := bson.M{}
	if subject := c.Query("subject"); subject != "" {
		filter["subject"] = subject
	}
	span := bson.M{}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, err
		}
		span["$gte"] = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, err
		}
		span["$lte"] = t
	}
	if len(span) > 0 {
		filter["timestamp"] = span
	}
	return filter, nil
}

func queryConversations(c *gin.Context, conversations *mongo.Collection, filter bson.M, scopeKey, scopeValue string) {
	rangePart, err := rangeFilter(c)
	if err != nil {
		utils.RespondWithBadRequest(c, "Invalid date range", gin.H{"error": err.Error()})
		return
	}
	for k, v := range rangePart {
		filter[k] = v
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := conversations.Find(c.Request.Context(), filter, opts)
	if err != nil {
		logger.Error("conversation query failed", "error", err)
		utils.RespondWithInternalError(c, "Failed to fetch conversation", nil)
		return
	}
	defer cursor.Close(c.Request.Context())

	messages := []models.ConversationMessageLog{}
	if err := cursor.All(c.Request.Context(), &messages); err != nil {
		logger.Error("conversation decode failed", "error", err)
		utils.RespondWithInternalError(c, "Failed to fetch conversation", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		scopeKey:   scopeValue,
		"messages": messages,
		"count":    len(messages),
	})
}

// groupCounts aggregates document counts grouped by the given field
// expression. On failure it writes the error response and reports it.
func groupCounts(c *gin.Context, collection *mongo.Collection, filter bson.M, field string) (map[string]int64, error) {
	ctx := c.Request.Context()
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		logger.Error("analytics aggregation failed", "error", err)
		utils.RespondWithInternalError(c, "Failed to compute analytics", nil)
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		logger.Error("analytics decode failed", "error", err)
		utils.RespondWithInternalError(c, "Failed to compute analytics", nil)
		return nil, err
	}
	counts := map[string]int64{}
	for _, row := range rows {
		counts[row.ID] = row.Count
	}
	return counts, nil
}

func insertEvent(c *gin.Context, collection *mongo.Collection, event interface{}, kind string) {
	if _, err := collection.InsertOne(c.Request.Context(), event); err != nil {
		logger.Error("failed to store "+kind, "error", err)
		utils.RespondWithInternalError(c, "Failed to store "+kind, nil)
		return
	}
	c.JSON(http.StatusOK, models.LogResponse{
		Success:   true,
		Message:   kind + " logged",
		Timestamp: time.Now().UTC(),
	})
}
