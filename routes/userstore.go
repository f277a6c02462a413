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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupUserStoreRoutes registers the user store's CRUD surface.
func SetupUserStoreRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client) {
	users := mongoClient.Database(cfg.DBName).Collection("users")

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		})
	})

	router.POST("/users", func(c *gin.Context) {
		var req models.UserCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		role := req.Role
		if role == "" {
			role = "student"
		}

		now := time.Now().UTC()
		user := models.User{
			Email:     req.Email,
			Name:      req.Name,
			Role:      role,
			Active:    true,
			Subjects:  []string{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		res, err := users.InsertOne(c.Request.Context(), user)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				c.JSON(http.StatusConflict, models.UserCreateResponse{
					Success: false,
					Message: "User already exists",
				})
				return
			}
			logger.Error("failed to create user", "error", err)
			utils.RespondWithInternalError(c, "Failed to create user", nil)
			return
		}

		userID := ""
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			userID = oid.Hex()
		}
		c.JSON(http.StatusCreated, models.UserCreateResponse{
			Success: true,
			UserID:  userID,
			Message: "User created",
		})
	})

	router.POST("/users/login", func(c *gin.Context) {
		var req models.UserLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		var user models.User
		err := users.FindOne(c.Request.Context(), bson.M{"email": req.Email, "active": true}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, models.UserLoginResponse{
				Success: false,
				Message: "User not found",
			})
			return
		}
		if err != nil {
			logger.Error("login lookup failed", "error", err)
			utils.RespondWithInternalError(c, "Login failed", nil)
			return
		}
		c.JSON(http.StatusOK, models.UserLoginResponse{
			Success: true,
			UserID:  user.ID.Hex(),
			Name:    user.Name,
			Role:    user.Role,
			Message: "Login successful",
		})
	})

	router.GET("/users/:email", func(c *gin.Context) {
		var user models.User
		err := users.FindOne(c.Request.Context(), bson.M{"email": c.Param("email")}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "User not found")
			return
		}
		if err != nil {
			logger.Error("user lookup failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to fetch user", nil)
			return
		}
		c.JSON(http.StatusOK, models.UserProfileResponse{
			UserID:    user.ID.Hex(),
			Email:     user.Email,
			Name:      user.Name,
			Role:      user.Role,
			Active:    user.Active,
			CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
			Subjects:  user.Subjects,
		})
	})

	router.PUT("/users/:email", func(c *gin.Context) {
		var req models.UserProfileUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		set := bson.M{"updated_at": time.Now().UTC()}
		if req.Name != "" {
			set["name"] = req.Name
		}
		if req.Role != "" {
			set["role"] = req.Role
		}
		res, err := users.UpdateOne(c.Request.Context(),
			bson.M{"email": c.Param("email")}, bson.M{"$set": set})
		if err != nil {
			logger.Error("user update failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to update user", nil)
			return
		}
		if res.MatchedCount == 0 {
			utils.RespondWithNotFound(c, "User not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	router.POST("/users/subjects", func(c *gin.Context) {
		var req models.AddSubjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		res, err := users.UpdateOne(c.Request.Context(),
			bson.M{"email": req.Email},
			bson.M{
				"$addToSet": bson.M{"subjects": req.SubjectID},
				"$set":      bson.M{"updated_at": time.Now().UTC()},
			})
		if err != nil {
			logger.Error("failed to add subject", "error", err)
			utils.RespondWithInternalError(c, "Failed to add subject", nil)
			return
		}
		if res.MatchedCount == 0 {
			utils.RespondWithNotFound(c, "User not found")
			return
		}
		c.JSON(http.StatusOK, models.UserSubjectsResponse{
			Success: true,
			Message: "Subject added",
		})
	})

	router.DELETE("/users/:email/subjects/:subject", func(c *gin.Context) {
		res, err := users.UpdateOne(c.Request.Context(),
			bson.M{"email": c.Param("email")},
			bson.M{
				"$pull": bson.M{"subjects": c.Param("subject")},
				"$set":  bson.M{"updated_at": time.Now().UTC()},
			})
		if err != nil {
			logger.Error("failed to remove subject", "error", err)
			utils.RespondWithInternalError(c, "Failed to remove subject", nil)
			return
		}
		if res.MatchedCount == 0 {
			utils.RespondWithNotFound(c, "User not found")
			return
		}
		c.JSON(http.StatusOK, models.UserSubjectsResponse{
			Success: true,
			Message: "Subject removed",
		})
	})

	router.GET("/users", func(c *gin.Context) {
		cursor, err := users.Find(c.Request.Context(), bson.M{})
		if err != nil {
			logger.Error("user listing failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to list users", nil)
			return
		}
		defer cursor.Close(c.Request.Context())

		list := []models.UserProfileResponse{}
		for cursor.Next(c.Request.Context()) {
			var user models.User
			if err := cursor.Decode(&user); err != nil {
				logger.Error("user decode failed", "error", err)
				continue
			}
			list = append(list, models.UserProfileResponse{
				UserID:    user.ID.Hex(),
				Email:     user.Email,
				Name:      user.Name,
				Role:      user.Role,
				Active:    user.Active,
				CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
				Subjects:  user.Subjects,
			})
		}
		c.JSON(http.StatusOK, gin.H{"users": list, "count": len(list)})
	})

	router.DELETE("/users/:email", func(c *gin.Context) {
		res, err := users.DeleteOne(c.Request.Context(), bson.M{"email": c.Param("email")})
		if err != nil {
			logger.Error("user delete failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to delete user", nil)
			return
		}
		if res.DeletedCount == 0 {
			utils.RespondWithNotFound(c, "User not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	router.GET("/users/:email/subjects", func(c *gin.Context) {
		var user models.User
		err := users.FindOne(c.Request.Context(), bson.M{"email": c.Param("email")}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "User not found")
			return
		}
		if err != nil {
			logger.Error("user lookup failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to fetch user", nil)
			return
		}
		subjects := user.Subjects
		if subjects == nil {
			subjects = []string{}
		}
		c.JSON(http.StatusOK, models.UserSubjectsResponse{
			Success:  true,
			Subjects: subjects,
		})
	})
}
