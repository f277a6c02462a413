package routes

import (
	"errors"
	"net/http"

	"ceprud-chatbot/internal/logger"
	"ceprud-chatbot/models"
	"ceprud-chatbot/services"
	"ceprud-chatbot/utils"

	"github.com/gin-gonic/gin"
)

// SetupUserProxyRoutes exposes the user store through the chatbot
// service, so the frontend talks to a single origin. Auth is handled
// by the LMS launch; login here only resolves the profile.
func SetupUserProxyRoutes(router *gin.Engine, users *services.UserClient) {
	router.POST("/user/create", func(c *gin.Context) {
		var req models.UserCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		resp, err := users.Create(c.Request.Context(), req)
		if errors.Is(err, services.ErrUserExists) {
			c.JSON(http.StatusConflict, models.UserCreateResponse{Success: false, Message: "User already exists"})
			return
		}
		if err != nil {
			respondUserServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, resp)
	})

	router.POST("/user/login", func(c *gin.Context) {
		var req models.UserLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		resp, err := users.Login(c.Request.Context(), req.Email)
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, models.UserLoginResponse{Success: false, Message: "User not found"})
			return
		}
		if err != nil {
			respondUserServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	router.POST("/user/logout", func(c *gin.Context) {
		// No server-side credential state to revoke.
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
	})

	router.GET("/user/profile", func(c *gin.Context) {
		email := c.Query("email")
		if email == "" {
			utils.RespondWithBadRequest(c, "email query parameter is required", nil)
			return
		}
		resp, err := users.Profile(c.Request.Context(), email)
		if errors.Is(err, services.ErrUserNotFound) {
			utils.RespondWithNotFound(c, "User not found")
			return
		}
		if err != nil {
			respondUserServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	router.PUT("/user/profile", func(c *gin.Context) {
		email := c.Query("email")
		if email == "" {
			utils.RespondWithBadRequest(c, "email query parameter is required", nil)
			return
		}
		var req models.UserProfileUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		err := users.UpdateProfile(c.Request.Context(), email, req)
		if errors.Is(err, services.ErrUserNotFound) {
			utils.RespondWithNotFound(c, "User not found")
			return
		}
		if err != nil {
			respondUserServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	router.GET("/user/subjects", func(c *gin.Context) {
		email := c.Query("email")
		if email == "" {
			utils.RespondWithBadRequest(c, "email query parameter is required", nil)
			return
		}
		resp, err := users.Subjects(c.Request.Context(), email)
		if errors.Is(err, services.ErrUserNotFound) {
			utils.RespondWithNotFound(c, "User not found")
			return
		}
		if err != nil {
			respondUserServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	router.POST("/user/subjects", func(c *gin.Context) {
		var req models.AddSubjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		err := users.AddSubject(c.Request.Context(), req.Email, req.SubjectID)
		if errors.Is(err, services.ErrUserNotFound) {
			utils.RespondWithNotFound(c, "User not found")
			return
		}
		if err != nil {
			respondUserServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.UserSubjectsResponse{Success: true, Message: "Subject added"})
	})

	router.DELETE("/user/subjects/:id", func(c *gin.Context) {
		email := c.Query("email")
		if email == "" {
			utils.RespondWithBadRequest(c, "email query parameter is required", nil)
			return
		}
		err := users.RemoveSubject(c.Request.Context(), email, c.Param("id"))
		if errors.Is(err, services.ErrUserNotFound) {
			utils.RespondWithNotFound(c, "User or subject not found")
			return
		}
		if err != nil {
			respondUserServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.UserSubjectsResponse{Success: true, Message: "Subject removed"})
	})
}

func respondUserServiceError(c *gin.Context, err error) {
	logger.Error("user service request failed", "error", err)
	utils.RespondWithError(c, http.StatusBadGateway, "user_service_unavailable",
		"User service is unavailable", nil)
}
