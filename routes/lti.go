package routes

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"time"

	"ceprud-chatbot/internal/config"
	"ceprud-chatbot/internal/logger"
	"ceprud-chatbot/internal/lti"
	"ceprud-chatbot/models"
	"ceprud-chatbot/utils"

	"github.com/gin-gonic/gin"
)

// UserRegistrar enrolls launched users in the user store.
type UserRegistrar interface {
	EnsureSubject(ctx context.Context, email, name, subject string) error
}

// LTIDeps bundles what the LTI endpoints need.
type LTIDeps struct {
	Validator *lti.Validator
	States    *lti.StateStore
	Sessions  *lti.SessionManager
	ToolKey   *lti.ToolKey
	Users     UserRegistrar
}

func SetupLTIRoutes(router *gin.Engine, cfg *config.Config, deps *LTIDeps) {
	router.GET("/lti/jwks", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", deps.ToolKey.JWKS())
	})

	// Moodle may initiate the OIDC login with either verb.
	login := func(c *gin.Context) {
		iss := c.DefaultPostForm("iss", c.Query("iss"))
		loginHint := c.DefaultPostForm("login_hint", c.Query("login_hint"))
		messageHint := c.DefaultPostForm("lti_message_hint", c.Query("lti_message_hint"))

		if iss != cfg.MoodleIssuer {
			utils.RespondWithBadRequest(c, "Unknown platform issuer", gin.H{"iss": iss})
			return
		}
		if loginHint == "" {
			utils.RespondWithBadRequest(c, "Missing login_hint", nil)
			return
		}

		state, nonce, err := deps.States.Begin()
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to start login", nil)
			return
		}

		params := url.Values{}
		params.Set("scope", "openid")
		params.Set("response_type", "id_token")
		params.Set("response_mode", "form_post")
		params.Set("prompt", "none")
		params.Set("client_id", cfg.MoodleClientID)
		params.Set("redirect_uri", cfg.ChatbotBaseURL+"/lti/launch")
		params.Set("login_hint", loginHint)
		params.Set("state", state)
		params.Set("nonce", nonce)
		if messageHint != "" {
			params.Set("lti_message_hint", messageHint)
		}
		c.Redirect(http.StatusFound, cfg.MoodleAuthLoginURL+"?"+params.Encode())
	}
	router.GET("/lti/login", login)
	router.POST("/lti/login", login)

	router.POST("/lti/launch", func(c *gin.Context) {
		state := c.PostForm("state")
		idToken := c.PostForm("id_token")
		if state == "" || idToken == "" {
			utils.RespondWithBadRequest(c, "Missing state or id_token", nil)
			return
		}

		expectedNonce, err := deps.States.Consume(state)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid login state")
			return
		}

		launch, err := deps.Validator.ValidateIDToken(c.Request.Context(), idToken)
		if err != nil {
			logger.Warn("launch rejected", "error", err)
			utils.RespondWithUnauthorized(c, "Launch token rejected")
			return
		}
		if launch.Nonce != expectedNonce {
			utils.RespondWithUnauthorized(c, "Launch nonce does not match login")
			return
		}

		session, err := deps.Sessions.Create(c.Request.Context(), launch)
		if err != nil {
			logger.Error("failed to create launch session", "error", err)
			utils.RespondWithInternalError(c, "Failed to create session", nil)
			return
		}

		// Registration is best effort: a user-store outage must not
		// block the launch.
		if deps.Users != nil {
			regCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			if err := deps.Users.EnsureSubject(regCtx, session.UserID, launch.Name, launch.Subject); err != nil {
				logger.Warn("failed to register launched user", "subject", launch.Subject, "error", err)
			}
		}

		logger.Info("launch accepted",
			"lti_user", utils.PartialUserID(utils.AnonymizeUserID(launch.UserID)),
			"subject", launch.Subject, "context", launch.ContextID)

		target := fmt.Sprintf("%s?session_token=%s&subject=%s",
			cfg.FrontendURL, url.QueryEscape(session.SessionToken), url.QueryEscape(session.Subject))
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(launchRedirectPage(target)))
	})

	router.GET("/session/validate", func(c *gin.Context) {
		token := c.GetHeader("X-Session-Token")
		session, err := deps.Sessions.Validate(c.Request.Context(), token)
		if err == lti.ErrSessionInvalid {
			utils.RespondWithUnauthorized(c, "Session invalid or expired")
			return
		}
		if err != nil {
			logger.Error("session validation failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to validate session", nil)
			return
		}
		c.JSON(http.StatusOK, models.SessionValidateResponse{
			User: models.SessionUser{
				ID:    session.LTIUserID,
				Name:  session.Name,
				Email: session.UserID,
				Role:  "student",
			},
			Subject:      session.Subject,
			ContextLabel: session.ContextLabel,
			LTIUserID:    session.LTIUserID,
			ExpiresAt:    session.ExpiresAt.UTC().Format(time.RFC3339),
		})
	})
}

// launchRedirectPage forwards the browser to the frontend. Moodle
// posts the launch into an iframe, so a plain 302 would lose it in
// some embedding setups; a self-submitting page is more reliable.
func launchRedirectPage(target string) string {
	escaped := html.EscapeString(target)
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="0;url=%s">
<title>Accediendo al chatbot...</title>
</head>
<body>
<p>Accediendo al chatbot de la asignatura...</p>
<script>window.location.replace(%q);</script>
</body>
</html>`, escaped, target)
}
