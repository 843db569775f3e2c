package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"hostreport/internal/middleware"
	"hostreport/internal/utils"
	"hostreport/internal/version"

	"github.com/gin-gonic/gin"
)

type AuthHandlers struct {
	authService *middleware.AuthService
	logger      *utils.Logger
}

func NewAuthHandlers(authService *middleware.AuthService, logger *utils.Logger) *AuthHandlers {
	return &AuthHandlers{authService: authService, logger: logger}
}

func (h *AuthHandlers) logAuthEvent(format string, args ...interface{}) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.Write(fmt.Sprintf(format, args...))
}

func (h *AuthHandlers) renderLogin(c *gin.Context, status int, redirect, errMsg string) {
	c.HTML(status, "login.html", gin.H{
		"redirect": redirect,
		"error":    errMsg,
		"version":  version.String(),
	})
}

func (h *AuthHandlers) LoginGET(c *gin.Context) {
	if !h.authService.Enabled() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if token, _ := c.Cookie(middleware.CookieName); token != "" {
		if _, err := h.authService.ValidateToken(token); err == nil {
			c.Redirect(http.StatusFound, safeRedirect(c.Query("redirect")))
			return
		}
	}
	h.renderLogin(c, http.StatusOK, c.Query("redirect"), c.Query("error"))
}

func (h *AuthHandlers) LoginPOST(c *gin.Context) {
	if !h.authService.Enabled() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	username := utils.SanitizeString(c.PostForm("username"))
	password := strings.TrimSpace(c.PostForm("password"))
	redirect := strings.TrimSpace(c.PostForm("redirect"))

	if _, locked := h.authService.LoginLocked(c); locked {
		h.logAuthEvent("UI login rejected: %s is locked out", c.ClientIP())
		h.renderLogin(c, http.StatusTooManyRequests, redirect, "Too many failed attempts, try again shortly")
		return
	}
	if username == "" || password == "" {
		h.logAuthEvent("UI login rejected: missing credentials from %s", c.ClientIP())
		h.renderLogin(c, http.StatusBadRequest, redirect, "Username and password are required")
		return
	}

	if !h.authService.Authenticate(username, password) {
		h.authService.RecordLoginFailure(c)
		h.logAuthEvent("UI login failed for user '%s' from %s", username, c.ClientIP())
		h.renderLogin(c, http.StatusUnauthorized, redirect, "Invalid username or password")
		return
	}

	token, err := h.authService.GenerateToken(username)
	if err != nil {
		h.renderLogin(c, http.StatusInternalServerError, redirect, "Failed to generate authentication token")
		return
	}
	h.logAuthEvent("UI login successful for user '%s' from %s", username, c.ClientIP())
	middleware.SetAuthCookie(c, token)
	c.Redirect(http.StatusFound, safeRedirect(redirect))
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	middleware.ClearAuthCookie(c)
	if !h.authService.Enabled() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

// APILogin handles JSON-based authentication requests.
func (h *AuthHandlers) APILogin(c *gin.Context) {
	if !h.authService.Enabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Authentication is not configured"})
		return
	}
	if retryAfter, locked := h.authService.LoginLocked(c); locked {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "Too many failed attempts",
			"retry_after": int(retryAfter.Seconds()),
		})
		return
	}
	var req LoginRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	username := utils.SanitizeString(req.Username)
	if !h.authService.Authenticate(username, strings.TrimSpace(req.Password)) {
		h.authService.RecordLoginFailure(c)
		h.logAuthEvent("API login failed for user '%s' from %s", username, c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := h.authService.GenerateToken(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}
	h.logAuthEvent("API login successful for user '%s' from %s", username, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  username,
	})
}
