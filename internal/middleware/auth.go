package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenExpiry = 24 * time.Hour
	CookieName  = "hostreport_token"
)

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Credentials configure the single dashboard account.
type Credentials struct {
	Username     string
	PasswordHash string
	Secret       string
}

// AuthService issues and checks dashboard tokens. A service without a
// password hash is disabled and lets every request through.
type AuthService struct {
	secret       []byte
	username     string
	passwordHash string

	mu          sync.Mutex
	apiFailures map[string]*apiFailure
}

type apiFailure struct {
	count        int
	lastAttempt  time.Time
	lockoutUntil time.Time
}

func NewAuthService(creds Credentials) *AuthService {
	secret := []byte(creds.Secret)
	if len(secret) == 0 {
		// Tokens do not survive a restart without a configured secret.
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	return &AuthService{
		secret:       secret,
		username:     strings.TrimSpace(creds.Username),
		passwordHash: strings.TrimSpace(creds.PasswordHash),
		apiFailures:  make(map[string]*apiFailure),
	}
}

// Enabled reports whether requests must carry a token.
func (a *AuthService) Enabled() bool {
	return a != nil && a.passwordHash != ""
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticate checks a username/password pair against the configured account.
func (a *AuthService) Authenticate(username, password string) bool {
	if !a.Enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.username)) == 1
	passOK := CheckPassword(password, a.passwordHash)
	return userOK && passOK
}

func (a *AuthService) GenerateToken(username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   username,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func requestIsSecure(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
}

// SetAuthCookie stores the token for browser requests.
func SetAuthCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(c),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(TokenExpiry.Seconds()),
	})
}

func ClearAuthCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(c),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	token, _ := c.Cookie(CookieName)
	return token
}

// RequireAuth redirects unauthenticated browser requests to the login page.
func (a *AuthService) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}
		token := tokenFromRequest(c)
		claims, err := a.ValidateToken(token)
		if token == "" || err != nil {
			c.Redirect(http.StatusFound, "/login?redirect="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Set("username", claims.Username)
		c.Next()
	}
}

// RequireAPIAuth answers with JSON instead of redirecting and locks out
// clients after repeated failures.
func (a *AuthService) RequireAPIAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}
		key := c.ClientIP()
		if retryAfter, locked := a.checkAPILockout(key); locked {
			abortLocked(c, retryAfter)
			return
		}

		token := tokenFromRequest(c)
		if token == "" {
			if retryAfter, locked := a.recordAPIFailure(key); locked {
				abortLocked(c, retryAfter)
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header or cookie required"})
			return
		}

		claims, err := a.ValidateToken(token)
		if err != nil {
			if retryAfter, locked := a.recordAPIFailure(key); locked {
				abortLocked(c, retryAfter)
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		a.clearAPIFailures(key)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// RecordLoginFailure counts a bad password toward the lockout.
func (a *AuthService) RecordLoginFailure(c *gin.Context) (time.Duration, bool) {
	return a.recordAPIFailure(c.ClientIP())
}

// LoginLocked reports whether the client is currently locked out.
func (a *AuthService) LoginLocked(c *gin.Context) (time.Duration, bool) {
	return a.checkAPILockout(c.ClientIP())
}

func abortLocked(c *gin.Context, retryAfter time.Duration) {
	c.Header("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       "Too many unauthorized attempts",
		"retry_after": int(retryAfter.Seconds()),
	})
}

func (a *AuthService) checkAPILockout(key string) (time.Duration, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.apiFailures[key]
	if !ok {
		return 0, false
	}
	now := time.Now()
	if rec.lockoutUntil.After(now) {
		return rec.lockoutUntil.Sub(now), true
	}
	return 0, false
}

func (a *AuthService) recordAPIFailure(key string) (time.Duration, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	rec, ok := a.apiFailures[key]
	if !ok {
		rec = &apiFailure{}
		a.apiFailures[key] = rec
	}
	if rec.lockoutUntil.After(now) {
		return rec.lockoutUntil.Sub(now), true
	}
	if now.Sub(rec.lastAttempt) > 5*time.Minute {
		rec.count = 0
	}
	rec.lastAttempt = now
	rec.count++

	if rec.count >= 3 {
		lockout := time.Duration(rec.count) * 15 * time.Second
		if lockout > 2*time.Minute {
			lockout = 2 * time.Minute
		}
		rec.lockoutUntil = now.Add(lockout)
		rec.count = 0
		return lockout, true
	}
	return 0, false
}

func (a *AuthService) clearAPIFailures(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.apiFailures, key)
}
