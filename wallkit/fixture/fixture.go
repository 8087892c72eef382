// SPDX-License-Identifier: ice License 1.0

package wallkitfixture

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// New starts the stub API, closed when the test ends. Callers are expected to run gin in test mode.
func New(t *testing.T) *API {
	t.Helper()
	api := &API{
		overrides: make(map[string]gin.HandlerFunc),
		counters:  make(map[string]int),
		headers:   make(map[string]http.Header),
		bodies:    make(map[string][]byte),
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.record)
	router.POST("/authorization", authorization)
	router.POST("/registration", authorization)
	router.POST("/authorization/refresh", refresh)
	router.GET("/user", authenticated(user))
	router.PUT("/user", authenticated(updateUser))
	router.GET("/resource", resource)
	router.GET("/logout", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, gin.H{"status": true}) })
	router.GET("/user/content/:key", authenticated(func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"access": true, "content_key": ctx.Param("key")})
	}))
	router.NoRoute(echo)
	api.Server = httptest.NewServer(router)
	t.Cleanup(api.Close)

	return api
}

// Handle replaces the route of method and path.
func (a *API) Handle(method, path string, handler gin.HandlerFunc) {
	a.mx.Lock()
	defer a.mx.Unlock()
	a.overrides[method+" "+path] = handler
}

// Count is how many times method and path were requested.
func (a *API) Count(method, path string) int {
	a.mx.Lock()
	defer a.mx.Unlock()

	return a.counters[method+" "+path]
}

// Header is the header of the last request to method and path.
func (a *API) Header(method, path, header string) string {
	a.mx.Lock()
	defer a.mx.Unlock()
	if h, found := a.headers[method+" "+path]; found {
		return h.Get(header)
	}

	return ""
}

// Body is the body of the last request to method and path.
func (a *API) Body(method, path string) string {
	a.mx.Lock()
	defer a.mx.Unlock()

	return string(a.bodies[method+" "+path])
}

func (a *API) record(ctx *gin.Context) {
	key := ctx.Request.Method + " " + ctx.Request.URL.Path
	var body []byte
	if ctx.Request.Body != nil {
		body, _ = io.ReadAll(ctx.Request.Body) //nolint:errcheck // Best effort.
		ctx.Request.Body = io.NopCloser(bytes.NewReader(body))
	}
	a.mx.Lock()
	a.counters[key]++
	a.headers[key] = ctx.Request.Header.Clone()
	a.bodies[key] = body
	override := a.overrides[key]
	a.mx.Unlock()
	if override != nil {
		override(ctx)
		ctx.Abort()

		return
	}
	ctx.Next()
}

func authenticated(handler gin.HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		switch ctx.GetHeader("token") {
		case Token, RefreshedToken:
			handler(ctx)
		case CompromisedToken:
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "token_compromised", "error_description": "Token compromised"})
		default:
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "error_description": "Unauthorized"})
		}
	}
}

func authorization(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Password != Password {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_grant", "error_description": "Invalid credentials"})

		return
	}
	if req.Email == "" {
		req.Email = UserEmail
	}
	ctx.JSON(http.StatusOK, gin.H{
		"id":            UserID,
		"email":         req.Email,
		"active":        true,
		"confirm":       true,
		"token":         Token,
		"refresh_token": RefreshToken,
		"expires":       expiresAt,
		"subscriptions": []gin.H{{"id": 1, "status": "active", "plan": gin.H{"slug": "premium", "title": "Premium"}}},
	})
}

func refresh(ctx *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"` //nolint:tagliatelle // API.
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.RefreshToken != RefreshToken {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_grant", "error_description": "Invalid refresh token"})

		return
	}
	ctx.JSON(http.StatusOK, gin.H{"token": RefreshedToken, "refresh_token": RefreshToken, "expires": expiresAt})
}

func user(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"id": UserID, "email": UserEmail, "active": true, "confirm": true, "token": ctx.GetHeader("token")})
}

func updateUser(ctx *gin.Context) {
	var fields map[string]any
	if err := ctx.ShouldBindJSON(&fields); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})

		return
	}
	fields["id"], fields["active"], fields["confirm"] = UserID, true, true
	ctx.JSON(http.StatusOK, fields)
}

func resource(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"public_key": PublicKey, "origin": ResourceOrigin, "payments_in_live_mode": false})
}

func echo(ctx *gin.Context) {
	var body any
	if ctx.Request.ContentLength > 0 {
		_ = ctx.ShouldBindJSON(&body) //nolint:errcheck // Best effort.
	}
	query := make(map[string]string)
	for key, vals := range ctx.Request.URL.Query() {
		query[key] = vals[0]
	}
	ctx.JSON(http.StatusOK, gin.H{"method": ctx.Request.Method, "path": ctx.Request.URL.Path, "query": query, "body": body})
}
