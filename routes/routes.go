package routes

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unihive/auth"
	"unihive/chats"
	"unihive/hives"
	"unihive/middleware"
	"unihive/ratelim"
	"unihive/utils"
)

// Handlers bundles everything the router dispatches to.
type Handlers struct {
	Auth      *auth.Handler
	Hives     *hives.Handler
	Chats     *chats.Handler
	UploadDir string
}

func RoutesWrapper(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, h Handlers) {
	AddUtilityRoutes(router)
	AddStaticRoutes(router, h.UploadDir)
	AddAuthRoutes(router, rateLimiter, h.Auth)
	AddItemRoutes(router, rateLimiter, h.Hives)
	AddChatRoutes(router, rateLimiter, h.Chats)
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func AddUtilityRoutes(router *httprouter.Router) {
	router.GET("/health", Index)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())
}

func AddStaticRoutes(router *httprouter.Router, uploadDir string) {
	if uploadDir == "" {
		return
	}
	router.ServeFiles("/uploads/*filepath", http.Dir(uploadDir))
}

func AddAuthRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, h *auth.Handler) {
	router.POST("/api/auth/register", rateLimiter.Limit(h.Register))
	router.POST("/api/auth/login", rateLimiter.Limit(h.Login))
	router.POST("/api/auth/verify-otp", rateLimiter.Limit(h.VerifyOTP))
	router.POST("/api/auth/request-otp", rateLimiter.Limit(h.RequestOTP))
	router.POST("/api/auth/forgot-password", rateLimiter.Limit(h.ForgotPassword))
	router.POST("/api/auth/reset-password", rateLimiter.Limit(h.ResetPassword))
}

func AddItemRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, h *hives.Handler) {
	router.GET("/api/items", middleware.OptionalAuth(h.ListItems))
	router.GET("/api/items/:id", middleware.OptionalAuth(h.GetItem))
	router.GET("/api/items/:id/flyer", h.Flyer)
	router.POST("/api/items", rateLimiter.Limit(middleware.Authenticate(h.CreateItem)))
	router.PUT("/api/items/:id", rateLimiter.Limit(middleware.Authenticate(h.UpdateItem)))
	router.DELETE("/api/items/:id", middleware.Authenticate(h.DeleteItem))

	router.GET("/api/hives/:category/fields", h.HiveFields)
}

func AddChatRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, h *chats.Handler) {
	router.POST("/api/chats", rateLimiter.Limit(middleware.Authenticate(h.StartChat)))
	router.GET("/api/chats", middleware.Authenticate(h.ListChats))
	router.GET("/api/chats/:chatid/messages", middleware.Authenticate(h.GetMessages))
	router.POST("/api/chats/:chatid/messages", rateLimiter.Limit(middleware.Authenticate(h.SendMessage)))

	router.GET("/ws/chats/:chatid", middleware.Authenticate(h.ChatSocket))
	router.GET("/ws/hives/:category", h.HiveSocket)
}

// Pattern resolves a request to the route it matches, e.g. "/api/items/:id",
// so metric labels do not grow with ids. Unmatched requests resolve to "".
func Pattern(router *httprouter.Router) func(*http.Request) string {
	return func(r *http.Request) string {
		handle, ps, _ := router.Lookup(r.Method, r.URL.Path)
		if handle == nil {
			return ""
		}
		path := r.URL.Path
		segs := strings.Split(path, "/")
		next := 0
		for _, p := range ps {
			if strings.HasPrefix(p.Value, "/") {
				// catch-all: everything after the prefix
				prefix := strings.TrimSuffix(path, p.Value)
				return prefix + "/*" + p.Key
			}
			for i := next; i < len(segs); i++ {
				if segs[i] == p.Value {
					segs[i] = ":" + p.Key
					next = i + 1
					break
				}
			}
		}
		return strings.Join(segs, "/")
	}
}
