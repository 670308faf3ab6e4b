package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/metrics"
	"github.com/safar/go-storefront/internal/session"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

func NewRouter(h *Handler, m *metrics.Metrics, checks map[string]HealthCheck) *gin.Engine {
	r := gin.New()

	r.Use(requestID())
	r.Use(requestLogger(h.logger))
	r.Use(recovery(h.logger))
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	if len(h.opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     h.opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-KEY", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", health(checks, h.logger))

	admin := r.Group("/admin", requireAPIKey(h.opts.AdminAPIKey))
	{
		admin.POST("/categories", h.createCategory)
		admin.POST("/products", h.createProduct)
		admin.PUT("/products/:id", h.updateProduct)
		admin.DELETE("/products/:id", h.deleteProduct)
		admin.PATCH("/orders/:id/status", h.updateOrderStatus)
		admin.GET("/users", h.listUsers)
	}

	site := r.Group("/",
		session.Middleware(h.opts.SessionTTL, h.opts.SecureCookies),
		auth.Middleware(h.tokens, h.opts.AuthCookieName),
	)
	{
		site.GET("/", h.index)
		site.GET("/detail/", h.productList)
		site.GET("/product/:id/", h.productDetail)
		site.POST("/product/:id/", h.submitReview)
		site.GET("/product/quick-view/:id/", h.quickView)

		site.GET("/login/", h.loginPage)
		site.POST("/login/", h.login)
		site.GET("/register/", h.registerPage)
		site.POST("/register/", h.register)
		site.GET("/logout/", h.logout)
		site.POST("/logout/", h.logout)

		site.POST("/cart/add/:id/", h.addToCart)
		site.POST("/cart/remove/:id/", h.removeFromCart)
		site.GET("/cart", h.viewCart)
		site.POST("/cart/increase/:id/", h.increaseQuantity)
		site.POST("/cart/decrease/:id/", h.decreaseQuantity)
		site.GET("/cart/count/", h.cartCount)

		site.POST("/create-checkout-session/", h.createCheckoutSession)
		site.GET("/success/", h.paymentSuccess)
		site.GET("/cancel/", h.paymentCancel)

		site.POST("/save/:id/", h.saveProduct)
		site.POST("/remove-saved/:id/", h.removeSaved)

		member := site.Group("/", auth.RequireUser("/login/"))
		member.GET("/saved-items/", h.savedItems)
		member.GET("/orders/", h.orderHistory)
		member.GET("/orders/:id/", h.orderDetail)
	}

	return r
}

func health(checks map[string]HealthCheck, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
				results[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "up"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	}
}
