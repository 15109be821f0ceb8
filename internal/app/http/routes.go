package routes

import (
	adminapi "resumeiq-backend/internal/api/admin"
	authapi "resumeiq-backend/internal/api/auth"
	"resumeiq-backend/internal/api/billing"
	onboardingapi "resumeiq-backend/internal/api/onboarding"
	"resumeiq-backend/internal/api/plans"
	"resumeiq-backend/internal/api/users"
	"resumeiq-backend/internal/app/http/middleware"
	"resumeiq-backend/internal/domain/access"

	"github.com/gin-gonic/gin"
)

// Deps carries the handlers and policies the router needs.
type Deps struct {
	Auth       *authapi.Handler
	Users      *users.Handler
	Billing    *billing.Handler
	Onboarding *onboardingapi.Handler
	Admin      *adminapi.Handler

	Verifier  middleware.Verifier
	Features  middleware.FeatureChecker
	AdminRole string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/auth/google", d.Auth.GoogleStart)
	r.GET("/auth/google/callback", d.Auth.GoogleCallback)

	// ✅ Apply input sanitization to public routes only
	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", d.Auth.Register)
	public.POST("/login", d.Auth.Login)
	public.POST("/resend-verification", d.Auth.ResendVerification)
	public.POST("/request-password-reset", d.Auth.RequestPasswordReset)

	public.GET("/plans", plans.ListPlans)
	public.GET("/plans/:id", plans.GetPlan)
	public.GET("/credits/packages", plans.ListCreditPackages)
	public.GET("/usernames/:username/available", d.Users.UsernameAvailable)

	public.POST("/onboarding/session", d.Onboarding.NewSession)
	public.POST("/onboarding", d.Onboarding.Submit)
	public.GET("/onboarding/:session_id", d.Onboarding.Get)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.Verifier), middleware.RequireUser())
	auth.POST("/logout", d.Auth.Logout)
	auth.POST("/change-password", d.Auth.ChangePassword)

	auth.GET("/me", d.Users.GetCurrentUser)
	auth.PATCH("/me", d.Users.UpdateCurrentUser)
	auth.PUT("/me/username", d.Users.SetUsername)

	auth.GET("/credits", d.Billing.GetCredits)
	auth.POST("/credits/transactions", d.Billing.CreateTransaction)
	auth.GET("/subscription", d.Billing.GetSubscription)
	auth.POST("/subscription/cancel", d.Billing.CancelSubscription)
	auth.GET("/features/:capability", d.Billing.GetFeatureAccess)

	// Paid capabilities
	auth.POST("/ai/bullet-points/check",
		middleware.RequireCapability(d.Features, access.AIBulletPoints),
		d.Billing.ChargeAIGeneration)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(d.Verifier), middleware.RequireRole(d.AdminRole))
	admin.GET("/stats", d.Admin.GetAdminStats)
	admin.GET("/users", d.Admin.ListAllUsers)
	admin.GET("/users/:id", d.Admin.GetUserDetails)
	admin.POST("/users/:id/credits", d.Billing.GrantCredits)
	admin.POST("/users/:id/subscription", d.Billing.ChangePlan)
	admin.PUT("/subscriptions/:id/status", d.Admin.UpdateSubscriptionStatus)
	admin.POST("/reconcile", d.Admin.Reconcile)
	admin.GET("/onboarding", d.Admin.ListOnboarding)
}
