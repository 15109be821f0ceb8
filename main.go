package main

import (
	"context"
	"log"
	"time"

	"resumeiq-backend/config"
	"resumeiq-backend/database"
	adminapi "resumeiq-backend/internal/api/admin"
	authapi "resumeiq-backend/internal/api/auth"
	"resumeiq-backend/internal/api/billing"
	onboardingapi "resumeiq-backend/internal/api/onboarding"
	usersapi "resumeiq-backend/internal/api/users"
	routes "resumeiq-backend/internal/app/http"
	"resumeiq-backend/internal/app/http/middleware"
	"resumeiq-backend/internal/app/provisioning"
	"resumeiq-backend/internal/app/scheduler"
	"resumeiq-backend/internal/domain/onboarding"
	"resumeiq-backend/internal/domain/subscriptions"
	"resumeiq-backend/internal/domain/users"
	"resumeiq-backend/internal/infra/supabase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	db := database.MustInit(config.DB_DRIVER, config.DB_URL)

	userSvc := users.NewService(db)
	subSvc := subscriptions.NewService(db)
	recorder := onboarding.NewRecorder(db)

	idp := supabase.NewAuthClient(config.SUPABASE_URL, config.SUPABASE_ANON_KEY)
	prov := provisioning.New(userSvc, subSvc)
	prov.Subscribe(idp)

	var verifier middleware.Verifier
	if config.SUPABASE_JWT_SECRET != "" {
		verifier = middleware.NewHMACVerifier(config.SUPABASE_JWT_SECRET, config.SUPABASE_URL, "authenticated")
	} else {
		verifier = middleware.NewOIDCVerifier(context.Background(), config.SUPABASE_URL, "authenticated")
	}

	r := gin.Default()

	// ✅ Add CORS middleware BEFORE registering routes
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		Auth: authapi.NewHandler(idp, prov, authapi.Config{
			ResetRedirect:    config.PASSWORD_RESET_REDIRECT,
			AuthorizeURL:     idp.AuthorizeURL(),
			OAuthCallbackURL: config.OAUTH_CALLBACK_URL,
			FrontendRedirect: config.OAUTH_FRONTEND_REDIRECT,
		}),
		Users:      usersapi.NewHandler(userSvc, subSvc, prov),
		Billing:    billing.NewHandler(userSvc, subSvc),
		Onboarding: onboardingapi.NewHandler(recorder),
		Admin:      adminapi.NewHandler(userSvc, subSvc, recorder),
		Verifier:   verifier,
		Features:   subSvc,
		AdminRole:  config.ADMIN_ROLE,
	})

	sched := scheduler.New(subSvc)
	if err := sched.Start(config.RECONCILE_SCHEDULE); err != nil {
		log.Fatal("❌ ", err)
	}
	defer sched.Stop()

	if err := r.Run(":" + config.PORT); err != nil {
		log.Fatal("❌ ", err)
	}
}
