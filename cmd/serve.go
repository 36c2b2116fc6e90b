package cmd

import (
	"context"
	"database/sql"
	"net"

	"github.com/Niklas-dev/go-auth-service/app/controller"
	"github.com/Niklas-dev/go-auth-service/app/middleware"
	"github.com/Niklas-dev/go-auth-service/app/repository"
	"github.com/Niklas-dev/go-auth-service/app/service"
	"github.com/Niklas-dev/go-auth-service/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP (Echo) server for the authentication backend.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	if cfg.AutoMigrate {
		if err := runMigrations(context.Background(), db); err != nil {
			logrus.WithError(err).Fatal("Failed to apply migrations")
		}
	}

	userRepo := repository.NewUserRepository(db)
	authService := service.NewAuthService(userRepo, cfg)

	googleService, err := service.NewGoogleService(context.Background(), cfg, userRepo)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize Google OAuth provider")
	}

	startHTTPServer(cfg, authService, googleService)
}

func startHTTPServer(cfg *config.Config, authService *service.AuthService, googleService *service.GoogleService) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	authController := controller.NewAuthController(authService)
	googleController := controller.NewGoogleController(googleService, authService, cfg)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	auth := e.Group("/auth")
	auth.POST("/create-user", authController.CreateUser)
	auth.POST("/token", authController.Login)
	auth.POST("/refresh", authController.Refresh)
	auth.GET("/google", googleController.Login)
	auth.GET("/callback/google", googleController.Callback)

	authProtected := auth.Group("")
	authProtected.Use(authMiddleware.RequireAuth)
	authProtected.GET("/get-user", authController.GetUser)

	root := e.Group("")
	root.Use(authMiddleware.RequireAuth)
	root.GET("/", authController.Whoami)

	httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}
