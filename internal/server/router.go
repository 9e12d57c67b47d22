package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-enrollment/api/swagger"
	"github.com/noah-isme/sma-enrollment/internal/handler"
	"github.com/noah-isme/sma-enrollment/internal/middleware"
	"github.com/noah-isme/sma-enrollment/internal/models"
	"github.com/noah-isme/sma-enrollment/internal/service"
	"github.com/noah-isme/sma-enrollment/pkg/config"
	"github.com/noah-isme/sma-enrollment/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-enrollment/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-enrollment/pkg/middleware/requestid"
)

// RouterOptions carries everything the HTTP surface depends on.
type RouterOptions struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *service.MetricsService
	Auth     *service.AuthService
	Students *service.StudentService
	Checks   map[string]handler.ReadinessCheck
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics))

	metricsHandler := handler.NewMetricsHandler(opts.Metrics, opts.Checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if opts.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(opts.Auth)
	studentHandler := handler.NewStudentHandler(opts.Students)

	api := r.Group(opts.Config.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Auth))
	secured.GET("/auth/me", authHandler.Me)

	students := secured.Group("/students")
	students.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))
	students.GET("", studentHandler.List)
	students.GET("/summary", studentHandler.Summary)
	students.GET("/export", studentHandler.Export)
	students.GET("/:studentId", studentHandler.Get)
	students.POST("", studentHandler.Submit)
	students.PATCH("/:studentId/status", middleware.RequireRoles(models.RoleAdmin), studentHandler.UpdateStatus)

	return r
}
