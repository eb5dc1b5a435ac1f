package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-ledger-api/api/swagger"
	"github.com/noah-isme/school-ledger-api/internal/handler"
	internalmiddleware "github.com/noah-isme/school-ledger-api/internal/middleware"
	"github.com/noah-isme/school-ledger-api/internal/models"
	"github.com/noah-isme/school-ledger-api/internal/service"
	"github.com/noah-isme/school-ledger-api/pkg/config"
	"github.com/noah-isme/school-ledger-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-ledger-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-ledger-api/pkg/middleware/requestid"
)

type routerDeps struct {
	metrics   *service.MetricsService
	audit     internalmiddleware.AuditWriter
	auth      *service.AuthService
	ledger    *service.LedgerService
	schedules *service.FeeScheduleService
	students  *service.StudentService
	exports   *service.ExportService
	checks    map[string]handler.ReadinessCheck
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(deps.metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(deps.auth)
	ledgerHandler := handler.NewLedgerHandler(deps.ledger)
	scheduleHandler := handler.NewFeeScheduleHandler(deps.schedules)
	studentHandler := handler.NewStudentHandler(deps.students)
	exportHandler := handler.NewExportHandler(deps.exports)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(deps.auth))
	secured.GET("/auth/me", authHandler.Me)

	readers := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	admins := internalmiddleware.RequireRoles(models.RoleAdmin)
	audit := func(action, resource, param string) gin.HandlerFunc {
		return internalmiddleware.Audit(deps.audit, logr, action, resource, param)
	}

	students := secured.Group("/students")
	students.GET("", readers, studentHandler.List)
	students.GET("/:id", readers, studentHandler.Get)
	students.POST("", admins, audit(models.AuditActionStudentCreate, "student", ""), studentHandler.Create)
	students.PUT("/:id", admins, audit(models.AuditActionStudentUpdate, "student", "id"), studentHandler.Update)
	students.DELETE("/:id", admins, audit(models.AuditActionStudentDeactivate, "student", "id"), studentHandler.Delete)

	fees := secured.Group("/fees")
	fees.GET("/ledger", readers, ledgerHandler.Ledger)
	fees.GET("/summary", readers, ledgerHandler.Summary)
	fees.POST("/reconcile", admins, audit(models.AuditActionReconcile, "fee_record", ""), ledgerHandler.Reconcile)
	fees.GET("/transactions", readers, ledgerHandler.Transactions)
	fees.POST("/transactions", admins, ledgerHandler.RecordPayment)
	fees.PUT("/records/:studentId/amount-due", admins, ledgerHandler.AdjustBill)
	fees.GET("/records/:studentId/statement", readers, ledgerHandler.Statement)
	fees.GET("/records/:studentId/statement.pdf", readers, exportHandler.StatementPDF)
	fees.GET("/records/:studentId/verify", admins, ledgerHandler.Verify)
	fees.GET("/export", readers, exportHandler.Balances)

	fees.GET("/schedules", readers, scheduleHandler.List)
	fees.GET("/schedules/:id", readers, scheduleHandler.Get)
	fees.POST("/schedules", admins, scheduleHandler.Upsert)
	fees.POST("/schedules/seed", admins, scheduleHandler.Seed)
	fees.PUT("/schedules/:id", admins, scheduleHandler.Update)
	fees.DELETE("/schedules/:id", admins, scheduleHandler.Delete)

	return r
}
