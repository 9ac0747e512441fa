// Package router assembles the HTTP surface of ExpenseTrack: services,
// handlers, middleware and routes.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/Vasheegaran/ExpenseTrack/internal/docs" // swagger docs
	"github.com/Vasheegaran/ExpenseTrack/internal/handlers"
	"github.com/Vasheegaran/ExpenseTrack/internal/logger"
	"github.com/Vasheegaran/ExpenseTrack/internal/middleware"
	"github.com/Vasheegaran/ExpenseTrack/internal/services"
)

const healthTimeout = 2 * time.Second

// Services bundles the service layer the routes depend on.
type Services struct {
	Users       services.UserServicer
	Sessions    services.SessionServicer
	Expenses    services.ExpenseServicer
	Budgets     services.BudgetServicer
	Aggregation services.AggregationServicer
	Export      services.ExportServicer
	Audit       services.AuditServicer
}

// NewServices builds every service on top of db.
func NewServices(db *gorm.DB, sessionTTL time.Duration, userOpts ...services.UserOption) *Services {
	expenses := services.NewExpenseService(db)
	return &Services{
		Users:       services.NewUserService(db, userOpts...),
		Sessions:    services.NewSessionService(db, sessionTTL),
		Expenses:    expenses,
		Budgets:     services.NewBudgetService(db),
		Aggregation: services.NewAggregationService(db),
		Export:      services.NewExportService(expenses),
		Audit:       services.NewAuditService(db),
	}
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New returns the fully routed engine. health may be nil, in which case
// /api/health only reports that the process is up.
func New(svc *Services, tokens *middleware.SessionTokens, health Pinger) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Sessions, svc.Audit, tokens)
	expenseHandler := handlers.NewExpenseHandler(svc.Expenses, svc.Audit)
	dashboardHandler := handlers.NewDashboardHandler(svc.Aggregation)
	exportHandler := handlers.NewExportHandler(svc.Export, svc.Audit)
	budgetHandler := handlers.NewBudgetHandler(svc.Budgets, svc.Audit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", healthCheck(health))

	// Public routes; a signed-in caller is sent to the dashboard instead.
	guest := router.Group("/", middleware.RedirectIfAuthenticated(tokens, svc.Sessions))
	guest.POST("/register", authHandler.Register)
	guest.GET("/login", authHandler.LoginForm)
	guest.POST("/login", authHandler.Login)

	// Protected routes
	protected := router.Group("/", middleware.AuthMiddleware(tokens, svc.Sessions))
	protected.GET("/logout", authHandler.Logout)
	protected.GET("/profile", authHandler.GetProfile)

	protected.GET("/", dashboardHandler.Dashboard)
	protected.GET("/chart-data", dashboardHandler.ChartData)

	protected.GET("/add", expenseHandler.AddForm)
	protected.POST("/add", expenseHandler.CreateExpense)
	protected.GET("/edit/:id", expenseHandler.EditForm)
	protected.POST("/edit/:id", expenseHandler.UpdateExpense)
	protected.POST("/delete/:id", expenseHandler.DeleteExpense)
	protected.GET("/expenses", expenseHandler.GetExpenses)

	protected.GET("/export/csv", exportHandler.ExportCSV)
	protected.GET("/export/xlsx", exportHandler.ExportXLSX)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)

	return router
}

// healthCheck godoc
// @Summary     Health check
// @Description Liveness, plus a database ping when one is configured
// @Tags        health
// @Produce     json
// @Success     200 {object} map[string]string "ok"
// @Failure     503 {object} map[string]string "database unreachable"
// @Router      /api/health [get]
func healthCheck(health Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := health.Ping(ctx); err != nil {
				logger.Get().Warnw("health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
