package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reportmill/internal/auth"
	"github.com/reportmill/internal/database"
	"github.com/reportmill/internal/mailer"
	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/scheduler"
	"github.com/reportmill/internal/tracker"
)

type Server struct {
	scheduler *scheduler.Scheduler
	tracker   *tracker.Client
	mailer    *mailer.Mailer
	router    *gin.Engine
}

func NewServer(sched *scheduler.Scheduler, trackerClient *tracker.Client, m *mailer.Mailer) *Server {
	server := &Server{
		scheduler: sched,
		tracker:   trackerClient,
		mailer:    m,
		router:    gin.Default(),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	// Public routes
	s.router.POST("/api/v1/auth/login", s.login)
	s.router.POST("/api/v1/auth/register", s.register)

	// Protected routes (require authentication)
	api := s.router.Group("/api/v1")
	api.Use(auth.AuthMiddleware())

	api.GET("/status", s.status)
	api.GET("/history", s.runHistory)

	reports := api.Group("/reports")
	{
		reports.GET("", s.listReports)
		reports.GET("/:id", s.getReport)
		reports.POST("", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.createReport)
		reports.PUT("/:id", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.updateReport)
		reports.DELETE("/:id", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.deleteReport)
		reports.POST("/:id/run", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.runReport)
		reports.POST("/default-ceo", auth.RequireRole(models.RoleAdmin), s.createDefaultCEOReport)
	}

	sched := api.Group("/scheduler")
	sched.Use(auth.RequireRole(models.RoleAdmin))
	{
		sched.POST("/start", s.startAll)
		sched.POST("/stop", s.stopAll)
	}

	api.POST("/delivery/test", auth.RequireRole(models.RoleAdmin), s.testDelivery)
}

func (s *Server) Start(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

func (s *Server) listReports(c *gin.Context) {
	c.JSON(http.StatusOK, s.scheduler.GetScheduledReports())
}

func (s *Server) getReport(c *gin.Context) {
	rep, ok := s.scheduler.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "scheduled report not found"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) createReport(c *gin.Context) {
	var rep models.ScheduledReport
	if err := c.ShouldBindJSON(&rep); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.scheduler.Add(&rep); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rep)
}

func (s *Server) updateReport(c *gin.Context) {
	var patch models.ScheduledReportPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rep, err := s.scheduler.Update(c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, scheduler.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) deleteReport(c *gin.Context) {
	if !s.scheduler.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "scheduled report not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) runReport(c *gin.Context) {
	rep, ok := s.scheduler.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "scheduled report not found"})
		return
	}

	run := s.scheduler.RunReport(rep)
	c.JSON(http.StatusOK, run)
}

func (s *Server) createDefaultCEOReport(c *gin.Context) {
	var req struct {
		CEOEmail string `json:"ceo_email" binding:"required,email"`
		CEOName  string `json:"ceo_name" binding:"required"`
		PMEmail  string `json:"pm_email" binding:"required,email"`
		PMName   string `json:"pm_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rep, err := s.scheduler.CreateDefaultCEOReport(req.CEOEmail, req.CEOName, req.PMEmail, req.PMName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rep)
}

func (s *Server) runHistory(c *gin.Context) {
	history := s.scheduler.GetRunHistory()

	if limit := c.Query("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l >= 0 && l < len(history) {
			history = history[:l]
		}
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) startAll(c *gin.Context) {
	if err := s.scheduler.StartAll(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (s *Server) stopAll(c *gin.Context) {
	s.scheduler.StopAll()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) status(c *gin.Context) {
	trackerErr := s.tracker.TestConnection()
	mailerErr := s.mailer.IsConfigured()

	status := gin.H{
		"tracker_connected": trackerErr == nil,
		"mailer_configured": mailerErr == nil,
	}
	if trackerErr != nil {
		status["tracker_error"] = trackerErr.Error()
	}
	if mailerErr != nil {
		status["mailer_error"] = mailerErr.Error()
	}
	c.JSON(http.StatusOK, status)
}

// testDelivery sends a real self-addressed message; there is no lightweight
// handshake for email transports.
func (s *Server) testDelivery(c *gin.Context) {
	result := s.mailer.TestConnection()
	if !result.Success {
		c.JSON(http.StatusBadGateway, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) login(c *gin.Context) {
	var loginReq struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&loginReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := database.GetDB().Where("username = ?", loginReq.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !user.CheckPassword(loginReq.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
		Email    string `json:"email" binding:"required,email"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	if err := database.GetDB().Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username or email already taken"})
		return
	}

	c.JSON(http.StatusCreated, user)
}
