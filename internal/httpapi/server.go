package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/taskboard/internal/board"
	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/realtime"
)

const actorHeader = "X-User-ID"

// Server exposes the board engine over HTTP plus the websocket change feed.
type Server struct {
	router *gin.Engine
	board  *board.Engine
	users  model.UserRepository
	hub    *realtime.Hub
	log    lgr.L
}

func New(engine *board.Engine, users model.UserRepository, hub *realtime.Hub, log lgr.L) *Server {
	if log == nil {
		log = lgr.NoOp
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		router: router,
		board:  engine,
		users:  users,
		hub:    hub,
		log:    log,
	}

	srv.registerRoutes()
	return srv
}

// Router exposes the underlying Gin engine for the HTTP server.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/ws", s.handleWS)

	api := s.router.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		authed := api.Group("")
		authed.Use(s.actorMiddleware())
		{
			authed.GET("/board", s.handleBoard)
			authed.GET("/stages/:stage/tasks", s.handleStageTasks)

			tasks := authed.Group("/tasks")
			{
				tasks.POST("", s.handleCreateTask)
				tasks.GET(":id", s.handleTaskDetail)
				tasks.PATCH(":id", s.handleUpdateTask)
				tasks.DELETE(":id", s.handleDeleteTask)
				tasks.POST(":id/move", s.handleMoveTask)
				tasks.POST(":id/comments", s.handleAddComment)
				tasks.POST(":id/attachments", s.handleAddAttachment)
				tasks.POST(":id/assignees", s.handleAssignUsers)
				tasks.DELETE(":id/assignees/:userID", s.handleUnassignUser)
			}

			authed.DELETE("/attachments/:id", s.handleDeleteAttachment)
			authed.POST("/attachments/:id/download", s.handleAttachmentDownload)
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleWS(c *gin.Context) {
	realtime.ServeWS(s.hub, s.log, c.Writer, c.Request)
}

// actorMiddleware resolves the acting user from the X-User-ID header. There is
// no session layer here; the daemon trusts its fronting proxy for identity.
func (s *Server) actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(actorHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + actorHeader + " header"})
			return
		}

		user, err := s.users.FetchUserByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, model.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
				return
			}
			s.respondError(c, http.StatusInternalServerError, err)
			c.Abort()
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user is deactivated"})
			return
		}

		c.Set("actor", user)
		c.Next()
	}
}

func (s *Server) actor(c *gin.Context) *model.User {
	v, _ := c.Get("actor")
	actor, _ := v.(*model.User)
	return actor
}

// respondBoardError maps engine errors to HTTP statuses.
func (s *Server) respondBoardError(c *gin.Context, err error) {
	var validation *board.ValidationError
	var transport *board.TransportError
	var conflict *board.ConflictError

	switch {
	case errors.Is(err, board.ErrPermissionDenied):
		s.respondError(c, http.StatusForbidden, err)
	case errors.Is(err, board.ErrNotFound):
		s.respondError(c, http.StatusNotFound, err)
	case errors.As(err, &validation):
		s.respondError(c, http.StatusBadRequest, err)
	case errors.As(err, &transport):
		s.respondError(c, http.StatusBadGateway, err)
	case errors.As(err, &conflict):
		s.respondError(c, http.StatusConflict, err)
	default:
		s.respondError(c, http.StatusInternalServerError, err)
	}
}

func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err != nil {
		s.log.Logf("WARN request failed path=%s err=%v", c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
