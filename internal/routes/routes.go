package routes

import (
	"project-management-api/internal/handlers"
	"project-management-api/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Options configures the router.
type Options struct {
	CORSOrigins []string
	Log         *logrus.Logger
}

// SetupRoutes builds the gin engine with every API route.
func SetupRoutes(h *handlers.Handler, opts Options) *gin.Engine {
	ginRouter := gin.New()
	ginRouter.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(opts.Log),
		middleware.CORS(opts.CORSOrigins),
	)

	ginRouter.GET("/", handlers.Root)
	ginRouter.GET("/health", handlers.Health)

	api := ginRouter.Group("/api/v1")
	{
		api.POST("/auth/login", h.Login)
	}

	protected := api.Group("")
	protected.Use(h.Authenticate())
	{
		protected.GET("/users/me", h.Me)
		protected.GET("/users", h.ListUsers)
		protected.POST("/users", h.CreateUser)
		protected.GET("/users/:id", h.GetUser)
		protected.PUT("/users/:id", h.UpdateUser)
		protected.DELETE("/users/:id", h.DeleteUser)

		protected.GET("/projects", h.ListProjects)
		protected.POST("/projects", h.CreateProject)
		protected.GET("/projects/:id", h.GetProject)
		protected.PUT("/projects/:id", h.UpdateProject)
		protected.DELETE("/projects/:id", h.DeleteProject)
		protected.GET("/projects/:id/members", h.ListMembers)
		protected.POST("/projects/:id/members/:user_id", h.AddMember)
		protected.DELETE("/projects/:id/members/:user_id", h.RemoveMember)

		protected.GET("/tasks", h.ListTasks)
		protected.POST("/tasks", h.CreateTask)
		protected.GET("/tasks/:id", h.GetTask)
		protected.PUT("/tasks/:id", h.UpdateTask)
		protected.PATCH("/tasks/:id/status", h.UpdateTaskStatus)
		protected.DELETE("/tasks/:id", h.DeleteTask)
		protected.GET("/tasks/:id/comments", h.ListComments)
		protected.POST("/tasks/:id/comments", h.CreateComment)
		protected.PUT("/comments/:id", h.UpdateComment)
		protected.DELETE("/comments/:id", h.DeleteComment)

		protected.GET("/user-stories/project/:project_id", h.ListProjectStories)
		protected.POST("/user-stories", h.CreateUserStory)
		protected.GET("/user-stories/:id", h.GetUserStory)
		protected.PUT("/user-stories/:id", h.UpdateUserStory)
		protected.DELETE("/user-stories/:id", h.DeleteUserStory)

		protected.POST("/ai/generate-user-stories", h.GenerateUserStories)

		protected.GET("/dashboard/stats", h.DashboardStats)
		protected.GET("/dashboard/recent-activity", h.RecentActivity)

		protected.GET("/ws", h.WebSocket)
	}

	return ginRouter
}
