package api

import (
	"github.com/gin-gonic/gin"

	"github.com/iamOgunyinka/sproot/internal/token"
)

// NewRouter wires the middleware stack and every route.
func NewRouter(h *Handler, signer *token.Signer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(CORSMiddleware())
	r.Use(MetricsMiddleware())

	v1 := r.Group("/api/v1")
	{
		v1.POST("/admin/signup", h.HandleAdminSignup)
		v1.POST("/login", h.HandleLogin)
		v1.GET("/confirm", h.HandleConfirm)
		v1.GET("/courses/ranked", h.HandleRankedCourses)
		v1.GET("/courses/question", h.HandleCourseQuestion)
		v1.GET("/repositories/raw", h.HandleRawObject)

		authed := v1.Group("")
		authed.Use(AuthMiddleware(signer))
		{
			authed.POST("/papers", h.HandleSubmitPaper)
			authed.GET("/results", h.HandleGetResults)
			authed.POST("/courses/:id/access", h.HandleCourseAccess)
			authed.POST("/repositories/access", h.HandleRawAccess)
		}
	}

	return r
}
