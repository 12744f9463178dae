package routes

import (
	"gridsettle/internal/handlers"

	"github.com/gin-gonic/gin"
)

func SetupCurtailmentRoutes(r *gin.Engine) {
	curtailment := r.Group("/curtailment")
	{
		curtailment.GET("/:date", handlers.GetCurtailmentByDateHandler)
		curtailment.GET("/:date/grid", handlers.GetCurtailmentGridHandler)
	}

	r.GET("/minting/:date", handlers.GetMintingByDateHandler)
}
