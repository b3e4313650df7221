package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vista-reconciliation-backend/internal/config"
	handler "vista-reconciliation-backend/internal/handlers"
	"vista-reconciliation-backend/internal/repository"
	"vista-reconciliation-backend/internal/services/reconcile"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB) {
	canonRepo := repository.NewCanonicalRepo(db)
	batchRepo := repository.NewImportBatchRepo(db)

	reconService := reconcile.NewService(db, canonRepo, batchRepo, config.LoadTuning())
	reconHandler := handler.NewReconcileHandler(reconService)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	recon := api.Group("/reconciliation")
	recon.GET("/stats", reconHandler.Stats)
	recon.GET("/batches/:batchId", reconHandler.GetBatch)

	byType := recon.Group("/:entityType")
	byType.POST("/import", reconHandler.Import)
	byType.POST("/auto-match", reconHandler.AutoMatch)
	byType.GET("/duplicates", reconHandler.FindDuplicates)
	byType.GET("/duplicates/stats", reconHandler.DuplicateStats)
	byType.POST("/promote", reconHandler.Promote)
	byType.GET("/records", reconHandler.ListRecords)
	byType.POST("/records/:id/link", reconHandler.Link)
	byType.POST("/records/:id/unlink", reconHandler.Unlink)
	byType.POST("/records/:id/ignore", reconHandler.Ignore)
}
