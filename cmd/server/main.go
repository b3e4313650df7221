package main

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"vista-reconciliation-backend/internal/config"
	"vista-reconciliation-backend/internal/models"
	"vista-reconciliation-backend/internal/routes"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found, relying on system env")
	}

	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	db := config.InitDB()

	if err := db.AutoMigrate(
		&models.VistaContract{},
		&models.VistaWorkOrder{},
		&models.VistaEmployee{},
		&models.VistaCustomer{},
		&models.VistaVendor{},
		&models.Project{},
		&models.Employee{},
		&models.Customer{},
		&models.Vendor{},
		&models.Department{},
		&models.ImportBatch{},
		&models.LinkAuditLog{},
	); err != nil {
		logrus.WithError(err).Fatal("migration failed")
	}

	r := gin.Default()
	// CORS config
	origins := []string{"http://localhost:3000"}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		origins = strings.Split(raw, ",")
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Tenant-ID", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}
