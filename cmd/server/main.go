package main

import (
	"context"
	"log"
	"time"

	"whatsapp-crm/internal/api"
	"whatsapp-crm/internal/coexistence"
	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/decision"
	"whatsapp-crm/internal/delivery"
	"whatsapp-crm/internal/sequence"
	"whatsapp-crm/internal/store"
	"whatsapp-crm/internal/templatemap"
	"whatsapp-crm/internal/webhook"
	"whatsapp-crm/internal/whatsapp"
	"whatsapp-crm/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	database.SyncConfig(db, cfg)

	st := store.New(db)
	hub := ws.NewHub()
	go hub.Run()

	client := whatsapp.NewClient(cfg)
	decider := decision.NewDecider(st)
	mapper := templatemap.NewMapper(st, st, st)
	router := delivery.NewRouter(st, st, client, mapper, st, hub)
	evaluator := sequence.NewEvaluator(st)
	runner := sequence.NewRunner(st, decider, router, evaluator)

	verifier := coexistence.NewVerifier(client, cfg.CoexPollInterval, cfg.CoexMaxAttempts)
	registry := coexistence.NewRegistry(verifier, hub)

	webhookHandler := webhook.NewHandler(cfg, st, runner, hub)
	sendHandler := api.NewSendHandler(decider, router)
	sequenceHandler := api.NewSequenceHandler(st, runner)
	coexHandler := api.NewCoexistenceHandler(registry)
	contactHandler := api.NewContactHandler(st)
	dashboardHandler := api.NewDashboardHandler(st)

	// Pause steps come due on a timer, not on inbound traffic.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			runner.Tick(context.Background())
		}
	}()

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Webhook Routes
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleMessage)

	// Dashboard live feed
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	})

	apiGroup := r.Group("/api")
	{
		// Delivery pipeline
		apiGroup.POST("/send", sendHandler.SendMessage)
		apiGroup.GET("/contacts/:waId/decision", sendHandler.GetDecision)

		// CRM Routes
		apiGroup.GET("/contacts", contactHandler.GetContacts)
		apiGroup.POST("/contacts", contactHandler.CreateContact)
		apiGroup.GET("/contacts/:waId", contactHandler.GetContact)

		// Sequence Routes
		apiGroup.GET("/sequences", sequenceHandler.ListSequences)
		apiGroup.POST("/sequences", sequenceHandler.CreateSequence)
		apiGroup.POST("/sequences/:id/enroll", sequenceHandler.Enroll)
		apiGroup.POST("/contacts/:waId/advance", sequenceHandler.Advance)

		// Coexistence Routes
		apiGroup.POST("/coexistence/:phoneNumberId/start", coexHandler.StartVerification)
		apiGroup.GET("/coexistence/:phoneNumberId", coexHandler.GetVerification)
		apiGroup.DELETE("/coexistence/:phoneNumberId", coexHandler.CancelVerification)

		// Dashboard Routes
		apiGroup.GET("/messages", dashboardHandler.GetMessages)
		apiGroup.GET("/attempts", dashboardHandler.GetAttempts)
		apiGroup.GET("/queue", dashboardHandler.GetQueue)
		apiGroup.GET("/stats", dashboardHandler.GetStats)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
