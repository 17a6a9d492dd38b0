package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"onlypans-backend/internal/app"
	"onlypans-backend/internal/assistant"
	"onlypans-backend/internal/auth"
	"onlypans-backend/internal/config"
	"onlypans-backend/internal/database"
	"onlypans-backend/internal/llm"
	"onlypans-backend/internal/mealplan"
	"onlypans-backend/internal/metrics"
	"onlypans-backend/internal/recipe"
	"onlypans-backend/internal/shopping"
	"onlypans-backend/internal/telegram"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramWebhookURL == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_URL must be set for the bot")
	}

	ctx := context.Background()

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	recipeRepo := recipe.NewRepository(db.SQL)
	mealPlanRepo := mealplan.NewRepository(db.SQL)
	shoppingRepo := shopping.NewRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)
	sessions := telegram.NewSessionRepository(db.SQL)
	tokens := auth.NewTokens(cfg.JWTSecret)

	var generator *assistant.Generator
	var importer *assistant.Importer
	switch {
	case cfg.GroqAPIKey != "":
		textGen := llm.NewGroqClient(cfg)
		generator = assistant.NewGenerator(textGen, recipeRepo, metricsStore)
		importer = assistant.NewImporter(textGen, recipeRepo, metricsStore)
	case cfg.GeminiAPIKey != "":
		textGen, closer, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		defer closer.Close()
		generator = assistant.NewGenerator(textGen, recipeRepo, metricsStore)
		importer = assistant.NewImporter(textGen, recipeRepo, metricsStore)
	default:
		log.Println("No AI provider configured; /recipe and URL import are disabled.")
	}

	application := app.NewApp(cfg, shopping.DefaultTaxonomy(),
		recipeRepo, mealPlanRepo, shoppingRepo, generator, importer)

	bot, err := telegram.NewBot(cfg, application, tokens, sessions, metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
