package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"onlypans-backend/internal/app"
	"onlypans-backend/internal/assistant"
	"onlypans-backend/internal/auth"
	"onlypans-backend/internal/config"
	"onlypans-backend/internal/mealplan"
	"onlypans-backend/internal/metrics"
	"onlypans-backend/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram API around the application's operation surface.
type Bot struct {
	api          *tgbotapi.BotAPI
	app          *app.App
	tokens       *auth.Tokens
	sessions     *SessionRepository
	metricsStore *metrics.Store
	cfg          *config.Config
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	application *app.App,
	tokens *auth.Tokens,
	sessions *SessionRepository,
	metricsStore *metrics.Store,
) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          bot,
		app:          application,
		tokens:       tokens,
		sessions:     sessions,
		metricsStore: metricsStore,
		cfg:          cfg,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.Message == nil {
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx := context.Background()
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/login") {
		b.handleLogin(ctx, msg)
		return
	}

	userID, err := b.sessions.UserFor(ctx, msg.Chat.ID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			b.reply(msg.Chat.ID, "Send /login <token> first to link your account.")
			return
		}
		log.Printf("Error resolving session: %v", err)
		return
	}

	switch {
	case text == "/plans":
		b.handlePlans(ctx, msg.Chat.ID, userID)
	case strings.HasPrefix(text, "/shop"):
		b.handleShop(ctx, msg.Chat.ID, userID, text)
	case strings.HasPrefix(text, "/list"):
		b.handleList(ctx, msg.Chat.ID, userID, text)
	case strings.HasPrefix(text, "/toggle"):
		b.handleToggle(ctx, msg.Chat.ID, userID, text)
	case strings.HasPrefix(text, "/recipe"):
		b.handleRecipe(ctx, msg.Chat.ID, userID, text)
	case strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://"):
		b.handleImport(ctx, msg.Chat.ID, userID, text)
	case text == "/metrics":
		b.handleMetrics(ctx, msg.Chat.ID)
	default:
		b.reply(msg.Chat.ID, "Commands: /plans, /shop <plan>, /list <plan>, /toggle <item>, /recipe <ingredients>, or paste a recipe URL.")
	}
}

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message) {
	parts := strings.Fields(msg.Text)
	if len(parts) != 2 {
		b.reply(msg.Chat.ID, "Usage: /login <token>")
		return
	}
	userID, err := b.tokens.Validate(parts[1])
	if err != nil {
		b.reply(msg.Chat.ID, "That token is not valid.")
		return
	}
	if err := b.sessions.Bind(ctx, msg.Chat.ID, userID); err != nil {
		log.Printf("Error binding session: %v", err)
		b.reply(msg.Chat.ID, "Login failed, try again.")
		return
	}
	b.reply(msg.Chat.ID, "Logged in. Try /plans.")
}

func (b *Bot) handlePlans(ctx context.Context, chatID int64, userID string) {
	plans, err := b.app.Plans(ctx, userID)
	if err != nil {
		log.Printf("Error listing plans: %v", err)
		b.reply(chatID, "Could not list your plans.")
		return
	}
	if len(plans) == 0 {
		b.reply(chatID, "No meal plans yet.")
		return
	}
	b.reply(chatID, formatPlans(plans))
}

func formatPlans(plans []mealplan.MealPlan) string {
	var sb strings.Builder
	sb.WriteString("Your meal plans:\n")
	for _, p := range plans {
		fmt.Fprintf(&sb, "#%d %s (%s - %s)\n", p.ID, p.Name,
			p.StartDate.Format("Jan 2"), p.EndDate.Format("Jan 2"))
	}
	return sb.String()
}

func (b *Bot) handleShop(ctx context.Context, chatID int64, userID, text string) {
	planID, ok := b.parseID(chatID, text, "Usage: /shop <plan id>")
	if !ok {
		return
	}
	list, err := b.app.GenerateShoppingList(ctx, userID, planID)
	if err != nil {
		b.replyError(chatID, "generate the shopping list", err)
		return
	}
	b.reply(chatID, formatList(shopping.NewView(list)))
}

func (b *Bot) handleList(ctx context.Context, chatID int64, userID, text string) {
	planID, ok := b.parseID(chatID, text, "Usage: /list <plan id>")
	if !ok {
		return
	}
	view, err := b.app.ShoppingListView(ctx, userID, planID)
	if err != nil {
		b.replyError(chatID, "fetch the shopping list", err)
		return
	}
	b.reply(chatID, formatList(view))
}

func (b *Bot) handleToggle(ctx context.Context, chatID int64, userID, text string) {
	itemID, ok := b.parseID(chatID, text, "Usage: /toggle <item id>")
	if !ok {
		return
	}
	purchased, err := b.app.ToggleItem(ctx, userID, itemID)
	if err != nil {
		b.replyError(chatID, "toggle the item", err)
		return
	}
	if purchased {
		b.reply(chatID, fmt.Sprintf("Item %d marked as purchased.", itemID))
	} else {
		b.reply(chatID, fmt.Sprintf("Item %d marked as not purchased.", itemID))
	}
}

func (b *Bot) handleRecipe(ctx context.Context, chatID int64, userID, text string) {
	ingredients := strings.TrimSpace(strings.TrimPrefix(text, "/recipe"))
	if ingredients == "" {
		b.reply(chatID, "Usage: /recipe <comma-separated ingredients>")
		return
	}
	b.reply(chatID, "Generating a recipe...")
	rec, err := b.app.GenerateRecipe(ctx, userID, assistant.GenerateRequest{Ingredients: ingredients})
	if err != nil {
		b.replyError(chatID, "generate a recipe", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Saved recipe #%d: %s (%d ingredients, serves %d)",
		rec.ID, rec.Title, len(rec.Ingredients), rec.Servings))
}

func (b *Bot) handleImport(ctx context.Context, chatID int64, userID, url string) {
	b.reply(chatID, "Importing recipe...")
	rec, err := b.app.ImportRecipe(ctx, userID, url)
	if err != nil {
		b.replyError(chatID, "import the recipe", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Saved recipe #%d: %s", rec.ID, rec.Title))
}

func (b *Bot) handleMetrics(ctx context.Context, chatID int64) {
	totals, err := b.metricsStore.Totals(ctx)
	if err != nil {
		log.Printf("Error reading metrics: %v", err)
		b.reply(chatID, "Could not read metrics.")
		return
	}
	health := metrics.GetSysHealth(b.cfg.DatabasePath)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Mem: %d MB | Goroutines: %d | DB: %s\n",
		health.AllocMB, health.Goroutines, health.DatabaseSize)
	for agent, tokens := range totals {
		fmt.Fprintf(&sb, "%s: %d tokens\n", agent, tokens)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) parseID(chatID int64, text, usage string) (int64, bool) {
	parts := strings.Fields(text)
	if len(parts) != 2 {
		b.reply(chatID, usage)
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.reply(chatID, usage)
		return 0, false
	}
	return id, true
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (b *Bot) replyError(chatID int64, action string, err error) {
	log.Printf("Error trying to %s: %v", action, err)
	switch {
	case errors.Is(err, mealplan.ErrNotFound):
		b.reply(chatID, "That meal plan does not exist.")
	case errors.Is(err, shopping.ErrNotFound):
		b.reply(chatID, "That item does not exist.")
	default:
		b.reply(chatID, fmt.Sprintf("Could not %s, try again later.", action))
	}
}

// formatList renders the grouped shopping list for chat display.
func formatList(view *shopping.View) string {
	if view.TotalItems == 0 {
		return "The shopping list is empty. Schedule some meals and run /shop again."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Shopping list (%d/%d purchased)\n", view.PurchasedItems, view.TotalItems)
	for _, category := range view.Categories {
		fmt.Fprintf(&sb, "\n%s\n", category)
		for _, item := range view.ItemsByGroup[category] {
			mark := " "
			if item.Purchased {
				mark = "x"
			}
			fmt.Fprintf(&sb, "[%s] #%d %g %s %s\n", mark, item.ID, item.Quantity, item.Unit, item.IngredientName)
		}
	}
	return sb.String()
}
