// Package bot is the notification presentation collaborator: it renders
// fired reminders as actionable Telegram messages and relays the user's
// choice back to the action handler.
package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"brainboard/internal/codec"
	"brainboard/internal/repository"
	"brainboard/internal/service"
	"brainboard/internal/store"
	"brainboard/internal/view"
)

const (
	cbDonePrefix    = "done:"
	cbSnoozePrefix  = "snooze:"
	cbDismissPrefix = "dismiss:"
)

const (
	btnDone    = "✔️ Done"
	btnSnooze  = "🔁 Snooze"
	btnDismiss = "❌ Dismiss"
)

type sentReminder struct {
	chatID    int64
	messageID int
}

// Bot aggregates the Telegram API with the task and reminder services.
type Bot struct {
	api         *tgbotapi.BotAPI
	userRepo    *repository.UserRepository
	session     store.Session
	taskSvc     *service.TaskService
	reminderSvc *service.ReminderService
	list        *view.List

	mu    sync.Mutex
	notes map[string]sentReminder // task id -> presented notification
}

func New(token string, userRepo *repository.UserRepository, session store.Session, taskSvc *service.TaskService, reminderSvc *service.ReminderService, list *view.List) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:         api,
		userRepo:    userRepo,
		session:     session,
		taskSvc:     taskSvc,
		reminderSvc: reminderSvc,
		list:        list,
		notes:       make(map[string]sentReminder),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

// ShowReminder renders a fired reminder with the three action buttons.
// The callback payload carries the generation, so a tap on an outdated
// notification is detectable downstream.
func (b *Bot) ShowReminder(reminder service.Reminder) error {
	chatID, err := b.boundChat()
	if err != nil {
		return err
	}

	suffix := fmt.Sprintf("%d:%s", reminder.Generation, reminder.TaskID)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnDone, cbDonePrefix+suffix),
			tgbotapi.NewInlineKeyboardButtonData(btnSnooze, cbSnoozePrefix+suffix),
			tgbotapi.NewInlineKeyboardButtonData(btnDismiss, cbDismissPrefix+suffix),
		),
	)

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("⏰ <b>Task Reminder</b>\n%s is due soon!", html.EscapeString(reminder.Title)))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard

	sent, err := b.api.Send(msg)
	if err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	b.mu.Lock()
	b.notes[reminder.TaskID] = sentReminder{chatID: chatID, messageID: sent.MessageID}
	b.mu.Unlock()
	return nil
}

// ClearReminder removes the presented notification for a task, if one
// is still on screen.
func (b *Bot) ClearReminder(taskID string) {
	b.mu.Lock()
	note, ok := b.notes[taskID]
	delete(b.notes, taskID)
	b.mu.Unlock()

	if !ok {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(note.chatID, note.messageID)); err != nil {
		log.Printf("clear reminder %s: %v", taskID, err)
	}
}

// SendDailyDigest pushes the open-task summary to the bound chat.
func (b *Bot) SendDailyDigest(ctx context.Context) error {
	chatID, err := b.boundChat()
	if err != nil {
		return err
	}
	text, err := b.reminderSvc.DailyDigest(ctx, time.Now())
	if err != nil {
		return err
	}
	return b.sendHTML(chatID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	action, gen, taskID, err := decodeAction(cb.Data)
	if err != nil {
		log.Printf("[info] unknown callback %q", cb.Data)
		_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, ""))
		return nil
	}

	if err := b.reminderSvc.HandleAction(ctx, action, taskID, gen); err != nil {
		_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, "Something went wrong, try again."))
		return err
	}

	ack := map[service.Action]string{
		service.ActionComplete: "Task completed.",
		service.ActionSnooze:   "Snoozed.",
		service.ActionDismiss:  "Dismissed.",
	}[action]
	_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, ack))
	return nil
}

// decodeAction turns callback data "done:<gen>:<taskID>" into a tagged
// action. Anything unrecognized stays at this boundary.
func decodeAction(data string) (service.Action, uint64, string, error) {
	var action service.Action
	var rest string
	switch {
	case strings.HasPrefix(data, cbDonePrefix):
		action, rest = service.ActionComplete, strings.TrimPrefix(data, cbDonePrefix)
	case strings.HasPrefix(data, cbSnoozePrefix):
		action, rest = service.ActionSnooze, strings.TrimPrefix(data, cbSnoozePrefix)
	case strings.HasPrefix(data, cbDismissPrefix):
		action, rest = service.ActionDismiss, strings.TrimPrefix(data, cbDismissPrefix)
	default:
		return 0, 0, "", fmt.Errorf("unknown action in %q", data)
	}

	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, 0, "", fmt.Errorf("malformed callback %q", data)
	}
	gen, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("malformed generation in %q", data)
	}
	return action, gen, parts[1], nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Use /add to create a task or /help for the command list.")
	}

	log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "add":
		return b.handleAdd(ctx, msg)
	case "edit":
		return b.handleEdit(ctx, msg)
	case "tasks":
		return b.handleListTasks(msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "digest":
		return b.SendDailyDigest(ctx)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	err := b.userRepo.BindTelegram(ctx, b.session.UID, msg.From.ID, msg.From.FirstName, msg.From.LastName, msg.From.UserName)
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, "Hi! Reminders for your tasks will arrive in this chat. /help for commands.")
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendHTML(msg.Chat.ID, strings.Join([]string{
		"<b>Commands</b>",
		"/add dd/MM/yyyy HH:mm title — create a task",
		"/edit id dd/MM/yyyy HH:mm title — change a task",
		"/tasks — list tasks",
		"/done id — complete a task",
		"/delete id — delete a task",
		"/digest — open-task summary now",
	}, "\n"))
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) error {
	dueAt, title, err := parseDueAndTitle(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /add dd/MM/yyyy HH:mm title")
	}

	task, err := b.taskSvc.Create(ctx, title, dueAt)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Could not save the task: "+err.Error())
	}
	return b.sendHTML(msg.Chat.ID, fmt.Sprintf("Saved <b>%s</b>, due %s.\nid: <code>%s</code>",
		html.EscapeString(task.Title), task.DueDateTime, task.TaskID))
}

func (b *Bot) handleEdit(ctx context.Context, msg *tgbotapi.Message) error {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) < 4 {
		return b.sendText(msg.Chat.ID, "Usage: /edit id dd/MM/yyyy HH:mm title")
	}
	taskID := fields[0]
	dueAt, title, err := parseDueAndTitle(strings.Join(fields[1:], " "))
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /edit id dd/MM/yyyy HH:mm title")
	}

	task, err := b.taskSvc.Update(ctx, taskID, title, dueAt)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Could not update the task: "+err.Error())
	}
	return b.sendHTML(msg.Chat.ID, fmt.Sprintf("Updated <b>%s</b>, due %s.", html.EscapeString(task.Title), task.DueDateTime))
}

func (b *Bot) handleListTasks(msg *tgbotapi.Message) error {
	tasks := b.list.Tasks()
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "No tasks yet. /add to create one.")
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Your tasks</b>\n\n")
	for _, task := range tasks {
		icon := "🟢"
		if task.Completed {
			icon = "✅"
		}
		builder.WriteString(fmt.Sprintf("%s %s\n   ⏰ %s\n   id: <code>%s</code>\n",
			icon, html.EscapeString(task.Title), task.DueDateTime, task.TaskID))
	}
	return b.sendHTML(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	taskID := strings.TrimSpace(msg.CommandArguments())
	if taskID == "" {
		return b.sendText(msg.Chat.ID, "Usage: /done id")
	}
	if err := b.taskSvc.Complete(ctx, taskID); err != nil {
		return b.sendText(msg.Chat.ID, "Could not complete the task: "+err.Error())
	}
	return b.sendText(msg.Chat.ID, "Task completed.")
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID := strings.TrimSpace(msg.CommandArguments())
	if taskID == "" {
		return b.sendText(msg.Chat.ID, "Usage: /delete id")
	}
	if err := b.taskSvc.Delete(ctx, taskID); err != nil {
		return b.sendText(msg.Chat.ID, "Could not delete the task: "+err.Error())
	}
	return b.sendText(msg.Chat.ID, "Task deleted.")
}

// parseDueAndTitle splits "dd/MM/yyyy HH:mm rest of the title" input.
func parseDueAndTitle(args string) (time.Time, string, error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return time.Time{}, "", fmt.Errorf("expected date, time and title")
	}
	dueAt, err := codec.ParseDueAt(fields[0] + " " + fields[1])
	if err != nil {
		return time.Time{}, "", err
	}
	return dueAt, strings.Join(fields[2:], " "), nil
}

func (b *Bot) boundChat() (int64, error) {
	user, err := b.userRepo.FindByUID(context.Background(), b.session.UID)
	if err != nil {
		return 0, fmt.Errorf("lookup account: %w", err)
	}
	if user.TelegramID == 0 {
		return 0, fmt.Errorf("no chat bound, send /start first")
	}
	return user.TelegramID, nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) sendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}
