package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-pkgz/lgr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agalitsyn/taskboard/internal/board"
	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/version"
)

type BotConfig struct {
	UpdateTimeout int
}

// UserDirectory is the user storage surface the bot needs: lookups plus
// workspace membership management.
type UserDirectory interface {
	model.UserRepository
	AddUserToWorkspace(ctx context.Context, workspaceID, userID string) error
}

// Bot is the Telegram adapter over the board engine. One bot serves one
// workspace chat; messages from other chats are ignored.
type Bot struct {
	api *tgbotapi.BotAPI

	cfg        BotConfig
	engine     *board.Engine
	workspace  *model.Workspace
	workspaces model.WorkspaceRepository
	users      UserDirectory
	log        lgr.L
}

func NewBot(
	cfg BotConfig,
	token string,
	logger tgbotapi.BotLogger,
	engine *board.Engine,
	workspace *model.Workspace,
	workspaces model.WorkspaceRepository,
	users UserDirectory,
	log lgr.L,
) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	tgbotapi.SetLogger(logger)
	if log == nil {
		log = lgr.NoOp
	}
	return &Bot{
		api:        bot,
		cfg:        cfg,
		engine:     engine,
		workspace:  workspace,
		workspaces: workspaces,
		users:      users,
		log:        log,
	}, nil
}

func (b *Bot) SetDebug(debug bool) {
	b.api.Debug = debug
}

func (b *Bot) GetSelf() tgbotapi.User {
	return b.api.Self
}

// BotAPI exposes the underlying client for other senders (digests).
func (b *Bot) BotAPI() *tgbotapi.BotAPI {
	return b.api
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case update := <-updates:
			if update.CallbackQuery != nil {
				if err := b.handleCallbackQuery(ctx, update); err != nil {
					b.log.Logf("ERROR handling callback query: %s", err)
				}
				continue
			}

			if update.Message == nil { // ignore any non-Message updates
				continue
			}
			if update.Message.Chat.ID != b.workspace.TgChatID {
				continue
			}

			if err := b.handleCommand(ctx, update); err != nil {
				b.log.Logf("ERROR handling command: %s", err)
			}

		case <-ctx.Done():
			b.log.Logf("DEBUG stopped: %s", ctx.Err())
			return
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, update tgbotapi.Update) error {
	switch update.Message.Command() {
	case "start":
		return b.joinCommand(ctx, update)
	case "help":
		return b.showMainMenu(update.Message.Chat.ID)
	case "board":
		return b.boardCommand(update)
	case "task":
		return b.createTaskCommand(ctx, update)
	case "comment":
		return b.commentCommand(ctx, update)
	case "assign":
		return b.assignCommand(ctx, update)
	case "status":
		return b.statusCommand(update)
	default:
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Незнакомая команда.")
		_, err := b.api.Send(msg)
		return err
	}
}

// joinCommand registers the sender in the workspace. The first member becomes
// the administrator.
func (b *Bot) joinCommand(ctx context.Context, update tgbotapi.Update) error {
	user, err := b.users.FetchUserByTgID(ctx, update.Message.From.ID)
	if err != nil && errors.Is(err, model.ErrUserNotFound) {
		members, err := b.users.FetchUsersInWorkspace(ctx, b.workspace.ID)
		if err != nil {
			return fmt.Errorf("could not fetch workspace users: %w", err)
		}

		role := model.UserRoleMember
		if len(members) == 0 {
			role = model.UserRoleAdmin
		}

		user = model.NewUser(displayName(update.Message.From), role)
		user.ID = uuid.NewString()
		user.TgUserID = update.Message.From.ID
		user.Username = update.Message.From.UserName
		if err = b.users.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("could not create user: %w", err)
		}
		if err = b.users.AddUserToWorkspace(ctx, b.workspace.ID, user.ID); err != nil {
			return fmt.Errorf("could not add user to workspace: %w", err)
		}
		b.log.Logf("DEBUG created user id=%s role=%s", user.ID, user.Role)

		text := fmt.Sprintf(
			"✨ Вы добавлены в пространство \"%s\" с ролью `%s`",
			b.workspace.Title, cases.Title(language.Russian).String(user.Role.StringLocalized()),
		)
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
		_, err = b.api.Send(msg)
		return err
	} else if err != nil {
		return fmt.Errorf("could not fetch user: %w", err)
	}

	text := fmt.Sprintf(
		"🚀 Вы уже состоите в пространстве \"%s\" с ролью `%s`",
		b.workspace.Title, cases.Title(language.Russian).String(user.Role.StringLocalized()),
	)
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) statusCommand(update tgbotapi.Update) error {
	statusText := fmt.Sprintf("🤖 *Статус бота*\n\n✅ Работаю\n📊 Версия: %s", version.String())
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, statusText)
	msg.ParseMode = "Markdown"
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) boardCommand(update tgbotapi.Update) error {
	return b.renderBoard(update.Message.Chat.ID)
}

// renderBoard sends the board: one section per stage, tasks as buttons.
func (b *Bot) renderBoard(chatID int64) error {
	var text strings.Builder
	text.WriteString("📋 *Доска задач*\n")

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, stage := range model.TaskStatuses {
		tasks, err := b.engine.TasksForStage(stage)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			continue
		}

		fmt.Fprintf(&text, "\n*%s*\n", cases.Title(language.Russian).String(stage.StringLocalized()))
		for _, t := range tasks {
			fmt.Fprintf(&text, "• %s `[%s]`\n", t.Title, shortID(t.ID))
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔎 "+t.Title, "task:"+t.ID),
			))
		}
	}
	if len(rows) == 0 {
		text.WriteString("\nЗадач пока нет. Создайте первую: /task <название>")
	}

	msg := tgbotapi.NewMessage(chatID, text.String())
	msg.ParseMode = "Markdown"
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) createTaskCommand(ctx context.Context, update tgbotapi.Update) error {
	actor, err := b.actor(ctx, update.Message.From.ID)
	if err != nil {
		return b.replyActorError(update.Message.Chat.ID, err)
	}

	title := strings.TrimSpace(update.Message.CommandArguments())
	if title == "" {
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Использование: /task <название задачи>")
		_, err := b.api.Send(msg)
		return err
	}

	task, err := b.engine.CreateTask(ctx, actor, board.CreateTaskParams{Title: title})
	if err != nil {
		return b.replyEngineError(update.Message.Chat.ID, err)
	}

	text := fmt.Sprintf("📝 Задача создана: %s `[%s]`", task.Title, shortID(task.ID))
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
	msg.ParseMode = "Markdown"
	_, err = b.api.Send(msg)
	return err
}

// commentCommand: /comment <id> <текст>. The id may be the short prefix shown
// on the board.
func (b *Bot) commentCommand(ctx context.Context, update tgbotapi.Update) error {
	actor, err := b.actor(ctx, update.Message.From.ID)
	if err != nil {
		return b.replyActorError(update.Message.Chat.ID, err)
	}

	args := strings.SplitN(strings.TrimSpace(update.Message.CommandArguments()), " ", 2)
	if len(args) < 2 {
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Использование: /comment <id> <текст>")
		_, err := b.api.Send(msg)
		return err
	}

	task, ok := b.findTask(args[0])
	if !ok {
		return b.replyEngineError(update.Message.Chat.ID, board.ErrNotFound)
	}

	if _, err := b.engine.AddComment(ctx, actor, task.ID, args[1]); err != nil {
		return b.replyEngineError(update.Message.Chat.ID, err)
	}

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "💬 Комментарий добавлен.")
	_, err = b.api.Send(msg)
	return err
}

// assignCommand: /assign <id> <username>.
func (b *Bot) assignCommand(ctx context.Context, update tgbotapi.Update) error {
	actor, err := b.actor(ctx, update.Message.From.ID)
	if err != nil {
		return b.replyActorError(update.Message.Chat.ID, err)
	}

	args := strings.Fields(update.Message.CommandArguments())
	if len(args) != 2 {
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Использование: /assign <id> <username>")
		_, err := b.api.Send(msg)
		return err
	}

	task, ok := b.findTask(args[0])
	if !ok {
		return b.replyEngineError(update.Message.Chat.ID, board.ErrNotFound)
	}

	username := strings.TrimPrefix(args[1], "@")
	members, err := b.users.FetchUsersInWorkspace(ctx, b.workspace.ID)
	if err != nil {
		return fmt.Errorf("could not fetch workspace users: %w", err)
	}
	var target *model.User
	for i := range members {
		if members[i].Username == username {
			target = &members[i]
			break
		}
	}
	if target == nil {
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, fmt.Sprintf("Пользователь @%s не найден в пространстве.", username))
		_, err := b.api.Send(msg)
		return err
	}

	if err := b.engine.AssignUsers(ctx, actor, task.ID, []string{target.ID}); err != nil {
		return b.replyEngineError(update.Message.Chat.ID, err)
	}

	text := fmt.Sprintf("👤 @%s назначен на задачу \"%s\"", username, task.Title)
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) error {
	callback := tgbotapi.NewCallback(update.CallbackQuery.ID, "")
	if _, err := b.api.Request(callback); err != nil {
		b.log.Logf("ERROR answering callback query: %s", err)
	}

	data := update.CallbackQuery.Data
	chatID := update.CallbackQuery.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, "task:"):
		return b.showTaskCard(chatID, strings.TrimPrefix(data, "task:"))
	case strings.HasPrefix(data, "move:"):
		return b.moveFromCallback(ctx, update.CallbackQuery.From.ID, chatID, strings.TrimPrefix(data, "move:"))
	case data == "board":
		return b.renderBoard(chatID)
	default:
		return nil
	}
}

// showTaskCard sends the task details with one button per target stage.
func (b *Bot) showTaskCard(chatID int64, taskID string) error {
	task, err := b.engine.Task(taskID)
	if err != nil {
		return b.replyEngineError(chatID, err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "*%s* `[%s]`\n", task.Title, shortID(task.ID))
	fmt.Fprintf(&text, "Стадия: %s\n", task.Status.StringLocalized())
	if task.Description != "" {
		fmt.Fprintf(&text, "\n%s\n", task.Description)
	}
	if len(task.Assignees) > 0 {
		fmt.Fprintf(&text, "\nИсполнителей: %d\n", len(task.Assignees))
	}
	fmt.Fprintf(&text, "Комментариев: %d, файлов: %d\n", task.CommentsCount, task.AttachmentsCount)

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, stage := range model.TaskStatuses {
		if stage == task.Status {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				"➡️ "+stage.StringLocalized(),
				fmt.Sprintf("move:%s:%s", task.ID, stage),
			),
		))
	}

	msg := tgbotapi.NewMessage(chatID, text.String())
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) moveFromCallback(ctx context.Context, tgUserID int64, chatID int64, data string) error {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 {
		return nil
	}
	taskID, target := parts[0], model.TaskStatus(parts[1])

	actor, err := b.actor(ctx, tgUserID)
	if err != nil {
		return b.replyActorError(chatID, err)
	}

	if err := b.engine.MoveTask(ctx, actor, taskID, target); err != nil {
		return b.replyEngineError(chatID, err)
	}

	task, err := b.engine.Task(taskID)
	if err != nil {
		return b.replyEngineError(chatID, err)
	}
	text := fmt.Sprintf("✅ \"%s\" теперь на стадии «%s»", task.Title, target.StringLocalized())
	msg := tgbotapi.NewMessage(chatID, text)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) showMainMenu(chatID int64) error {
	text := fmt.Sprintf("🤖 *Доска задач*\n\n_Версия: %s_", version.String())

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Показать доску", "board"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboard

	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) actor(ctx context.Context, tgUserID int64) (*model.User, error) {
	user, err := b.users.FetchUserByTgID(ctx, tgUserID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (b *Bot) replyActorError(chatID int64, err error) error {
	if errors.Is(err, model.ErrUserNotFound) {
		msg := tgbotapi.NewMessage(chatID, "Сначала присоединитесь к пространству: /start")
		_, sendErr := b.api.Send(msg)
		return sendErr
	}
	return err
}

func (b *Bot) replyEngineError(chatID int64, err error) error {
	var validation *board.ValidationError

	var text string
	switch {
	case errors.Is(err, board.ErrPermissionDenied):
		text = "⛔ Недостаточно прав для этого действия."
	case errors.Is(err, board.ErrNotFound):
		text = "Задача не найдена."
	case errors.As(err, &validation):
		text = "Некорректный запрос: " + validation.Reason
	default:
		b.log.Logf("WARN engine call failed: %v", err)
		text = "Не получилось выполнить действие, попробуйте ещё раз."
	}

	msg := tgbotapi.NewMessage(chatID, text)
	_, sendErr := b.api.Send(msg)
	return sendErr
}

// findTask resolves a task by full id or the short prefix shown on the board.
func (b *Bot) findTask(idOrPrefix string) (*model.Task, bool) {
	if task, err := b.engine.Task(idOrPrefix); err == nil {
		return task, true
	}
	for _, t := range b.engine.Store().Tasks() {
		if strings.HasPrefix(t.ID, idOrPrefix) {
			return t.Clone(), true
		}
	}
	return nil, false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func displayName(from *tgbotapi.User) string {
	if from.LastName != "" && from.FirstName != "" {
		return fmt.Sprintf("%s %s", from.LastName, from.FirstName)
	}
	if from.UserName != "" {
		return from.UserName
	}
	return fmt.Sprintf("tg-%d", from.ID)
}
