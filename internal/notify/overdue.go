package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/agalitsyn/taskboard/internal/board"
	"github.com/agalitsyn/taskboard/internal/model"
)

// OverdueNotifier posts a daily digest of overdue tasks to the workspace chat.
type OverdueNotifier struct {
	store  *board.Store
	bot    *tgbotapi.BotAPI
	chatID int64
	log    lgr.L
}

func NewOverdueNotifier(store *board.Store, bot *tgbotapi.BotAPI, chatID int64, log lgr.L) *OverdueNotifier {
	if log == nil {
		log = lgr.NoOp
	}
	return &OverdueNotifier{store: store, bot: bot, chatID: chatID, log: log}
}

// Send builds and posts the digest. No overdue tasks means no message.
func (n *OverdueNotifier) Send(now time.Time) error {
	text := BuildDigest(n.store.Tasks(), now)
	if text == "" {
		n.log.Logf("DEBUG no overdue tasks, skipping digest")
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("could not send overdue digest: %w", err)
	}
	return nil
}

// BuildDigest renders the overdue task list, most overdue first. Returns the
// empty string when nothing is overdue.
func BuildDigest(tasks []model.Task, now time.Time) string {
	var overdue []model.Task
	for _, t := range tasks {
		if t.IsOverdue(now) {
			overdue = append(overdue, t)
		}
	}
	if len(overdue) == 0 {
		return ""
	}

	sort.Slice(overdue, func(i, j int) bool {
		return overdue[i].DueDate.Before(overdue[j].DueDate)
	})

	var b strings.Builder
	b.WriteString("⚠️ Просроченные задачи:\n")
	for _, t := range overdue {
		days := int(now.Sub(t.DueDate).Hours() / 24)
		fmt.Fprintf(&b, "• %s — %s, срок %s", t.Title, t.Status.StringLocalized(), t.DueDate.Format("02.01.2006"))
		if days > 0 {
			fmt.Fprintf(&b, " (%d дн. назад)", days)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
