package handler

import (
	"context"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
)

// HelpHandler renders the role-aware command reference.
type HelpHandler struct {
	userRepo user.Repository
}

// NewHelpHandler creates a new HelpHandler.
func NewHelpHandler(userRepo user.Repository) *HelpHandler {
	return &HelpHandler{userRepo: userRepo}
}

// Handle renders /help for the sender's role. Unregistered users get
// the registration hint.
func (h *HelpHandler) Handle(ctx context.Context, telegramID int64) (*Response, error) {
	u, err := h.userRepo.GetByTelegramID(ctx, shared.TelegramID(telegramID))
	if err != nil {
		if shared.IsNotFound(err) {
			return textResponse("❓ <b>Справка</b>\n\n" +
				"Вы ещё не зарегистрированы. Отправьте /start и поделитесь контактом."), nil
		}
		return nil, err
	}

	if u.Role.IsRector() {
		return textResponse("❓ <b>Справка — ректор</b>\n\n" +
			"• /newtask — поставить задачу (пошагово)\n" +
			"• /tasks — ваши задачи и их статусы\n" +
			"• /edit — изменить задачу\n" +
			"• /delete — удалить задачу\n" +
			"• /staff — список сотрудников\n" +
			"• /remind — разослать напоминания о сроках\n" +
			"• /export_users — выгрузка пользователей (CSV)\n" +
			"• /cancel — прервать текущее действие\n\n" +
			"Комментарии и действия над задачей — кнопками на её карточке."), nil
	}

	return textResponse("❓ <b>Справка — сотрудник</b>\n\n" +
		"• /tasks — назначенные вам задачи\n" +
		"• /alltasks — все задачи отдела\n" +
		"• /cancel — прервать текущее действие\n\n" +
		"На карточке задачи:\n" +
		"✅ Принять — взять задачу в работу\n" +
		"🏁 Завершить — отметить выполнение\n" +
		"💬 Комментировать — написать ректору"), nil
}
