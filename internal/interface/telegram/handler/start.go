package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/univer-hub/rector-task-bot/internal/application/command"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
	"github.com/univer-hub/rector-task-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// START HANDLER
// Handles /start and the contact-sharing registration flow. Registration
// is phone-based: the role is decided by the shared phone number, so the
// only thing the bot asks of a new user is the contact button.
// ══════════════════════════════════════════════════════════════════════════════

// StartHandler handles /start and incoming contacts.
type StartHandler struct {
	userRepo    user.Repository
	registerCmd *command.RegisterUserHandler
	cards       *presenter.TaskPresenter
	keyboards   *presenter.KeyboardBuilder
}

// NewStartHandler creates a new StartHandler.
func NewStartHandler(
	userRepo user.Repository,
	registerCmd *command.RegisterUserHandler,
	cards *presenter.TaskPresenter,
	keyboards *presenter.KeyboardBuilder,
) *StartHandler {
	return &StartHandler{
		userRepo:    userRepo,
		registerCmd: registerCmd,
		cards:       cards,
		keyboards:   keyboards,
	}
}

// StartRequest contains the parsed /start command data.
type StartRequest struct {
	TelegramID int64
	Username   string
	FirstName  string
}

// Handle processes the /start command.
func (h *StartHandler) Handle(ctx context.Context, req StartRequest) (*Response, error) {
	existing, err := h.userRepo.GetByTelegramID(ctx, shared.TelegramID(req.TelegramID))
	if err == nil {
		return h.welcomeBack(existing), nil
	}
	if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("start: lookup failed: %w", err)
	}

	greeting := "Здравствуйте"
	if req.FirstName != "" {
		greeting = "Здравствуйте, " + req.FirstName
	}

	return &Response{
		Text: fmt.Sprintf(
			"%s! 👋\n\n"+
				"Это бот для постановки и контроля задач.\n\n"+
				"Для регистрации нажмите кнопку ниже и поделитесь своим контактом — "+
				"роль определяется по номеру телефона автоматически.",
			greeting,
		),
		RequestContact: true,
		ContactButton:  "📱 Поделиться контактом",
	}, nil
}

// welcomeBack greets an already registered user with their role menu.
func (h *StartHandler) welcomeBack(u *user.User) *Response {
	resp := &Response{Text: h.cards.Menu(u)}
	if u.Role.IsRector() {
		resp.Keyboard = h.keyboards.RectorMenuKeyboard()
	} else {
		resp.Keyboard = h.keyboards.StaffMenuKeyboard()
	}
	return resp
}

// ContactRequest contains the data of a shared contact.
type ContactRequest struct {
	TelegramID    int64
	Username      string
	Phone         string
	ContactUserID int64
	FirstName     string
	LastName      string
}

// HandleContact processes a shared contact and registers the sender.
func (h *StartHandler) HandleContact(ctx context.Context, req ContactRequest) (*Response, error) {
	result, err := h.registerCmd.Handle(ctx, command.RegisterUserCommand{
		TelegramID:    req.TelegramID,
		ContactUserID: req.ContactUserID,
		Phone:         req.Phone,
		Username:      req.Username,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
	})
	if err != nil {
		return h.registrationError(err), nil
	}

	if result.AlreadyRegistered {
		resp := h.welcomeBack(result.User)
		resp.RemoveKeyboard = true
		return resp, nil
	}

	u := result.User
	var text string
	if u.Role.IsRector() {
		text = fmt.Sprintf(
			"🎓 <b>Добро пожаловать, %s!</b>\n\n"+
				"Вы зарегистрированы как <b>ректор</b>.\n\n"+
				"Начните с постановки задачи: /newtask",
			u.FullName(),
		)
	} else {
		text = fmt.Sprintf(
			"✅ <b>Регистрация завершена, %s!</b>\n\n"+
				"Вы зарегистрированы как <b>сотрудник</b>. "+
				"Когда ректор назначит вам задачу, бот пришлёт уведомление.\n\n"+
				"Ваши задачи: /tasks",
			u.FullName(),
		)
	}

	resp := &Response{Text: text, RemoveKeyboard: true}
	if u.Role.IsRector() {
		resp.Keyboard = h.keyboards.RectorMenuKeyboard()
	} else {
		resp.Keyboard = h.keyboards.StaffMenuKeyboard()
	}
	return resp, nil
}

// registrationError maps registration failures to user-facing messages.
func (h *StartHandler) registrationError(err error) *Response {
	switch {
	case errors.Is(err, shared.ErrPermissionDenied):
		return textResponse("❌ Нужно поделиться <b>своим</b> контактом, а не чужим.\n\n" +
			"Нажмите кнопку «Поделиться контактом» ещё раз.")
	case errors.Is(err, shared.ErrDuplicateRegistration):
		return textResponse("⚠️ Этот номер телефона уже зарегистрирован.\n\n" +
			"Если вы сменили Telegram-аккаунт, обратитесь к администратору.")
	default:
		return textResponse("❌ Не удалось завершить регистрацию. Попробуйте позже.")
	}
}
