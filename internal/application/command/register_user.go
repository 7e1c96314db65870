package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// Registration is phone-based: the user taps the "share contact" button,
// Telegram delivers their own phone number, and the role falls out of the
// number — the configured rector phone registers the rector, everything
// else registers staff. Roles are permanent after that.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand contains the data from a shared contact.
type RegisterUserCommand struct {
	// TelegramID is the sender's Telegram user ID.
	TelegramID int64

	// ContactUserID is the user ID attached to the shared contact.
	// Must match TelegramID: forwarding someone else's contact is rejected.
	ContactUserID int64

	// Phone is the raw phone number from the contact.
	Phone string

	// Username is the sender's @username (may be empty).
	Username string

	// FirstName, LastName come from the shared contact.
	FirstName string
	LastName  string
}

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	if c.TelegramID <= 0 {
		return errors.New("register_user: telegram_id is required")
	}
	if c.Phone == "" {
		return errors.New("register_user: phone is required")
	}
	if c.ContactUserID != 0 && c.ContactUserID != c.TelegramID {
		return shared.NewDomainError("user", "Register", shared.ErrPermissionDenied,
			"contact must belong to the sender")
	}
	return nil
}

// RegisterUserResult contains the result of registration.
type RegisterUserResult struct {
	// User is the registered (or already existing) user.
	User *user.User

	// AlreadyRegistered is true when the sender was registered before
	// and the command was a no-op.
	AlreadyRegistered bool
}

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	userRepo       user.Repository
	notifier       *notifier
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	// rectorPhone is the configured phone number that claims the rector role.
	rectorPhone shared.PhoneNumber
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(
	userRepo user.Repository,
	queue notification.Queue,
	eventPublisher shared.EventPublisher,
	rectorPhone shared.PhoneNumber,
	logger *slog.Logger,
) *RegisterUserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegisterUserHandler{
		userRepo:       userRepo,
		notifier:       newNotifier(queue, logger),
		eventPublisher: eventPublisher,
		logger:         logger,
		rectorPhone:    rectorPhone,
	}
}

// Handle executes the registration.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	telegramID, err := shared.NewTelegramID(cmd.TelegramID)
	if err != nil {
		return nil, err
	}

	// Idempotent: an already registered user just gets their record back.
	if existing, err := h.userRepo.GetByTelegramID(ctx, telegramID); err == nil {
		return &RegisterUserResult{User: existing, AlreadyRegistered: true}, nil
	} else if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("register_user: lookup failed: %w", err)
	}

	phone, err := shared.NewPhoneNumber(cmd.Phone)
	if err != nil {
		return nil, err
	}

	role := user.RoleStaff
	if phone == h.rectorPhone {
		role = user.RoleRector
	}

	lastName := cmd.LastName
	if lastName == "" {
		// Telegram contacts may omit the last name
		lastName = cmd.FirstName
	}

	u, err := user.NewUser(user.NewUserParams{
		TelegramID: telegramID,
		Username:   cmd.Username,
		FirstName:  cmd.FirstName,
		LastName:   lastName,
		Phone:      phone,
		Role:       role,
	})
	if err != nil {
		return nil, err
	}

	if err := h.userRepo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("register_user: create failed: %w", err)
	}

	h.logger.Info("user registered",
		"telegram_id", u.TelegramID.Int64(),
		"role", u.Role.String(),
	)

	h.notifyRegistration(ctx, u)

	event := shared.UserRegisteredEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventUserRegistered, u.TelegramID.String()),
		TelegramID: u.TelegramID.Int64(),
		FullName:   u.FullName(),
		Role:       u.Role.String(),
	}
	_ = h.eventPublisher.Publish(event)

	return &RegisterUserResult{User: u}, nil
}

// notifyRegistration queues the welcome message and, for staff, tells the rector.
func (h *RegisterUserHandler) notifyRegistration(ctx context.Context, u *user.User) {
	welcome := "👋 Добро пожаловать! Вы зарегистрированы как <b>сотрудник</b>."
	if u.Role.IsRector() {
		welcome = "👋 Добро пожаловать! Вы зарегистрированы как <b>ректор</b>."
	}
	h.notifier.send(ctx, notification.NotificationTypeWelcome, u.TelegramID, "", welcome, nil)

	if !u.Role.IsStaff() {
		return
	}

	rector, err := h.userRepo.GetRector(ctx)
	if err != nil {
		// Staff can register before the rector does
		if !shared.IsNotFound(err) {
			h.logger.Warn("failed to look up rector for registration notice", "error", err)
		}
		return
	}

	h.notifier.send(ctx, notification.NotificationTypeStaffRegistered, rector.TelegramID, "",
		fmt.Sprintf("🆕 Зарегистрирован сотрудник: <b>%s</b> (%s)", u.FullName(), u.Phone.String()), nil)
}
