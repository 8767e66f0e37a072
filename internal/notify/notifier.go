package notify

import (
	"context"
	"fmt"

	"github.com/consulate-portal/scheduler/internal/model"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// Notifier отправляет служебные уведомления о записях в Telegram-канал
// консульства. Вызывается транспортным слоем после успешного перехода;
// ядро планирования диспетчер не трогает. Fire-and-forget: ошибка
// отправки логируется и не влияет на результат операции.
type Notifier struct {
	bot    *bot.Bot
	chatID int64
	logger *zap.Logger
}

// New создаёт notifier. Пустой токен - уведомления выключены,
// возвращается nil и все методы становятся no-op.
func New(token string, chatID int64, logger *zap.Logger) (*Notifier, error) {
	if token == "" || chatID == 0 {
		logger.Info("Telegram notifications disabled")
		return nil, nil
	}

	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Notifier{bot: b, chatID: chatID, logger: logger}, nil
}

// AppointmentBooked уведомляет о новой записи
func (n *Notifier) AppointmentBooked(ctx context.Context, appt *model.Appointment) {
	statusText := "Подтверждена ✅"
	if appt.Status == model.AppointmentStatusPending {
		statusText = "Ожидает назначения агента ⏳"
	}

	text := fmt.Sprintf(
		"📋 Новая запись #%d\n\n"+
			"📅 Дата: %s\n"+
			"🕐 Время: %s - %s\n"+
			"📍 Статус: %s",
		appt.ID,
		appt.StartTime.Format("02.01.2006"),
		appt.StartTime.Format("15:04"),
		appt.EndTime.Format("15:04"),
		statusText,
	)

	n.send(ctx, text)
}

// AppointmentRescheduled уведомляет о переносе записи
func (n *Notifier) AppointmentRescheduled(ctx context.Context, old, replacement *model.Appointment) {
	text := fmt.Sprintf(
		"🔁 Запись #%d перенесена\n\n"+
			"📅 Новая дата: %s\n"+
			"🕐 Время: %s - %s\n"+
			"📋 Новая запись: #%d",
		old.ID,
		replacement.StartTime.Format("02.01.2006"),
		replacement.StartTime.Format("15:04"),
		replacement.EndTime.Format("15:04"),
		replacement.ID,
	)

	n.send(ctx, text)
}

// StatusChanged уведомляет о смене статуса записи
func (n *Notifier) StatusChanged(ctx context.Context, appt *model.Appointment, action model.TransitionAction) {
	statusText := map[model.AppointmentStatus]string{
		model.AppointmentStatusConfirmed: "Подтверждена ✅",
		model.AppointmentStatusCompleted: "Завершена ✔️",
		model.AppointmentStatusMissed:    "Неявка ⚠️",
		model.AppointmentStatusCancelled: "Отменена ❌",
	}[appt.Status]
	if statusText == "" {
		statusText = string(appt.Status)
	}

	text := fmt.Sprintf(
		"📋 Запись #%d: %s\n\n"+
			"📅 Дата: %s\n"+
			"🕐 Время: %s - %s",
		appt.ID,
		statusText,
		appt.StartTime.Format("02.01.2006"),
		appt.StartTime.Format("15:04"),
		appt.EndTime.Format("15:04"),
	)

	n.send(ctx, text)
}

func (n *Notifier) send(ctx context.Context, text string) {
	if n == nil {
		return
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	})
	if err != nil {
		n.logger.Error("Failed to send telegram notification", zap.Error(err))
	}
}
