package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/controller/callbacks"
	"github.com/Freeeeeet/mentor_scheduler/internal/controller/state"
	"github.com/Freeeeeet/mentor_scheduler/internal/formatting"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/Freeeeeet/mentor_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// myBookingsLimit сколько последних записей показывать в /mybookings
const myBookingsLimit = 15

// listSlots разбирает "<ID ментора> [минуты]" и строит свободные слоты
func (h *Handlers) listSlots(ctx context.Context, args []string) (int64, []model.Slot, error) {
	mentorID, err := parseID(args[0])
	if err != nil {
		return 0, nil, apperr.Validation("invalid mentor id", err.Error())
	}

	duration := 0
	if len(args) > 1 {
		duration, err = strconv.Atoi(args[1])
		if err != nil {
			return 0, nil, apperr.Validation("invalid duration", fmt.Sprintf("длительность должна быть числом минут, получено %q", args[1]))
		}
	}

	slots, err := h.slotService.ListSlots(ctx, mentorID, duration)
	return mentorID, slots, err
}

func (h *Handlers) handleSlots(ctx context.Context, b *bot.Bot, update *models.Update, args []string) {
	chatID := update.Message.Chat.ID

	if len(args) == 0 {
		h.sendError(ctx, b, chatID, "❌ Укажите ментора: /slots <ID ментора> [минуты]\n\nСписок менторов: /mentors")
		return
	}

	mentorID, slots, err := h.listSlots(ctx, args)
	if err != nil {
		h.replyError(ctx, b, chatID, err)
		return
	}

	if len(slots) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 У ментора нет свободных слотов в ближайшее время.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 Свободные слоты ментора %d (%s):\n\n", mentorID, formatting.PluralizeSlots(len(slots)))
	for i, slot := range slots {
		start := slot.Start.In(h.loc)
		fmt.Fprintf(&sb, "%d. %s, %s %s\n",
			i+1,
			formatting.WeekdayShort(start.Weekday()),
			start.Format("02.01"),
			formatting.FormatTimeRange(slot.Start, slot.End, h.loc))
	}
	fmt.Fprintf(&sb, "\nЗаписаться: /book %s <№ слота>", strings.Join(args, " "))

	h.sendMessage(ctx, b, chatID, sb.String())
}

// handleBook выбирает слот по номеру и просит написать сообщение ментору
func (h *Handlers) handleBook(ctx context.Context, b *bot.Bot, update *models.Update, args []string) {
	chatID := update.Message.Chat.ID

	if _, ok := h.requireUser(ctx, b, update); !ok {
		return
	}

	if len(args) < 2 {
		h.sendError(ctx, b, chatID, "❌ Использование: /book <ID ментора> <№ слота> [минуты]\n\nНомера слотов: /slots <ID ментора>")
		return
	}

	index, err := strconv.Atoi(args[1])
	if err != nil || index <= 0 {
		h.sendError(ctx, b, chatID, fmt.Sprintf("❌ Некорректный номер слота %q", args[1]))
		return
	}

	slotArgs := []string{args[0]}
	if len(args) > 2 {
		slotArgs = append(slotArgs, args[2])
	}
	mentorID, slots, err := h.listSlots(ctx, slotArgs)
	if err != nil {
		h.replyError(ctx, b, chatID, err)
		return
	}
	if index > len(slots) {
		h.sendError(ctx, b, chatID, fmt.Sprintf("❌ Слота №%d нет. Свободные слоты: /slots %d", index, mentorID))
		return
	}

	slot := slots[index-1]
	h.stateManager.Start(update.Message.From.ID, state.Dialog{
		State:           state.StateBookingMessage,
		MentorID:        mentorID,
		SlotStart:       slot.Start,
		DurationMinutes: int(slot.End.Sub(slot.Start).Minutes()),
	})

	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"📝 Запись на %s\n\n"+
			"Напишите ментору, с чем нужна помощь. Сообщение уйдёт вместе с заявкой.\n\n"+
			"Для отмены используйте /cancel",
		formatting.FormatDateTimeWithWeekday(slot.Start, h.loc),
	))
}

func (h *Handlers) handleBookingMessage(ctx context.Context, b *bot.Bot, update *models.Update, dialog state.Dialog) {
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		h.stateManager.Clear(telegramID)
		return
	}

	appointment, err := h.bookingService.RequestBooking(ctx, service.BookingRequest{
		MenteeID:        user.ID,
		MentorID:        dialog.MentorID,
		ScheduledAt:     dialog.SlotStart,
		DurationMinutes: dialog.DurationMinutes,
		Message:         update.Message.Text,
		// повторная доставка того же сообщения не создаст вторую заявку
		RequestKey: fmt.Sprintf("tg:%d:%d", chatID, update.Message.ID),
	})
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			h.sendError(ctx, b, chatID, errorText(err)+"\n\nПопробуйте ещё раз или /cancel")
			return
		}
		h.stateManager.Clear(telegramID)
		h.replyError(ctx, b, chatID, err)
		return
	}

	h.stateManager.Clear(telegramID)

	h.logger.Info("Booking requested from bot",
		zap.Int64("telegram_id", telegramID),
		zap.String("appointment_id", appointment.ID.String()))

	h.sendWithKeyboard(ctx, b, chatID,
		"✅ Заявка отправлена ментору. Мы сообщим, когда он ответит.\n\n"+formatting.FormatAppointment(appointment, h.loc),
		callbacks.CancelKeyboard(appointment.ID))
}

func (h *Handlers) handleCancelBooking(ctx context.Context, b *bot.Bot, update *models.Update, args []string) {
	chatID := update.Message.Chat.ID

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	if len(args) == 0 {
		h.sendError(ctx, b, chatID, "❌ Укажите ID записи: /cancelbooking <ID записи> [причина]\n\nВаши записи: /mybookings")
		return
	}
	appointmentID, err := parseAppointmentID(args[0])
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ "+err.Error())
		return
	}

	appointment, err := h.bookingService.Cancel(ctx, appointmentID, user.ID, restText(args, 1))
	if err != nil {
		h.replyError(ctx, b, chatID, err)
		return
	}

	h.sendMessage(ctx, b, chatID, "✅ Запись отменена\n\n"+formatting.FormatAppointment(appointment, h.loc))
}

func (h *Handlers) handleMyBookings(ctx context.Context, b *bot.Bot, update *models.Update, _ []string) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	appointments, err := h.bookingService.ListForUser(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err)
		return
	}

	if len(appointments) == 0 {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "📭 У вас пока нет записей.\n\nНайти ментора: /mentors")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 Ваши записи (%s):\n", formatting.PluralizeAppointments(len(appointments)))
	for i, a := range appointments {
		if i == myBookingsLimit {
			fmt.Fprintf(&sb, "\n…и ещё %d", len(appointments)-myBookingsLimit)
			break
		}
		sb.WriteString("\n")
		sb.WriteString(formatting.FormatAppointment(a, h.loc))
		fmt.Fprintf(&sb, "\n(%s)\n", roleLabel(a, user.ID))
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, sb.String())
}
