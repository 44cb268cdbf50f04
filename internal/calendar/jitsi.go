package calendar

import (
	"context"
	"strings"

	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/google/uuid"
)

const DefaultJitsiBaseURL = "https://meet.jit.si"

// JitsiBridge выдаёт ссылку на комнату Jitsi вместо полноценного календаря.
// Комнаты создаются при первом входе, поэтому удалять нечего.
type JitsiBridge struct {
	baseURL string
}

func NewJitsiBridge(baseURL string) *JitsiBridge {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultJitsiBaseURL
	}
	return &JitsiBridge{baseURL: strings.TrimRight(baseURL, "/")}
}

// CreateEvent строит имя комнаты из ID записи: повторный вызов даёт ту же ссылку
func (b *JitsiBridge) CreateEvent(_ context.Context, appointment *model.Appointment) (Event, error) {
	room := "mentorship-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(appointment.ID.String())).String()
	return Event{
		ID:          room,
		MeetingLink: b.baseURL + "/" + room,
	}, nil
}

func (b *JitsiBridge) CancelEvent(context.Context, string) error {
	return nil
}
