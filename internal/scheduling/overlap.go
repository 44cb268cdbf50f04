package scheduling

import (
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/model"
)

// Overlaps проверяет пересечение полуоткрытых интервалов [aStart, aEnd) и [bStart, bEnd).
// Интервалы нулевой длины должны отсекаться вызывающим кодом.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// OverlapsClock тот же предикат для времени суток
func OverlapsClock(aStart, aEnd, bStart, bEnd model.ClockTime) bool {
	return aStart < bEnd && bStart < aEnd
}
