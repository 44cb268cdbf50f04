package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/mentor_scheduler/internal/formatting"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/google/uuid"
)

// splitCommand отделяет команду от аргументов и убирает суффикс @botname
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(cmd), fields[1:]
}

// restText собирает аргументы начиная с from в одну строку (комментарий, причина)
func restText(args []string, from int) string {
	if from >= len(args) {
		return ""
	}
	return strings.Join(args[from:], " ")
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("некорректный номер %q", arg)
	}
	return id, nil
}

func parseAppointmentID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(arg))
	if err != nil {
		return uuid.Nil, fmt.Errorf("некорректный ID записи %q", arg)
	}
	return id, nil
}

// clearWindowsInput ответы, означающие "удалить все окна"
var clearWindowsInput = map[string]bool{"-": true, "нет": true, "none": true}

// parseWindows разбирает окна доступности, по дню на строку:
//
//	пн 09:00-12:00, 14:00-18:00
//	среда 19:00-21:00
func parseWindows(text, timezone string) ([]model.AvailabilityWindow, error) {
	text = strings.TrimSpace(text)
	if clearWindowsInput[strings.ToLower(text)] {
		return []model.AvailabilityWindow{}, nil
	}

	var (
		windows  []model.AvailabilityWindow
		problems []string
	)
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		dayText, ranges, ok := strings.Cut(line, " ")
		day, dayOK := formatting.ParseWeekday(dayText)
		if !ok || !dayOK {
			problems = append(problems, fmt.Sprintf("строка %d: не понял день недели в %q", n+1, line))
			continue
		}

		for _, r := range strings.Split(ranges, ",") {
			start, end, err := parseRange(r)
			if err != nil {
				problems = append(problems, fmt.Sprintf("строка %d: %v", n+1, err))
				continue
			}
			windows = append(windows, model.AvailabilityWindow{
				DayOfWeek: day,
				StartTime: start,
				EndTime:   end,
				Timezone:  timezone,
			})
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(problems, "\n"))
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("не найдено ни одного окна")
	}
	return windows, nil
}

func parseRange(s string) (model.ClockTime, model.ClockTime, error) {
	startText, endText, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("ожидался интервал ЧЧ:ММ-ЧЧ:ММ, получено %q", strings.TrimSpace(s))
	}
	start, err := model.ParseClockTime(startText)
	if err != nil {
		return 0, 0, fmt.Errorf("некорректное время начала %q", strings.TrimSpace(startText))
	}
	end, err := model.ParseClockTime(endText)
	if err != nil {
		return 0, 0, fmt.Errorf("некорректное время конца %q", strings.TrimSpace(endText))
	}
	return start, end, nil
}
