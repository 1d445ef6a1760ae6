package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/AaronL1011/mechmate-sub000/internal/model"
)

// ReminderService builds human-readable due reports for notifications.
type ReminderService struct {
	tasks *TaskService
}

func NewReminderService(tasks *TaskService) *ReminderService {
	return &ReminderService{tasks: tasks}
}

// DueSummary renders the due report as Telegram HTML. It returns an empty
// string when nothing is overdue or upcoming.
func (s *ReminderService) DueSummary(ctx context.Context, days int) (string, error) {
	report, err := s.tasks.DueReport(ctx, days)
	if err != nil {
		return "", err
	}
	if len(report.Overdue) == 0 && len(report.Upcoming) == 0 {
		return "", nil
	}
	return FormatDueReport(report), nil
}

// FormatDueReport renders report as Telegram HTML.
func FormatDueReport(report DueReport) string {
	var builder strings.Builder
	builder.WriteString("🔧 <b>Maintenance report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", report.Today))

	builder.WriteString("⚠️ <b>Overdue</b>\n")
	if len(report.Overdue) == 0 {
		builder.WriteString("- nothing overdue\n")
	}
	for _, v := range report.Overdue {
		builder.WriteString(formatDueTask(v, report))
	}

	builder.WriteString(fmt.Sprintf("\n⏳ <b>Due in the next %d days</b>\n", report.WindowDays))
	if len(report.Upcoming) == 0 {
		builder.WriteString("- nothing upcoming\n")
	}
	for _, v := range report.Upcoming {
		builder.WriteString(formatDueTask(v, report))
	}

	return strings.TrimSpace(builder.String())
}

func dueIn(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

func formatDueTask(v TaskView, report DueReport) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("#%d %s <i>(%s)</i>", v.ID,
		html.EscapeString(strings.TrimSpace(v.Title)),
		html.EscapeString(strings.TrimSpace(v.EquipmentName))))

	if v.NextDueDate != nil {
		due := formatDue(v.NextDueDate)
		sb.WriteString(fmt.Sprintf("\n   📆 due %s", *due))
		if v.DueState == DueUpcoming {
			days := int(v.NextDueDate.UTC().Sub(report.Today.Time()).Hours() / 24)
			sb.WriteString(" · " + dueIn(days))
		}
	}
	if v.NextDueUsageValue != nil {
		sb.WriteString(fmt.Sprintf("\n   📏 at %s %s (now %s)",
			FormatNumber(*v.NextDueUsageValue), html.EscapeString(unitOr(v.UsageUnit)), FormatNumber(v.CurrentUsage)))
	}
	if v.Priority == model.PriorityHigh || v.Priority == model.PriorityCritical {
		sb.WriteString(fmt.Sprintf("\n   ❗ %s priority", v.Priority))
	}

	sb.WriteByte('\n')
	return sb.String()
}
