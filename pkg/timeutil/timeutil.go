// Package timeutil provides timezone utilities for Almaty timezone (UTC+5).
// Deadlines are entered and shown to users in local time, stored in UTC.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// AlmatyTZ is the Almaty timezone (UTC+5, no DST).
// Kazakhstan abolished DST in 2005, so this is constant year-round.
var AlmatyTZ = time.FixedZone("Asia/Almaty", 5*60*60)

// Now returns the current time in Almaty timezone.
func Now() time.Time {
	return time.Now().In(AlmatyTZ)
}

// ToAlmaty converts a time to Almaty timezone.
func ToAlmaty(t time.Time) time.Time {
	return t.In(AlmatyTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// StartOfDay returns the start of the day (00:00:00) in Almaty timezone.
func StartOfDay(t time.Time) time.Time {
	almaty := ToAlmaty(t)
	return time.Date(almaty.Year(), almaty.Month(), almaty.Day(), 0, 0, 0, 0, AlmatyTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in Almaty timezone.
func EndOfDay(t time.Time) time.Time {
	almaty := ToAlmaty(t)
	return time.Date(almaty.Year(), almaty.Month(), almaty.Day(), 23, 59, 59, 999999999, AlmatyTZ)
}

// IsToday checks if the given time is today in Almaty timezone.
func IsToday(t time.Time) bool {
	now := Now()
	almaty := ToAlmaty(t)
	return almaty.Year() == now.Year() &&
		almaty.Month() == now.Month() &&
		almaty.Day() == now.Day()
}

// IsTomorrow checks if the given time is tomorrow in Almaty timezone.
func IsTomorrow(t time.Time) bool {
	tomorrow := Now().AddDate(0, 0, 1)
	almaty := ToAlmaty(t)
	return almaty.Year() == tomorrow.Year() &&
		almaty.Month() == tomorrow.Month() &&
		almaty.Day() == tomorrow.Day()
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatRussianDate is the Russian date format (DD.MM.YYYY).
	FormatRussianDate = "02.01.2006"
	// FormatRussianDateTime is the Russian datetime format.
	FormatRussianDateTime = "02.01.2006 15:04"
)

// FormatAlmaty formats a time in Almaty timezone with the given layout.
func FormatAlmaty(t time.Time, layout string) string {
	return ToAlmaty(t).Format(layout)
}

// FormatDeadline formats a deadline for display (DD.MM.YYYY HH:MM).
func FormatDeadline(t time.Time) string {
	return FormatAlmaty(t, FormatRussianDateTime)
}

// FormatDateTimeStr formats a time as datetime string in Almaty timezone.
func FormatDateTimeStr(t time.Time) string {
	return FormatAlmaty(t, FormatDateTime)
}

// ParseAlmaty parses a time string in Almaty timezone.
func ParseAlmaty(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, AlmatyTZ)
}

// ParseDeadline parses a deadline entered by the user.
// Accepts "2006-01-02 15:04", "02.01.2006 15:04" and a bare date,
// which resolves to end of that day.
func ParseDeadline(value string) (time.Time, error) {
	layouts := []string{FormatDateTime, FormatRussianDateTime}
	for _, layout := range layouts {
		if t, err := ParseAlmaty(layout, value); err == nil {
			return t, nil
		}
	}

	dateLayouts := []string{FormatDate, FormatRussianDate}
	for _, layout := range dateLayouts {
		if t, err := ParseAlmaty(layout, value); err == nil {
			return EndOfDay(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized deadline format: %q", value)
}

// FormatUntilDeadline returns a human-readable time remaining until deadline.
func FormatUntilDeadline(deadline time.Time) string {
	d := deadline.Sub(Now())
	if d < 0 {
		return "срок истёк"
	}

	switch {
	case d < time.Hour:
		mins := int(d.Minutes())
		return fmt.Sprintf("осталось %d мин", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		return fmt.Sprintf("осталось %d ч", hours)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "остался 1 день"
		}
		return fmt.Sprintf("осталось %d дн", days)
	}
}

// IsSafeNotificationTime checks if it's appropriate to send notifications (9:00-22:00).
func IsSafeNotificationTime(t time.Time) bool {
	almaty := ToAlmaty(t)
	hour := almaty.Hour()
	return hour >= 9 && hour < 22
}

// WeekdayNameRu returns the Russian name for a weekday.
func WeekdayNameRu(t time.Time) string {
	almaty := ToAlmaty(t)
	switch almaty.Weekday() {
	case time.Monday:
		return "Понедельник"
	case time.Tuesday:
		return "Вторник"
	case time.Wednesday:
		return "Среда"
	case time.Thursday:
		return "Четверг"
	case time.Friday:
		return "Пятница"
	case time.Saturday:
		return "Суббота"
	case time.Sunday:
		return "Воскресенье"
	default:
		return ""
	}
}
