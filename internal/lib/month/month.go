// Package month содержит календарную арифметику по месяцам для подписок.
package month

import (
	"time"
)

// Add прибавляет к t указанное число месяцев. В отличие от time.AddDate день
// не переполняется в следующий месяц: 31 января + 1 месяц = 28 (29) февраля.
// Время суток и часовой пояс сохраняются.
func Add(t time.Time, months int) time.Time {
	year, mon, day := t.Date()
	hour, minute, sec := t.Clock()

	// Первое число целевого месяца, нормализованное по году.
	first := time.Date(year, mon+time.Month(months), 1, hour, minute, sec, t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, mon time.Month, loc *time.Location) int {
	return time.Date(year, mon+1, 0, 0, 0, 0, 0, loc).Day()
}
