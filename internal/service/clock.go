package service

import "time"

const timeLayout = "2006-01-02T15:04:05Z"

func utcNow() time.Time {
	return time.Now().UTC()
}

// startOfDay 当天 UTC 零点
func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
