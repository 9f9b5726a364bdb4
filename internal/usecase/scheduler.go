package usecase

import (
	"sort"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
)

// frequencyThresholds maps each frequency to the minimum gap between evaluations.
// Instant alerts are due on every pass.
var frequencyThresholds = map[domain.Frequency]time.Duration{
	domain.FrequencyInstant: 0,
	domain.FrequencyDaily:   24 * time.Hour,
	domain.FrequencyWeekly:  7 * 24 * time.Hour,
}

func Threshold(f domain.Frequency) (time.Duration, bool) {
	d, ok := frequencyThresholds[f]
	return d, ok
}

// IsDue reports whether an alert should be evaluated in a pass running at now.
func IsDue(alert domain.Alert, now time.Time) bool {
	if !alert.Enabled {
		return false
	}
	threshold, ok := Threshold(alert.Frequency)
	if !ok {
		return false
	}
	if threshold == 0 || alert.LastNotifiedAt == nil {
		return true
	}
	return now.Sub(*alert.LastNotifiedAt) >= threshold
}

// DueAlerts selects the alerts due at now, ordered by ID. The input slice is not modified.
func DueAlerts(alerts []domain.Alert, now time.Time) []domain.Alert {
	due := make([]domain.Alert, 0, len(alerts))
	for _, alert := range alerts {
		if IsDue(alert, now) {
			due = append(due, alert)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due
}
