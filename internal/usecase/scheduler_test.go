package usecase

import (
	"testing"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/stretchr/testify/assert"
)

var passNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func TestIsDue_DailyThreshold(t *testing.T) {
	alert := domain.Alert{ID: 1, Enabled: true, Frequency: domain.FrequencyDaily, LastNotifiedAt: timep(passNow.Add(-30 * time.Hour))}
	assert.True(t, IsDue(alert, passNow))

	alert.LastNotifiedAt = timep(passNow.Add(-10 * time.Hour))
	assert.False(t, IsDue(alert, passNow))

	alert.LastNotifiedAt = timep(passNow.Add(-24 * time.Hour))
	assert.True(t, IsDue(alert, passNow))
}

func TestIsDue_Weekly(t *testing.T) {
	alert := domain.Alert{Enabled: true, Frequency: domain.FrequencyWeekly, LastNotifiedAt: timep(passNow.Add(-6 * 24 * time.Hour))}
	assert.False(t, IsDue(alert, passNow))

	alert.LastNotifiedAt = timep(passNow.Add(-7 * 24 * time.Hour))
	assert.True(t, IsDue(alert, passNow))
}

func TestIsDue_InstantAndNeverNotified(t *testing.T) {
	instant := domain.Alert{Enabled: true, Frequency: domain.FrequencyInstant, LastNotifiedAt: timep(passNow.Add(-time.Second))}
	assert.True(t, IsDue(instant, passNow))

	fresh := domain.Alert{Enabled: true, Frequency: domain.FrequencyWeekly}
	assert.True(t, IsDue(fresh, passNow))
}

func TestIsDue_DisabledOrUnknown(t *testing.T) {
	assert.False(t, IsDue(domain.Alert{Enabled: false, Frequency: domain.FrequencyInstant}, passNow))
	assert.False(t, IsDue(domain.Alert{Enabled: true, Frequency: "hourly"}, passNow))
}

func TestDueAlerts_DeterministicAndPure(t *testing.T) {
	alerts := []domain.Alert{
		{ID: 3, Enabled: true, Frequency: domain.FrequencyInstant},
		{ID: 1, Enabled: true, Frequency: domain.FrequencyDaily, LastNotifiedAt: timep(passNow.Add(-30 * time.Hour))},
		{ID: 2, Enabled: true, Frequency: domain.FrequencyDaily, LastNotifiedAt: timep(passNow.Add(-10 * time.Hour))},
		{ID: 4, Enabled: false, Frequency: domain.FrequencyInstant},
	}
	snapshot := append([]domain.Alert(nil), alerts...)

	first := DueAlerts(alerts, passNow)
	second := DueAlerts(alerts, passNow)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, alerts)
	ids := make([]uint, 0, len(first))
	for _, a := range first {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []uint{1, 3}, ids)
}
