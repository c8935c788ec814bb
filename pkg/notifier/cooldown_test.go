package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReminderIntervalPrefersClientSetting(t *testing.T) {
	assert.Equal(t, 600*time.Second, reminderInterval(600, 30))
}

func TestReminderIntervalFallsBackToDeploymentDefault(t *testing.T) {
	assert.Equal(t, 30*time.Minute, reminderInterval(0, 30))
}

func TestReminderIntervalFallsBackToHardFloor(t *testing.T) {
	assert.Equal(t, 30*time.Minute, reminderInterval(0, 0))
}

func TestCooldownElapsedFirstSendAlwaysFires(t *testing.T) {
	assert.True(t, cooldownElapsed(nil, 10*time.Minute, time.Now()))
}

func TestCooldownElapsedRespectsInterval(t *testing.T) {
	last := time.Unix(0, 0)
	interval := 600 * time.Second

	assert.False(t, cooldownElapsed(&last, interval, last.Add(300*time.Second)))
	assert.True(t, cooldownElapsed(&last, interval, last.Add(620*time.Second)))
}

func TestCooldownZeroMeansNoCooldown(t *testing.T) {
	last := time.Now()
	assert.True(t, cooldownElapsed(&last, 0, last.Add(time.Millisecond)))
}
