package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotTracker_LatestTicketWins(t *testing.T) {
	var tracker SlotTracker

	first := tracker.Issue(7, "2026-03-10")
	second := tracker.Issue(7, "2026-03-11")

	assert.False(t, tracker.Current(first))
	assert.True(t, tracker.Current(second))
}

func TestSlotTracker_SameParamsReissuedIsStale(t *testing.T) {
	var tracker SlotTracker

	first := tracker.Issue(7, "2026-03-10")
	second := tracker.Issue(7, "2026-03-10")

	assert.False(t, tracker.Current(first), "повторный запрос на ту же дату заменяет предыдущий")
	assert.True(t, tracker.Current(second))
}

func TestSlotTracker_Invalidate(t *testing.T) {
	var tracker SlotTracker

	ticket := tracker.Issue(7, "2026-03-10")
	tracker.Invalidate()

	assert.False(t, tracker.Current(ticket))
}
