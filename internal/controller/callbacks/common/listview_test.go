package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/medbooking_bot/internal/service/appointments"
)

func TestListView_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := state.NewManager()
	const userID int64 = 42

	assert.Equal(t, ListView{Filter: appointments.FilterAll}, LoadListView(ctx, store, userID))

	view := ListView{Filter: appointments.FilterPending, Term: "garcía", Page: 2}
	SaveListView(ctx, store, userID, view)
	assert.Equal(t, view, LoadListView(ctx, store, userID))

	view.Term = ""
	SaveListView(ctx, store, userID, view)
	_, ok := store.GetData(ctx, userID, state.KeyAppointmentsTerm)
	assert.False(t, ok)

	ResetListView(ctx, store, userID)
	assert.Equal(t, ListView{Filter: appointments.FilterAll}, LoadListView(ctx, store, userID))
}
