package common

import (
	"context"
	"strconv"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/medbooking_bot/internal/service/appointments"
)

// LoadListView читает фильтр, поиск и страницу списка из состояния диалога
func LoadListView(ctx context.Context, store state.Store, telegramID int64) ListView {
	view := ListView{Filter: appointments.FilterAll}

	if raw, ok := store.GetData(ctx, telegramID, state.KeyAppointmentsFilter); ok {
		view.Filter = appointments.ParseFilter(raw)
	}
	if term, ok := store.GetData(ctx, telegramID, state.KeyAppointmentsTerm); ok {
		view.Term = term
	}
	if raw, ok := store.GetData(ctx, telegramID, state.KeyAppointmentsPage); ok {
		if page, err := strconv.Atoi(raw); err == nil {
			view.Page = page
		}
	}
	return view
}

// SaveListView сохраняет параметры списка
func SaveListView(ctx context.Context, store state.Store, telegramID int64, view ListView) {
	store.SetData(ctx, telegramID, state.KeyAppointmentsFilter, string(view.Filter))
	store.SetData(ctx, telegramID, state.KeyAppointmentsPage, strconv.Itoa(view.Page))
	if view.Term == "" {
		store.DeleteData(ctx, telegramID, state.KeyAppointmentsTerm)
	} else {
		store.SetData(ctx, telegramID, state.KeyAppointmentsTerm, view.Term)
	}
}

// ResetListView возвращает список к фильтру "все" без поиска
func ResetListView(ctx context.Context, store state.Store, telegramID int64) {
	SaveListView(ctx, store, telegramID, ListView{Filter: appointments.FilterAll})
}
