package patient

import (
	"context"
	"strconv"
	"strings"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/medbooking_bot/internal/service/appointments"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleAgenda показывает неделю записей картинкой
func HandleAgenda(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withViewModel(ctx, b, callback, h, "agenda", func(hc *common.HandlerContext, vm *appointments.ViewModel) {
		offset, err := strconv.Atoi(strings.TrimPrefix(callback.Data, common.ListAgenda))
		if err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "agenda")
			return
		}

		agenda, err := common.BuildAgenda(vm.Items(), h.Now(), offset)
		if err != nil {
			common.HandleError(hc, err, "agenda")
			return
		}

		if err := hc.SendPhoto(agenda.Image, agenda.Caption, agenda.Keyboard); err != nil {
			common.HandleError(hc, err, "agenda")
			return
		}

		// Картинку нельзя отредактировать в текст и обратно, старое сообщение убираем
		if err := hc.DeleteMessage(); err != nil {
			h.Logger.Debug("Failed to delete previous message", zap.Error(err))
		}
		hc.Answer("")
	})
}
