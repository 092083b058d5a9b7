package service

import "context"

// Notifier показывает пользователю ошибку фоновой операции
type Notifier interface {
	Notify(ctx context.Context, err error)
}

// NotifierFunc адаптер функции к Notifier
type NotifierFunc func(ctx context.Context, err error)

func (f NotifierFunc) Notify(ctx context.Context, err error) {
	f(ctx, err)
}

// NopNotifier ничего не показывает
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, error) {}
