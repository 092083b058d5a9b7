package formatting

// PluralizeAppointments возвращает правильное склонение слова "запись"
func PluralizeAppointments(count int) string {
	return pluralize(count, "запись", "записи", "записей")
}

// PluralizeSlots возвращает правильное склонение слова "окно"
func PluralizeSlots(count int) string {
	return pluralize(count, "свободное окно", "свободных окна", "свободных окон")
}

func pluralize(count int, one, few, many string) string {
	if count < 0 {
		count = -count
	}
	if count%10 == 1 && count%100 != 11 {
		return one
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return few
	}
	return many
}
