package common

// ========================
// Callback Data Patterns
// ========================
// Форматы callback data, которые используют экраны и роутер

// Общие
const (
	Noop       = "noop"
	BackToMain = "back_to_main"
	MenuBook   = "menu_book"
	MenuList   = "menu_appointments"
)

// Мастер записи
const (
	BookSpecialty = "bk_spec:" // bk_spec:specialty_id
	BookDoctor    = "bk_doc:"  // bk_doc:doctor_id
	BookDate      = "bk_date:" // bk_date:2026-03-10
	BookTime      = "bk_time:" // bk_time:0930
	BookBack      = "bk_back"
	BookReason    = "bk_reason"
	BookConfirm   = "bk_confirm"
	BookCancel    = "bk_cancel"
)

// Список записей
const (
	ListFilter      = "ap_filter:"     // ap_filter:active
	ListPage        = "ap_page:"       // ap_page:2 (0-based)
	ListOpen        = "ap_view:"       // ap_view:appointment_id
	ListBack        = "ap_list"        // вернуться к списку
	ListRefresh     = "ap_refresh"     // перезагрузить с сервера
	ListSearch      = "ap_search"      // ввести строку поиска
	ListSearchClear = "ap_search_clear"
	ListCancel      = "ap_cancel:"     // ap_cancel:appointment_id
	ListCancelYes   = "ap_cancel_yes:" // ap_cancel_yes:appointment_id
	ListReschedule  = "ap_resched:"    // ap_resched:appointment_id
	ListRescheduleD = "ap_rdate:"      // ap_rdate:appointment_id:2026-03-10
	ListRescheduleT = "ap_rtime:"      // ap_rtime:appointment_id:2026-03-10:0930
	ListAgenda      = "ap_agenda:"     // ap_agenda:week_offset
)
