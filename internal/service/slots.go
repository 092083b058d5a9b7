package service

import "sync"

// SlotTicket запрос свободного времени для пары (врач, дата)
type SlotTicket struct {
	seq      uint64
	DoctorID int64
	Date     string
}

// SlotTracker следит, какой запрос слотов последний. Ответ применяется,
// только если его билет совпадает с последним выданным.
type SlotTracker struct {
	mu       sync.Mutex
	seq      uint64
	doctorID int64
	date     string
}

// Issue выдаёт билет на новый запрос, предыдущие билеты устаревают
func (t *SlotTracker) Issue(doctorID int64, date string) SlotTicket {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	t.doctorID = doctorID
	t.date = date
	return SlotTicket{seq: t.seq, DoctorID: doctorID, Date: date}
}

// Current проверяет, что билет всё ещё соответствует текущему выбору
func (t *SlotTracker) Current(ticket SlotTicket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return ticket.seq == t.seq && ticket.DoctorID == t.doctorID && ticket.Date == t.date
}

// Invalidate делает все выданные билеты устаревшими
func (t *SlotTracker) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	t.doctorID = 0
	t.date = ""
}
