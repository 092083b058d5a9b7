package model

// Specialty медицинская специальность (справочник)
type Specialty struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Doctor запись справочника врачей в рамках специальности
type Doctor struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	SpecialtyID   int64  `json:"specialty_id"`
	SpecialtyName string `json:"specialty_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	License       string `json:"license,omitempty"`
}
