package models

import "time"

// DischargeBilling is the immutable bill written once per discharge action.
// Patient and doctor fields are a snapshot taken at discharge time.
type DischargeBilling struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	PatientID          uint      `gorm:"not null;index" json:"patient_id"`
	PatientName        string    `gorm:"size:200" json:"patient_name"`
	AssignedDoctorName string    `gorm:"size:100;index" json:"assigned_doctor_name"`
	Address            string    `gorm:"size:255" json:"address"`
	Mobile             string    `gorm:"size:20" json:"mobile"`
	Symptoms           string    `gorm:"size:255" json:"symptoms"`
	AdmitDate          time.Time `gorm:"type:date;not null" json:"admit_date"`
	ReleaseDate        time.Time `gorm:"type:date;not null" json:"release_date"`
	DaysStayed         int       `gorm:"not null" json:"days_stayed"`
	RoomCharge         int       `gorm:"not null" json:"room_charge"`
	DoctorFee          int       `gorm:"not null" json:"doctor_fee"`
	MedicineCost       int       `gorm:"not null" json:"medicine_cost"`
	OtherCharge        int       `gorm:"not null" json:"other_charge"`
	Total              int       `gorm:"not null" json:"total"`
	CreatedAt          time.Time `json:"created_at"`
}

// TableName specifies the table name for DischargeBilling model
func (DischargeBilling) TableName() string {
	return "discharge_billings"
}
