package models

import "time"

// Appointment between a doctor and a patient, both referenced by user id.
// DoctorName and PatientName are copied at creation and never refreshed.
type Appointment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	DoctorID        uint      `gorm:"not null;index" json:"doctor_id"`
	PatientID       uint      `gorm:"not null;index" json:"patient_id"`
	DoctorName      string    `gorm:"size:100" json:"doctor_name"`
	PatientName     string    `gorm:"size:100" json:"patient_name"`
	Description     string    `gorm:"type:text;not null" json:"description"`
	AppointmentDate time.Time `gorm:"autoCreateTime" json:"appointment_date"`
	Approved        bool      `gorm:"not null;default:false;index" json:"approved"`
}

// TableName specifies the table name for Appointment model
func (Appointment) TableName() string {
	return "appointments"
}
