package models

import "time"

// Patient is the profile attached to a patient's User.
//
// AssignedDoctorID holds the assigned doctor's user id. It is not a foreign
// key; readers resolve it and fail if the doctor is gone or unapproved.
type Patient struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	AssignedDoctorID uint      `gorm:"not null;index" json:"assigned_doctor_id"`
	Symptoms         string    `gorm:"size:255;not null" json:"symptoms"`
	Mobile           string    `gorm:"size:20" json:"mobile"`
	Address          string    `gorm:"size:255" json:"address"`
	AdmitDate        time.Time `gorm:"type:date;not null" json:"admit_date"`
	Approved         bool      `gorm:"not null;default:false;index" json:"approved"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
}

// TableName specifies the table name for Patient model
func (Patient) TableName() string {
	return "patients"
}
