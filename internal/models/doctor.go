package models

// Doctor is the profile attached to a doctor's User. Approved gates dashboard access.
type Doctor struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     uint   `gorm:"not null;uniqueIndex" json:"user_id"`
	Department string `gorm:"size:100;not null;index" json:"department"`
	Mobile     string `gorm:"size:20" json:"mobile"`
	Address    string `gorm:"size:255" json:"address"`
	Approved   bool   `gorm:"not null;default:false;index" json:"approved"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
}

// TableName specifies the table name for Doctor model
func (Doctor) TableName() string {
	return "doctors"
}

// Departments offered at signup
var Departments = []string{
	"Cardiologist",
	"Dermatologists",
	"Emergency Medicine Specialists",
	"Allergists/Immunologists",
	"Anesthesiologists",
	"Colon and Rectal Surgeons",
}
