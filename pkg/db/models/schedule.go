package models

import (
	"time"

	"github.com/google/uuid"
)

// Schedule is a recurring class slot in an environment. Times are "HH:MM:SS";
// DayOfWeek is ISO numbered, 1 = Monday through 7 = Sunday.
type Schedule struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EnvironmentID uuid.UUID  `gorm:"type:uuid;not null"`
	InstructorID  *uuid.UUID `gorm:"type:uuid"`
	Program       string     `gorm:"type:text;not null"`
	Ficha         string     `gorm:"type:text;not null"`
	StartTime     string     `gorm:"type:varchar(8);not null"`
	EndTime       string     `gorm:"type:varchar(8);not null"`
	DayOfWeek     int        `gorm:"not null"`
	IsActive      bool       `gorm:"not null;default:true"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime"`
}

// ISOWeekday converts a time.Weekday to the schedule numbering.
func ISOWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}
