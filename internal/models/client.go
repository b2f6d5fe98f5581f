package models

import "time"

type Client struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Name   string `gorm:"type:varchar(200);not null"`
	Email  string `gorm:"type:varchar(200);index"`
	Active bool   `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Client) TableName() string {
	return "clients"
}
