package model

import (
	"time"
)

// User is an instance administrator account identified by username@host.
type User struct {
	Id         int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Username   string    `json:"username" gorm:"column:username;uniqueIndex:uk_user_name_host"`
	Host       string    `json:"host" gorm:"column:host;uniqueIndex:uk_user_name_host"`
	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create;autoCreateTime"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified;autoUpdateTime"`
}

func (User) TableName() string {
	return "user"
}
