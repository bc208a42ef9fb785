package model

import (
	"fmt"
	"time"
)

// Community is a remote community registered for federation. Everything except
// (Name, InstanceID) is a cache of remote truth fetched on demand; the pair is
// the authoritative identity.
type Community struct {
	Id         int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `json:"name" gorm:"column:name;uniqueIndex:uk_community_name_instance"`
	InstanceID int64     `json:"instance_id" gorm:"column:instance_id;uniqueIndex:uk_community_name_instance"`
	Instance   *Instance `json:"instance,omitempty" gorm:"foreignKey:InstanceID"`
	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create;autoCreateTime"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified;autoUpdateTime"`
}

func (Community) TableName() string {
	return "community"
}

// FullName is the federation-qualified name, e.g. "linux@lemmy.example".
func (c *Community) FullName() string {
	if c.Instance == nil {
		return c.Name
	}
	return fmt.Sprintf("%s@%s", c.Name, c.Instance.Host)
}
