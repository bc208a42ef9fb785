package model

import (
	"time"
)

type Software string

const (
	SoftwareLemmy       Software = "LEMMY"
	SoftwareMbin        Software = "MBIN"
	SoftwareActivityPub Software = "ACTIVITY_PUB"
)

// SeedOnly reports whether the software can only offer content. Generic
// ActivityPub servers have no authenticated follow API, so they can never
// subscribe on their own behalf.
func (s Software) SeedOnly() bool {
	return s == SoftwareActivityPub
}

type FederationMode string

const (
	ModeNormal FederationMode = "NORMAL"
	ModeSeed   FederationMode = "SEED"  // only offers content, never subscribes
	ModeLeech  FederationMode = "LEECH" // only subscribes, never offers
)

type NSFWPolicy string

const (
	NSFWAllow NSFWPolicy = "ALLOW"
	NSFWBlock NSFWPolicy = "BLOCK"
	NSFWOnly  NSFWPolicy = "ONLY"
)

type FediseerUsage string

const (
	FediseerNone          FediseerUsage = "NONE"
	FediseerBlacklistOnly FediseerUsage = "BLACKLIST_ONLY"
	FediseerWhitelistOnly FediseerUsage = "WHITELIST_ONLY"
)

type Instance struct {
	Id            int64          `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Host          string         `json:"host" gorm:"column:host;uniqueIndex"`
	Enabled       bool           `json:"enabled" gorm:"column:enabled"`
	Approved      bool           `json:"approved" gorm:"column:approved"`
	Software      Software       `json:"software" gorm:"column:software"`
	ClientID      *string        `json:"client_id,omitempty" gorm:"column:client_id"`
	ClientSecret  *string        `json:"-" gorm:"column:client_secret"`
	Mode          FederationMode `json:"mode" gorm:"column:mode"`
	NSFW          NSFWPolicy     `json:"nsfw" gorm:"column:nsfw"`
	Fediseer      FediseerUsage  `json:"fediseer" gorm:"column:fediseer"`
	CrossSoftware bool           `json:"cross_software" gorm:"column:cross_software"`
	AutoAdd       bool           `json:"auto_add" gorm:"column:auto_add"`
	Allowed       []*Instance    `json:"allowed,omitempty" gorm:"many2many:instance_allowed;joinForeignKey:instance_id;joinReferences:allowed_id"`
	Blocked       []*Instance    `json:"blocked,omitempty" gorm:"many2many:instance_blocked;joinForeignKey:instance_id;joinReferences:blocked_id"`
	CreateTime    time.Time      `json:"create_time" gorm:"column:gmt_create;autoCreateTime"`
	UpdateTime    time.Time      `json:"update_time" gorm:"column:gmt_modified;autoUpdateTime"`
}

func (Instance) TableName() string {
	return "instance"
}

func (i *Instance) HasCredentials() bool {
	return i.ClientID != nil && *i.ClientID != "" && i.ClientSecret != nil && *i.ClientSecret != ""
}

func (i *Instance) Allows(other *Instance) bool {
	for _, a := range i.Allowed {
		if a.Id == other.Id {
			return true
		}
	}
	return false
}

func (i *Instance) Blocks(other *Instance) bool {
	for _, b := range i.Blocked {
		if b.Id == other.Id {
			return true
		}
	}
	return false
}
