package model

import (
	"time"
)

type FollowStatus string

const (
	FollowStatusWaiting         FollowStatus = "WAITING"
	FollowStatusInProgress      FollowStatus = "IN_PROGRESS"
	FollowStatusNotAvailable    FollowStatus = "NOT_AVAILABLE"
	FollowStatusNotAllowed      FollowStatus = "NOT_ALLOWED"
	FollowStatusFederatedByBot  FollowStatus = "FEDERATED_BY_BOT"
	FollowStatusFederatedByUser FollowStatus = "FEDERATED_BY_USER"
	FollowStatusError           FollowStatus = "ERROR"
)

// PendingStatuses are the statuses the reconciliation sweep keeps re-checking.
// FEDERATED_BY_BOT stays in the set so a human subscribing later is noticed.
var PendingStatuses = []FollowStatus{
	FollowStatusWaiting,
	FollowStatusInProgress,
	FollowStatusNotAvailable,
	FollowStatusError,
	FollowStatusFederatedByBot,
}

// CommunityFollow is the reconciliation unit: the desired linkage between a
// home instance and a remote community. Actual remote subscription state is
// fetched live on every evaluation, never trusted from a prior run.
type CommunityFollow struct {
	Id           int64        `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	InstanceID   int64        `json:"instance_id" gorm:"column:instance_id;uniqueIndex:uk_follow_instance_community"`
	CommunityID  int64        `json:"community_id" gorm:"column:community_id;uniqueIndex:uk_follow_instance_community"`
	Instance     *Instance    `json:"instance,omitempty" gorm:"foreignKey:InstanceID"`
	Community    *Community   `json:"community,omitempty" gorm:"foreignKey:CommunityID"`
	Status       FollowStatus `json:"status" gorm:"column:status;index"`
	AttemptCount int          `json:"attempt_count" gorm:"column:attempt_count"`
	ErrorReason  *string      `json:"error_reason,omitempty" gorm:"column:error_reason"`
	CreateTime   time.Time    `json:"create_time" gorm:"column:gmt_create;autoCreateTime"`
	UpdateTime   time.Time    `json:"update_time" gorm:"column:gmt_modified;autoUpdateTime;index"`
}

func (CommunityFollow) TableName() string {
	return "community_follow"
}
