package v1

import "fedisync/internal/model"

type RegisterInstanceRequest struct {
	Host string `json:"host" binding:"required,hostname" example:"lemmy.example.org"`
}

type UpdateInstanceRequest struct {
	Enabled       *bool   `json:"enabled"`
	ClientID      *string `json:"client_id"`
	ClientSecret  *string `json:"client_secret"`
	Mode          *string `json:"mode" binding:"omitempty,oneof=NORMAL SEED LEECH"`
	NSFW          *string `json:"nsfw" binding:"omitempty,oneof=ALLOW BLOCK ONLY"`
	Fediseer      *string `json:"fediseer" binding:"omitempty,oneof=NONE BLACKLIST_ONLY WHITELIST_ONLY"`
	CrossSoftware *bool   `json:"cross_software"`
	AutoAdd       *bool   `json:"auto_add"`
}

type ListInstancesRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type InstanceItem struct {
	Id            int64    `json:"id"`
	Host          string   `json:"host"`
	Enabled       bool     `json:"enabled"`
	Approved      bool     `json:"approved"`
	Software      string   `json:"software"`
	HasSetup      bool     `json:"has_setup"`
	Mode          string   `json:"mode"`
	NSFW          string   `json:"nsfw"`
	Fediseer      string   `json:"fediseer"`
	CrossSoftware bool     `json:"cross_software"`
	AutoAdd       bool     `json:"auto_add"`
	Allowed       []string `json:"allowed"`
	Blocked       []string `json:"blocked"`
}

type ListInstancesResponseData struct {
	Items []InstanceItem `json:"items"`
	Total int64          `json:"total"`
}

type ListInstancesResponse struct {
	Response
	Data ListInstancesResponseData
}

type AllowInstanceRequest struct {
	Host string `json:"host" binding:"required,hostname" example:"mbin.example.org"`
}

type BlockInstanceRequest struct {
	Host string `json:"host" binding:"required,hostname" example:"mbin.example.org"`
}

func ToInstanceItem(instance *model.Instance) InstanceItem {
	item := InstanceItem{
		Id:            instance.Id,
		Host:          instance.Host,
		Enabled:       instance.Enabled,
		Approved:      instance.Approved,
		Software:      string(instance.Software),
		HasSetup:      instance.HasCredentials(),
		Mode:          string(instance.Mode),
		NSFW:          string(instance.NSFW),
		Fediseer:      string(instance.Fediseer),
		CrossSoftware: instance.CrossSoftware,
		AutoAdd:       instance.AutoAdd,
		Allowed:       make([]string, 0, len(instance.Allowed)),
		Blocked:       make([]string, 0, len(instance.Blocked)),
	}
	for _, a := range instance.Allowed {
		item.Allowed = append(item.Allowed, a.Host)
	}
	for _, b := range instance.Blocked {
		item.Blocked = append(item.Blocked, b.Host)
	}
	return item
}
