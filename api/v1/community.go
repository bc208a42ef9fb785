package v1

type AddCommunityRequest struct {
	// FullName is the federation-qualified name, e.g. "linux@lemmy.example.org"
	FullName string `json:"full_name" binding:"required" example:"linux@lemmy.example.org"`
}

type ListCommunitiesRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Host     string `form:"host"`
}

type CommunityItem struct {
	Id       int64  `json:"id"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	FullName string `json:"full_name"`
}

type ListCommunitiesResponseData struct {
	Items []CommunityItem `json:"items"`
	Total int64           `json:"total"`
}

type ListCommunitiesResponse struct {
	Response
	Data ListCommunitiesResponseData
}

type FollowStatusItem struct {
	InstanceHost string  `json:"instance_host"`
	Status       string  `json:"status"`
	AttemptCount int     `json:"attempt_count"`
	ErrorReason  *string `json:"error_reason,omitempty"`
}

type GetCommunityFollowsResponseData struct {
	Community CommunityItem      `json:"community"`
	Follows   []FollowStatusItem `json:"follows"`
}

type GetCommunityFollowsResponse struct {
	Response
	Data GetCommunityFollowsResponseData
}
