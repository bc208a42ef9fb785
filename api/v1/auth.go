package v1

type RequestLoginCodeRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Host     string `json:"host" binding:"required,hostname" example:"lemmy.example.org"`
}

type VerifyLoginCodeRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Host     string `json:"host" binding:"required,hostname" example:"lemmy.example.org"`
	Code     string `json:"code" binding:"required"`
}

type VerifyLoginCodeResponseData struct {
	AccessToken string `json:"accessToken"`
}

type VerifyLoginCodeResponse struct {
	Response
	Data VerifyLoginCodeResponseData
}
