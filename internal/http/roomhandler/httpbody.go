package roomhandler

type HealthResponse struct {
	Status   string `json:"status"   example:"ok"`
	Sessions int    `json:"sessions" example:"3"`
} // @name HealthResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
