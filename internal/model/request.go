package model

type SubmitRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
}

type CreateSessionRequest struct {
	Title string `json:"title"`
}
