package handler

// MessageResponse answers operations that have no resource to return.
type MessageResponse struct {
	Message string `json:"message"`
}

func NewMessageResponse(message string) *MessageResponse {
	return &MessageResponse{Message: message}
}
