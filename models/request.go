package models

type NewMemoryRequest struct {
	Date        string `json:"date" binding:"required"`
	Description string `json:"description" binding:"required"`
}
