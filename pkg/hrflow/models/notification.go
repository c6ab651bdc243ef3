package models

import "time"

type NotificationApiResponse struct {
	ID          int64     `json:"id"`
	InstanceID  int64     `json:"instanceId"`
	RecipientID string    `json:"recipientId"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	Created     time.Time `json:"created"`
}
