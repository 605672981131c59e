package model

import "time"

// PushSubscription is a staff device registered for Web Push.
type PushSubscription struct {
	ID         int64     `json:"id"`
	StaffName  string    `json:"staff_name"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
