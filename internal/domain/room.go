package domain

// RoomID names a collaborative drawing context. A room exists only while
// it has at least one member session.
type RoomID string

type RoomInfo struct {
	ID          RoomID `json:"roomId"`
	MemberCount int    `json:"memberCount"`
}
