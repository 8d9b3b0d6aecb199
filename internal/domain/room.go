package domain

import (
	"time"
)

// RoomCategory classifies a chatroom for discovery.
type RoomCategory string

const (
	CategoryGeneral  RoomCategory = "general"
	CategoryGaming   RoomCategory = "gaming"
	CategoryMusic    RoomCategory = "music"
	CategoryStudy    RoomCategory = "study"
	CategoryRegional RoomCategory = "regional"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c RoomCategory) bool {
	switch c {
	case CategoryGeneral, CategoryGaming, CategoryMusic, CategoryStudy, CategoryRegional:
		return true
	}
	return false
}

// RoomRegion scopes a chatroom to a geographic audience.
type RoomRegion string

const (
	RegionGlobal   RoomRegion = "global"
	RegionAmericas RoomRegion = "americas"
	RegionEurope   RoomRegion = "europe"
	RegionAsia     RoomRegion = "asia"
	RegionOceania  RoomRegion = "oceania"
)

// ValidRegion reports whether r is one of the known regions.
func ValidRegion(r RoomRegion) bool {
	switch r {
	case RegionGlobal, RegionAmericas, RegionEurope, RegionAsia, RegionOceania:
		return true
	}
	return false
}

// Room is the static metadata of a chatroom. Immutable after creation
// except through the administrative path.
type Room struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Emoji     string       `json:"emoji"`
	Category  RoomCategory `json:"category"`
	Region    RoomRegion   `json:"region"`
	CreatedAt time.Time    `json:"created_at"`
}

// CreateRoomRequest is the administrative create payload.
type CreateRoomRequest struct {
	Name     string       `json:"name" binding:"required,min=1,max=100"`
	Emoji    string       `json:"emoji"`
	Category RoomCategory `json:"category" binding:"required"`
	Region   RoomRegion   `json:"region"`
}

// ListRoomsRequest carries pagination and filter parameters.
type ListRoomsRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Category string `form:"category"`
}

// ListRoomsResponse is a paginated room listing.
type ListRoomsResponse struct {
	Rooms      []Room `json:"rooms"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}
