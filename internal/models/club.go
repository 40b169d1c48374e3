package models

import "strings"

// Club is a venue as exposed by the backend. Read-only on this side.
type Club struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Address         string   `json:"address"`
	City            string   `json:"city"`
	ProfileImageURL string   `json:"profileImageUrl"`
	GoogleMapsURL   string   `json:"googleMapsUrl"`
	MusicTypes      []string `json:"musicType"`
	OpenDays        []string `json:"openDays"`
	OpenHours       string   `json:"openHours"`
	DressCode       string   `json:"dressCode"`
	MinimumAge      int      `json:"minimumAge"`
	Priority        int      `json:"priority"`
	IsActive        bool     `json:"isActive"`
}

// OpensOn reports whether the club lists the given weekday ("monday", "Friday", ...).
func (c Club) OpensOn(weekday string) bool {
	for _, d := range c.OpenDays {
		if strings.EqualFold(d, weekday) {
			return true
		}
	}
	return false
}

// ClubFilter narrows the club listing. Empty fields are ignored.
type ClubFilter struct {
	Query     string `json:"q,omitempty"`
	City      string `json:"city,omitempty"`
	MusicType string `json:"musicType,omitempty"`
	Day       string `json:"day,omitempty"`
}

// Key returns a canonical representation used for caching and de-duplication.
func (f ClubFilter) Key() string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return "q=" + norm(f.Query) + "&city=" + norm(f.City) + "&music=" + norm(f.MusicType) + "&day=" + norm(f.Day)
}

func (f ClubFilter) IsEmpty() bool {
	return strings.TrimSpace(f.Query) == "" && f.City == "" && f.MusicType == "" && f.Day == ""
}

// Event is a dated happening at a club.
type Event struct {
	ID            string `json:"id"`
	ClubID        string `json:"clubId"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	BannerURL     string `json:"bannerUrl"`
	AvailableDate string `json:"availableDate"` // YYYY-MM-DD
	OpenHours     string `json:"openHours"`
}

// Ad is a carousel entry shown on the home page.
type Ad struct {
	ID        string `json:"id"`
	ImageURL  string `json:"imageUrl"`
	TargetURL string `json:"targetUrl"`
	ClubID    string `json:"clubId"`
	Priority  int    `json:"priority"`
}
