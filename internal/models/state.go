package models

// FilterState holds the transient catalog filters chosen by a viewer
type FilterState struct {
	SearchTerm        string      `json:"searchTerm"`
	SelectedBelts     []BeltLevel `json:"selectedBelts"`
	ShowFavoritesOnly bool        `json:"showFavoritesOnly"`
}

// ClientState is the single record persisted per viewer
type ClientState struct {
	Favorites     []string                 `json:"favorites"`
	DarkMode      bool                     `json:"darkMode"`
	VideoProgress map[string]VideoProgress `json:"videoProgress"`
}

// NewClientState returns an empty state with initialized collections
func NewClientState() *ClientState {
	return &ClientState{
		Favorites:     []string{},
		VideoProgress: make(map[string]VideoProgress),
	}
}

// Normalize replaces nil collections so the state always encodes as arrays/objects
func (s *ClientState) Normalize() {
	if s.Favorites == nil {
		s.Favorites = []string{}
	}
	if s.VideoProgress == nil {
		s.VideoProgress = make(map[string]VideoProgress)
	}
}
