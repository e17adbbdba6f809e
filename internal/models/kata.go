package models

// Kata is one classified instructional video of the catalog
type Kata struct {
	ID          string    `json:"id" yaml:"id"`
	KataName    string    `json:"kataName" yaml:"kataName"`
	BeltLevel   BeltLevel `json:"beltLevel" yaml:"beltLevel"`
	SourceID    string    `json:"driveId" yaml:"driveId"`
	SourceURL   string    `json:"driveUrl" yaml:"driveUrl"`
	Category    Category  `json:"category" yaml:"category"`
	Order       *int      `json:"order" yaml:"order"` // nil when the file name has no leading number
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// HasOrder reports whether the kata carries a numeric order
func (k *Kata) HasOrder() bool {
	return k.Order != nil
}

// SourceFile is a raw entry of the remote video folder listing
type SourceFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"webViewLink"`
}

// KataView is a catalog entry annotated for a specific viewer
type KataView struct {
	Kata
	Favorite bool           `json:"favorite"`
	Locked   bool           `json:"locked"`
	Progress *VideoProgress `json:"progress,omitempty"`
}
