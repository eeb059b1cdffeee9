package models

type QualityTier string

const (
	QualityOriginal QualityTier = "original"
	QualityHD       QualityTier = "hd"
	QualitySD       QualityTier = "sd"
)

// Variant is one renderable resolution of a piece of content.
type Variant struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Src    string `json:"src"`
	Label  string `json:"label"`
}

// Resolution ranks variants by pixel count.
func (v Variant) Resolution() int64 {
	return int64(v.Width) * int64(v.Height)
}

// Item is one entry of composite content (e.g. a carousel post), carrying
// its own independently-resolutioned variant list.
type Item struct {
	ID       string    `json:"id"`
	Variants []Variant `json:"variants"`
}
