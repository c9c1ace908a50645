package models

// SearchHit is a full-text match. Words carries <em> markers around the matched terms.
// Lower Rank is more relevant.
type SearchHit struct {
	Book    int     `json:"book"`
	Chapter int     `json:"chapter"`
	Verse   int     `json:"verse"`
	Words   string  `json:"words"`
	Rank    float64 `json:"rank"`
}

// SearchResult pairs a hit with the book it belongs to.
type SearchResult struct {
	Hit  SearchHit `json:"hit"`
	Book Book      `json:"book"`
}
