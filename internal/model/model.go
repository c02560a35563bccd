// Package model defines the shelf-side data types shared across the app.
package model

// Comic is one comic on the shelf together with its chapter list.
type Comic struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Authors []string `json:"authors,omitempty"`
	Tags    []string `json:"tags,omitempty"`

	Chapters []ChapterInfo `json:"chapters"`

	// Downloaded is computed from the local library and omitted when
	// the comic is serialized into metadata.json.
	Downloaded bool `json:"downloaded,omitempty"`
}

// ChapterInfo is one chapter row inside a Comic.
type ChapterInfo struct {
	ChapterID int64  `json:"chapter_id"`
	Title     string `json:"title"`
	Order     int    `json:"order"`

	Downloaded bool `json:"downloaded,omitempty"`
}

// Chapter lookups the chapter with the given ID.
func (c *Comic) Chapter(chapterID int64) (ChapterInfo, bool) {
	for _, ch := range c.Chapters {
		if ch.ChapterID == chapterID {
			return ch, true
		}
	}
	return ChapterInfo{}, false
}

// HasDownloadedChapter reports whether at least one chapter exists locally.
func (c *Comic) HasDownloadedChapter() bool {
	for _, ch := range c.Chapters {
		if ch.Downloaded {
			return true
		}
	}
	return false
}

// UndownloadedChapterIDs returns the IDs of chapters not yet in the library,
// in reading order.
func (c *Comic) UndownloadedChapterIDs() []int64 {
	var ids []int64
	for _, ch := range c.Chapters {
		if !ch.Downloaded {
			ids = append(ids, ch.ChapterID)
		}
	}
	return ids
}

// Chapter carries the ordered page-image URLs for one chapter.
type Chapter struct {
	ChapterID int64    `json:"chapter_id"`
	ComicID   int64    `json:"comic_id"`
	Title     string   `json:"title"`
	Pages     []string `json:"pages"`
}

// FavoriteEntry is one comic as listed in a favorites folder page.
// The shelf sends favorite IDs as strings.
type FavoriteEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// FavoritePage is one page of a favorites folder. Total arrives as a
// string on the wire.
type FavoritePage struct {
	List     []FavoriteEntry `json:"list"`
	FolderID int64           `json:"folder_id"`
	Total    string          `json:"total"`
	Count    int64           `json:"count"`
}

// UserProfile describes the logged-in shelf account.
type UserProfile struct {
	UID       int64  `json:"uid"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// SearchHit is one row of a search result page.
type SearchHit struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Author  string `json:"author,omitempty"`
	Preview string `json:"preview,omitempty"`
}

// SearchPage is a page of search hits.
type SearchPage struct {
	Hits  []SearchHit `json:"hits"`
	Page  int64       `json:"page"`
	Total int64       `json:"total"`
}

// SearchResult is what a search returns: either a page of hits, or a
// single comic when the keyword was a comic ID the shelf resolved
// directly. Exactly one field is set.
type SearchResult struct {
	Page  *SearchPage
	Comic *Comic
}

// ToggleType reports which way a favorite toggle went.
type ToggleType string

const (
	ToggleAdd    ToggleType = "add"
	ToggleRemove ToggleType = "remove"
)

// ToggleFavoriteResult is the shelf's answer to a favorite toggle.
type ToggleFavoriteResult struct {
	Type ToggleType `json:"type"`
	Msg  string     `json:"msg,omitempty"`
}

// FavoriteSort orders a favorites folder listing.
type FavoriteSort string

const (
	// FavoriteSortRecent lists most recently favorited first.
	FavoriteSortRecent FavoriteSort = "recent"
	// FavoriteSortUpdated lists most recently updated first.
	FavoriteSortUpdated FavoriteSort = "updated"
)

// SearchSort orders search results.
type SearchSort string

const (
	SearchSortLatest SearchSort = "latest"
	SearchSortViews  SearchSort = "views"
	SearchSortLikes  SearchSort = "likes"
)
