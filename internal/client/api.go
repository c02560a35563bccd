package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tanko-dl/tanko/internal/model"
)

// Login authenticates against the shelf and keeps the returned session
// token for subsequent requests.
func (c *Client) Login(ctx context.Context, username, password string) (*model.UserProfile, error) {
	var resp struct {
		Token   string            `json:"token"`
		Profile model.UserProfile `json:"profile"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.postJSON(ctx, "/login", body, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return nil, errors.New("login: shelf returned no session token")
	}
	c.SetToken(resp.Token)
	return &resp.Profile, nil
}

// GetUserProfile returns the profile of the logged-in account.
func (c *Client) GetUserProfile(ctx context.Context) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := c.getJSON(ctx, "/user/profile", &profile); err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return &profile, nil
}

// Search queries the shelf. When the keyword is a comic ID the shelf
// resolves it directly and the result carries the comic instead of a hit
// page.
func (c *Client) Search(ctx context.Context, keyword string, page int64, sort model.SearchSort) (*model.SearchResult, error) {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("page", strconv.FormatInt(page, 10))
	q.Set("sort", string(sort))

	var envelope struct {
		Comic   *model.Comic      `json:"comic,omitempty"`
		Results *model.SearchPage `json:"results,omitempty"`
	}
	if err := c.getJSON(ctx, "/search?"+q.Encode(), &envelope); err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}

	switch {
	case envelope.Comic != nil:
		return &model.SearchResult{Comic: envelope.Comic}, nil
	case envelope.Results != nil:
		return &model.SearchResult{Page: envelope.Results}, nil
	default:
		return nil, fmt.Errorf("search %q: empty response", keyword)
	}
}

// GetComic fetches a comic and its chapter list.
func (c *Client) GetComic(ctx context.Context, comicID int64) (*model.Comic, error) {
	var comic model.Comic
	path := fmt.Sprintf("/comics/%d", comicID)
	if err := c.getJSON(ctx, path, &comic); err != nil {
		return nil, fmt.Errorf("get comic %d: %w", comicID, err)
	}
	return &comic, nil
}

// GetChapter fetches the ordered page-image URLs of one chapter.
func (c *Client) GetChapter(ctx context.Context, chapterID int64) (*model.Chapter, error) {
	var chapter model.Chapter
	path := fmt.Sprintf("/chapters/%d", chapterID)
	if err := c.getJSON(ctx, path, &chapter); err != nil {
		return nil, fmt.Errorf("get chapter %d: %w", chapterID, err)
	}
	return &chapter, nil
}

// GetImage downloads one page image. imageURL may point at a different
// host than the API.
func (c *Client) GetImage(ctx context.Context, imageURL string) ([]byte, error) {
	data, err := c.do(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	return data, nil
}

// GetFavoritePage fetches one page of a favorites folder.
func (c *Client) GetFavoritePage(ctx context.Context, folderID, page int64, sort model.FavoriteSort) (*model.FavoritePage, error) {
	q := url.Values{}
	q.Set("folder", strconv.FormatInt(folderID, 10))
	q.Set("page", strconv.FormatInt(page, 10))
	q.Set("sort", string(sort))

	var fav model.FavoritePage
	if err := c.getJSON(ctx, "/favorites?"+q.Encode(), &fav); err != nil {
		return nil, fmt.Errorf("get favorites page %d: %w", page, err)
	}
	return &fav, nil
}

// ToggleFavorite flips the favorite state of a comic and reports which
// way it went.
func (c *Client) ToggleFavorite(ctx context.Context, comicID int64) (*model.ToggleFavoriteResult, error) {
	var result model.ToggleFavoriteResult
	body := map[string]int64{"comic_id": comicID}
	if err := c.postJSON(ctx, "/favorites/toggle", body, &result); err != nil {
		return nil, fmt.Errorf("toggle favorite %d: %w", comicID, err)
	}
	return &result, nil
}
