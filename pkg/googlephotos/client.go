package googlephotos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/bstardust/gphotos-amazon-transfer/internal/fshelper"
	"github.com/bstardust/gphotos-amazon-transfer/internal/logger"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/common"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/models"
	"golang.org/x/oauth2"
)

const (
	apiBaseURL = "https://photoslibrary.googleapis.com/v1"
	authURL    = "https://accounts.google.com/o/oauth2/auth"
	tokenURL   = "https://oauth2.googleapis.com/token"

	scopeReadOnly = "https://www.googleapis.com/auth/photoslibrary.readonly"

	defaultPageSize = 50
)

// Config represents the configuration for a Google Photos client
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenPath    string
}

// Client talks to the Google Photos Library API. The Photos surface is not
// published in the Google API SDK, so requests go over REST directly with an
// oauth2-authenticated HTTP client.
type Client struct {
	config  Config
	baseURL string
	httpc   *http.Client
}

// New creates an unauthenticated client. Call Authenticate before use.
func New(cfg Config) *Client {
	return &Client{
		config:  cfg,
		baseURL: apiBaseURL,
	}
}

// Authenticate loads the stored OAuth token and builds the API session.
// Obtaining the token in the first place is the setup flow's job; a missing
// or unrefreshable token is fatal here.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return &common.AuthError{Vendor: "google", Message: "client id and secret are required"}
	}

	token, err := loadToken(c.config.TokenPath)
	if err != nil {
		return &common.AuthError{
			Vendor:  "google",
			Message: fmt.Sprintf("no stored token at %s, run the setup flow first: %v", c.config.TokenPath, err),
		}
	}

	oc := &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		RedirectURL:  c.config.RedirectURI,
		Scopes:       []string{scopeReadOnly},
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}

	source := oc.TokenSource(ctx, token)
	fresh, err := source.Token()
	if err != nil {
		return &common.AuthError{Vendor: "google", Message: fmt.Sprintf("token refresh failed: %v", err)}
	}

	// Persist the refreshed token so the next run skips the refresh.
	if fresh.AccessToken != token.AccessToken {
		if err := saveToken(c.config.TokenPath, fresh); err != nil {
			logger.Warn("Could not save refreshed Google token: %v", err)
		}
	}

	c.httpc = oauth2.NewClient(ctx, source)
	logger.Info("Successfully authenticated with the Google Photos API")
	return nil
}

// ListMediaItems returns one page of media items and the next page token.
func (c *Client) ListMediaItems(ctx context.Context, pageSize int, pageToken, albumID string) ([]models.MediaItem, string, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var req *http.Request
	var err error

	if albumID != "" {
		// Album-scoped listing goes through mediaItems:search.
		body, merr := json.Marshal(searchRequest{
			AlbumID:   albumID,
			PageSize:  pageSize,
			PageToken: pageToken,
		})
		if merr != nil {
			return nil, "", fmt.Errorf("failed to encode search request: %w", merr)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mediaItems:search", bytes.NewReader(body))
		if req != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	} else {
		query := url.Values{}
		query.Set("pageSize", strconv.Itoa(pageSize))
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/mediaItems?"+query.Encode(), nil)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to build media items request: %w", err)
	}

	resp, err := c.do(req, "media item listing")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var page mediaItemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("failed to decode media items response: %w", err)
	}

	items := make([]models.MediaItem, 0, len(page.MediaItems))
	for _, raw := range page.MediaItems {
		items = append(items, raw.toModel())
	}

	logger.Debug("Fetched %d media items (album=%q)", len(items), albumID)
	return items, page.NextPageToken, nil
}

// ListAlbums returns all albums in the library.
func (c *Client) ListAlbums(ctx context.Context) ([]models.Album, error) {
	var albums []models.Album
	pageToken := ""

	for {
		query := url.Values{}
		query.Set("pageSize", strconv.Itoa(defaultPageSize))
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/albums?"+query.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build albums request: %w", err)
		}

		resp, err := c.do(req, "album listing")
		if err != nil {
			return nil, err
		}

		var page albumsResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode albums response: %w", err)
		}

		for _, raw := range page.Albums {
			albums = append(albums, raw.toModel())
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	logger.Info("Fetched %d albums from Google Photos", len(albums))
	return albums, nil
}

// DownloadItem fetches the item's bytes into dir and returns the local path.
func (c *Client) DownloadItem(ctx context.Context, item models.MediaItem, dir string) (string, error) {
	// The base URL alone serves a scaled preview; the =d / =dv suffix
	// requests the original bytes.
	var downloadURL string
	switch {
	case item.IsVideo():
		downloadURL = item.BaseURL + "=dv"
	case item.IsImage():
		downloadURL = item.BaseURL + "=d"
	default:
		return "", &common.DownloadError{
			Filename: item.Filename,
			Err:      fmt.Errorf("unsupported media type %s", item.MimeType),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := c.do(req, "media item download")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	path := fshelper.UniquePath(dir, item.Filename)
	file, err := os.Create(path)
	if err != nil {
		return "", &common.DownloadError{Filename: item.Filename, Err: err}
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		fshelper.RemoveQuiet(path)
		return "", &common.DownloadError{Filename: item.Filename, Err: err}
	}
	if err := file.Close(); err != nil {
		fshelper.RemoveQuiet(path)
		return "", &common.DownloadError{Filename: item.Filename, Err: err}
	}

	logger.Debug("Downloaded %s to %s", item.Filename, path)
	return path, nil
}

// do executes a request and maps non-2xx responses onto the error taxonomy.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &common.TransientNetworkError{Op: op, Err: err}
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, responseError(resp, op)
	}
	return resp, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}

type searchRequest struct {
	AlbumID   string `json:"albumId"`
	PageSize  int    `json:"pageSize"`
	PageToken string `json:"pageToken,omitempty"`
}

type mediaItemsResponse struct {
	MediaItems    []mediaItemJSON `json:"mediaItems"`
	NextPageToken string          `json:"nextPageToken"`
}

type mediaItemJSON struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	BaseURL       string `json:"baseUrl"`
	MimeType      string `json:"mimeType"`
	MediaMetadata struct {
		CreationTime time.Time `json:"creationTime"`
		Width        string    `json:"width"`
		Height       string    `json:"height"`
	} `json:"mediaMetadata"`
}

func (j mediaItemJSON) toModel() models.MediaItem {
	width, _ := strconv.ParseInt(j.MediaMetadata.Width, 10, 64)
	height, _ := strconv.ParseInt(j.MediaMetadata.Height, 10, 64)
	return models.MediaItem{
		ID:           j.ID,
		Filename:     j.Filename,
		MimeType:     j.MimeType,
		BaseURL:      j.BaseURL,
		CreationTime: j.MediaMetadata.CreationTime,
		Width:        width,
		Height:       height,
	}
}

type albumsResponse struct {
	Albums        []albumJSON `json:"albums"`
	NextPageToken string      `json:"nextPageToken"`
}

type albumJSON struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ProductURL      string `json:"productUrl"`
	MediaItemsCount string `json:"mediaItemsCount"`
}

func (j albumJSON) toModel() models.Album {
	count, _ := strconv.Atoi(j.MediaItemsCount)
	return models.Album{
		ID:         j.ID,
		Title:      j.Title,
		ProductURL: j.ProductURL,
		ItemCount:  count,
	}
}
