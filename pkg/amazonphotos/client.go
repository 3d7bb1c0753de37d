package amazonphotos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/bstardust/gphotos-amazon-transfer/internal/logger"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/common"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/models"
	"golang.org/x/oauth2"
)

const (
	driveBaseURL = "https://api.amazon.com/drive/v1"
	tokenURL     = "https://api.amazon.com/auth/o2/token"
)

// Config represents the configuration for an Amazon Photos client
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Client talks to the Amazon Drive API, which backs Amazon Photos. Albums are
// FOLDER nodes labeled ALBUM; media items are FILE nodes under the Photos
// folder.
type Client struct {
	config  Config
	baseURL string
	httpc   *http.Client

	photosFolderID string
}

// New creates an unauthenticated client. Call Authenticate before use.
func New(cfg Config) *Client {
	return &Client{
		config:  cfg,
		baseURL: driveBaseURL,
	}
}

// Authenticate mints an access token from the stored LWA refresh token.
// A rejected refresh token means the external setup flow must be re-run.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return &common.AuthError{Vendor: "amazon", Message: "client id and secret are required"}
	}
	if c.config.RefreshToken == "" {
		return &common.AuthError{Vendor: "amazon", Message: "no refresh token, run the setup flow first"}
	}

	oc := &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: tokenURL,
		},
	}

	source := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: c.config.RefreshToken})
	if _, err := source.Token(); err != nil {
		return &common.AuthError{
			Vendor:  "amazon",
			Message: fmt.Sprintf("refresh token rejected, re-run the setup flow: %v", err),
		}
	}

	c.httpc = oauth2.NewClient(ctx, source)
	logger.Info("Successfully authenticated with the Amazon Photos API")
	return nil
}

// CreateAlbum creates an album or returns the id of an existing one with the
// same name.
func (c *Client) CreateAlbum(ctx context.Context, name string) (string, error) {
	existing, err := c.findAlbumByName(ctx, name)
	if err != nil {
		return "", err
	}
	if existing != "" {
		logger.Info("Album %q already exists with id %s, reusing it", name, existing)
		return existing, nil
	}

	parentID, err := c.photosFolder(ctx)
	if err != nil {
		return "", err
	}

	var created nodeJSON
	err = c.doJSON(ctx, http.MethodPost, c.baseURL+"/nodes", createNodeRequest{
		Name:    name,
		Kind:    "FOLDER",
		Parents: []string{parentID},
		Labels:  []string{"ALBUM"},
	}, &created, "album creation")
	if err != nil {
		return "", err
	}

	logger.Info("Created album %q with id %s", name, created.ID)
	return created.ID, nil
}

// UploadItem uploads the file at localPath and returns the new node id.
// The upload is a three-step flow: create the upload session, PUT the bytes
// against the returned URL, then PATCH the node properties.
func (c *Client) UploadItem(ctx context.Context, localPath string, properties map[string]string) (string, error) {
	filename := filepath.Base(localPath)

	info, err := os.Stat(localPath)
	if err != nil {
		return "", &common.UploadError{Filename: filename, Err: err}
	}

	parentID, err := c.photosFolder(ctx)
	if err != nil {
		return "", err
	}

	var session uploadSessionJSON
	err = c.doJSON(ctx, http.MethodPost, c.baseURL+"/files/upload", uploadSessionRequest{
		Name:        filename,
		ContentType: DetectContentType(localPath),
		Parents:     []string{parentID},
		Size:        info.Size(),
	}, &session, "upload session creation")
	if err != nil {
		if common.IsDuplicate(err) {
			return "", &common.DuplicateError{Filename: filename}
		}
		return "", err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", &common.UploadError{Filename: filename, Err: err}
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.UploadURL, file)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", DetectContentType(localPath))
	req.ContentLength = info.Size()

	resp, err := c.do(req, "byte upload")
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	if len(properties) > 0 {
		err = c.doJSON(ctx, http.MethodPatch, c.baseURL+"/nodes/"+session.ID,
			patchNodeRequest{Properties: properties}, nil, "property update")
		if err != nil {
			return "", &common.UploadError{Filename: filename, Err: err}
		}
	}

	logger.Debug("Uploaded %s as node %s (%d bytes)", filename, session.ID, info.Size())
	return session.ID, nil
}

// AddItemToAlbum adds the item node to the album's children. Already a
// member is a no-op.
func (c *Client) AddItemToAlbum(ctx context.Context, albumID, itemID string) error {
	var node nodeJSON
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/nodes/"+itemID, nil, &node, "item lookup")
	if err != nil {
		return err
	}

	for _, parent := range node.Parents {
		if parent == albumID {
			logger.Debug("Item %s is already in album %s", itemID, albumID)
			return nil
		}
	}

	parents := append(node.Parents, albumID)
	return c.doJSON(ctx, http.MethodPatch, c.baseURL+"/nodes/"+itemID,
		patchNodeRequest{Parents: parents}, nil, "album membership update")
}

// ListAlbums returns the albums visible in the destination account.
func (c *Client) ListAlbums(ctx context.Context) ([]models.Album, error) {
	query := url.Values{}
	query.Set("filters", "kind:FOLDER AND labels:ALBUM")

	var page nodeListJSON
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/nodes?"+query.Encode(), nil, &page, "album listing")
	if err != nil {
		return nil, err
	}

	albums := make([]models.Album, 0, len(page.Data))
	for _, node := range page.Data {
		albums = append(albums, models.Album{ID: node.ID, Title: node.Name})
	}
	return albums, nil
}

// photosFolder returns the id of the Photos folder, creating it on first use.
func (c *Client) photosFolder(ctx context.Context) (string, error) {
	if c.photosFolderID != "" {
		return c.photosFolderID, nil
	}

	query := url.Values{}
	query.Set("filters", "kind:FOLDER AND name:Photos")

	var page nodeListJSON
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/nodes?"+query.Encode(), nil, &page, "photos folder lookup")
	if err != nil {
		return "", err
	}
	if len(page.Data) > 0 {
		c.photosFolderID = page.Data[0].ID
		return c.photosFolderID, nil
	}

	logger.Info("Photos folder not found, creating it")

	var root nodeJSON
	err = c.doJSON(ctx, http.MethodGet, c.baseURL+"/nodes/root", nil, &root, "root folder lookup")
	if err != nil {
		return "", err
	}

	var created nodeJSON
	err = c.doJSON(ctx, http.MethodPost, c.baseURL+"/nodes", createNodeRequest{
		Name:    "Photos",
		Kind:    "FOLDER",
		Parents: []string{root.ID},
	}, &created, "photos folder creation")
	if err != nil {
		return "", err
	}

	c.photosFolderID = created.ID
	return c.photosFolderID, nil
}

// findAlbumByName returns the id of an ALBUM node with the given name, or ""
// when no such album exists.
func (c *Client) findAlbumByName(ctx context.Context, name string) (string, error) {
	query := url.Values{}
	query.Set("filters", fmt.Sprintf("kind:FOLDER AND labels:ALBUM AND name:'%s'", name))

	var page nodeListJSON
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/nodes?"+query.Encode(), nil, &page, "album lookup")
	if err != nil {
		return "", err
	}
	if len(page.Data) == 0 {
		return "", nil
	}
	return page.Data[0].ID, nil
}

// doJSON executes a request with an optional JSON body and decodes the JSON
// response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out interface{}, op string) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}
	return nil
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

type createNodeRequest struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Parents []string `json:"parents"`
	Labels  []string `json:"labels,omitempty"`
}

type patchNodeRequest struct {
	Parents    []string          `json:"parents,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type uploadSessionRequest struct {
	Name        string   `json:"name"`
	ContentType string   `json:"contentType"`
	Parents     []string `json:"parents"`
	Size        int64    `json:"size"`
}

type uploadSessionJSON struct {
	ID        string `json:"id"`
	UploadURL string `json:"uploadUrl"`
}

type nodeJSON struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Parents []string `json:"parents"`
}

type nodeListJSON struct {
	Count int        `json:"count"`
	Data  []nodeJSON `json:"data"`
}
