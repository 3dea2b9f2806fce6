package livesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"danceforchange/errs"
	"danceforchange/models"
)

// API is the REST half of the client: authoritative reads and
// mutations against the MindTalk surface.
type API struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPI(baseURL, token string) *API {
	return &API{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Post    *models.Post  `json:"post"`
	Posts   []models.Post `json:"posts"`
}

func (a *API) do(ctx context.Context, method, path string, body interface{}) (*envelope, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, &errs.TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		return nil, apiError(resp.StatusCode, env.Message)
	}
	return &env, nil
}

func apiError(status int, message string) error {
	switch status {
	case http.StatusBadRequest:
		return &errs.ValidationError{Message: message}
	case http.StatusNotFound:
		return &errs.NotFoundError{Resource: "Post"}
	case http.StatusUnauthorized:
		return &errs.AuthorizationError{Message: message}
	case http.StatusForbidden:
		return &errs.AuthorizationError{Message: message, Forbidden: true}
	default:
		return fmt.Errorf("server error (%d): %s", status, message)
	}
}

// GetPosts fetches the full feed, newest first.
func (a *API) GetPosts(ctx context.Context) ([]models.Post, error) {
	env, err := a.do(ctx, http.MethodGet, "/api/mindtalk", nil)
	if err != nil {
		return nil, err
	}
	return env.Posts, nil
}

// CreatePost submits a new post and returns the canonical document.
func (a *API) CreatePost(ctx context.Context, text, category string, anonymous bool) (*models.Post, error) {
	body := map[string]interface{}{
		"text":      text,
		"category":  category,
		"anonymous": anonymous,
	}
	env, err := a.do(ctx, http.MethodPost, "/api/mindtalk", body)
	if err != nil {
		return nil, err
	}
	return env.Post, nil
}

// React submits a reaction and returns the updated post.
func (a *API) React(ctx context.Context, postID, rtype string) (*models.Post, error) {
	env, err := a.do(ctx, http.MethodPost, "/api/mindtalk/"+postID+"/reactions", map[string]string{"type": rtype})
	if err != nil {
		return nil, err
	}
	return env.Post, nil
}

// Comment submits a comment and returns the updated post.
func (a *API) Comment(ctx context.Context, postID, text string) (*models.Post, error) {
	env, err := a.do(ctx, http.MethodPost, "/api/mindtalk/"+postID+"/comments", map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	return env.Post, nil
}
