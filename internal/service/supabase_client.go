package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"compdash/internal/config"
	"compdash/internal/domain"
	"compdash/pkg/errors"
	"compdash/pkg/logger"

	"golang.org/x/oauth2"
)

// SupabaseClient talks to the hosted backend's Storage and GoTrue auth APIs
type SupabaseClient struct {
	config     *config.Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewSupabaseClient creates a new Supabase client
func NewSupabaseClient(cfg *config.Config, logger *logger.Logger) *SupabaseClient {
	return &SupabaseClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// gotrueUser is the user object GoTrue embeds in token and user responses
type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueTokenResponse struct {
	AccessToken  string     `json:"access_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int64      `json:"expires_in"`
	ExpiresAt    int64      `json:"expires_at"`
	RefreshToken string     `json:"refresh_token"`
	User         gotrueUser `json:"user"`
}

// objectURL builds the storage API URL for path, escaping each segment
func (s *SupabaseClient) objectURL(prefix, path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/storage/v1/object/%s%s/%s",
		s.config.SupabaseURL, prefix, url.PathEscape(s.config.StorageBucket), strings.Join(segments, "/"))
}

// Upload stores body at path in the configured bucket. Existing objects are
// never replaced.
func (s *SupabaseClient) Upload(ctx context.Context, path, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL("", path), body)
	if err != nil {
		return errors.NewUploadError("Failed to prepare upload", err)
	}
	s.setServiceHeaders(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.NewUploadError("Failed to reach storage", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg := readBody(resp.Body)
		s.logger.WithFields(map[string]interface{}{
			"status_code":   resp.StatusCode,
			"response_body": msg,
		}).Warn("Storage upload rejected")
		return errors.NewUploadError("Upload failed", fmt.Errorf("storage returned status %d: %s", resp.StatusCode, msg))
	}

	return nil
}

// Remove deletes the object at path
func (s *SupabaseClient) Remove(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL("", path), nil)
	if err != nil {
		return errors.NewStorageError("Failed to prepare removal", err)
	}
	s.setServiceHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.NewStorageError("Failed to reach storage", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return errors.NewStorageError("Removal failed", fmt.Errorf("storage returned status %d: %s", resp.StatusCode, readBody(resp.Body)))
	}

	return nil
}

// PublicURL returns the public URL of the object at path
func (s *SupabaseClient) PublicURL(path string) string {
	return s.objectURL("public/", path)
}

// SignIn exchanges email and password for a session
func (s *SupabaseClient) SignIn(ctx context.Context, email, password string) (*oauth2.Token, *domain.Principal, error) {
	return s.token(ctx, "password", map[string]string{"email": email, "password": password})
}

// Refresh exchanges a refresh token for a new session
func (s *SupabaseClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, *domain.Principal, error) {
	return s.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

func (s *SupabaseClient) token(ctx context.Context, grantType string, body map[string]string) (*oauth2.Token, *domain.Principal, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, errors.NewInternalError("Failed to encode request", err)
	}

	endpoint := fmt.Sprintf("%s/auth/v1/token?grant_type=%s", s.config.SupabaseURL, url.QueryEscape(grantType))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, errors.NewInternalError("Failed to create request", err)
	}
	req.Header.Set("apikey", s.config.SupabaseAnonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, errors.NewExternalError("Failed to reach auth provider", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		s.logger.WithField("grant_type", grantType).Info("Sign in rejected by auth provider")
		if grantType == "password" {
			return nil, nil, errors.NewAuthenticationError("Invalid email or password")
		}
		return nil, nil, errors.NewAuthenticationError("Session expired, please sign in again")
	case resp.StatusCode != http.StatusOK:
		return nil, nil, errors.NewExternalError("Auth provider error",
			fmt.Errorf("auth returned status %d: %s", resp.StatusCode, readBody(resp.Body)))
	}

	var tr gotrueTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, nil, errors.NewExternalError("Failed to decode auth response", err)
	}
	if tr.AccessToken == "" {
		return nil, nil, errors.NewExternalError("Auth provider returned no access token", nil)
	}

	expiry := time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	if tr.ExpiresAt > 0 {
		expiry = time.Unix(tr.ExpiresAt, 0)
	}

	tok := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
		Expiry:       expiry,
	}

	return tok, &domain.Principal{UserID: tr.User.ID, Email: tr.User.Email}, nil
}

// SignOut revokes the session behind accessToken
func (s *SupabaseClient) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.SupabaseURL+"/auth/v1/logout", nil)
	if err != nil {
		return errors.NewInternalError("Failed to create request", err)
	}
	req.Header.Set("apikey", s.config.SupabaseAnonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.NewExternalError("Failed to reach auth provider", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewAuthenticationError("Session already ended")
	}
	return errors.NewExternalError("Sign out failed", fmt.Errorf("auth returned status %d", resp.StatusCode))
}

// GetUser returns the principal behind accessToken
func (s *SupabaseClient) GetUser(ctx context.Context, accessToken string) (*domain.Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.SupabaseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, errors.NewInternalError("Failed to create request", err)
	}
	req.Header.Set("apikey", s.config.SupabaseAnonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewExternalError("Failed to reach auth provider", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewExternalError("Auth provider error", fmt.Errorf("auth returned status %d", resp.StatusCode))
	}

	var user gotrueUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.NewExternalError("Failed to decode user", err)
	}
	if user.ID == "" || user.Email == "" {
		return nil, errors.NewAuthenticationError("Token has no user")
	}

	return &domain.Principal{UserID: user.ID, Email: user.Email}, nil
}

// Health checks that the auth API answers
func (s *SupabaseClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.SupabaseURL+"/auth/v1/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.config.SupabaseAnonKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("supabase auth health returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *SupabaseClient) setServiceHeaders(req *http.Request) {
	req.Header.Set("apikey", s.config.SupabaseServiceKey)
	req.Header.Set("Authorization", "Bearer "+s.config.SupabaseServiceKey)
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 1024))
	return string(b)
}
