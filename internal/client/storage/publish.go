package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/atinyakov/CommitKeeper/internal/models"
)

const (
	apiCommitments = "/api/commitments"
)

var (
	// ErrRemote is returned when the registry cannot be reached or answers unexpectedly.
	ErrRemote = errors.New("registry request failed")
	// ErrAlreadyPublished is returned when the registry already holds the ID.
	ErrAlreadyPublished = errors.New("commitment already published")
	// ErrNotPublished is returned when the registry does not know the ID.
	ErrNotPublished = errors.New("commitment not published")
)

// Publish sends the public part of rec (id, scheme, commitment) to the registry.
// Input and pepper never leave the machine here.
func Publish(ctx context.Context, client *http.Client, baseURL string, rec models.SecretRecord) error {
	payload := map[string]string{
		"id":         rec.ID,
		"scheme":     rec.Scheme,
		"commitment": rec.Commitment,
	}
	resp, err := postJSON(ctx, client, baseURL+apiCommitments, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		return nil
	case http.StatusConflict:
		return ErrAlreadyPublished
	default:
		return remoteError(resp)
	}
}

// RevealRemote discloses rec's input and pepper to the registry and returns
// whether the registry accepted the opening.
func RevealRemote(ctx context.Context, client *http.Client, baseURL string, rec models.SecretRecord) (bool, error) {
	payload := map[string]string{
		"input":  rec.Input,
		"pepper": rec.Pepper,
	}
	resp, err := postJSON(ctx, client, baseURL+apiCommitments+"/"+url.PathEscape(rec.ID)+"/reveal", payload)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, ErrNotPublished
	default:
		return false, remoteError(resp)
	}

	var result struct {
		Valid bool `json:"valid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("%w: decode response: %w", ErrRemote, err)
	}
	return result.Valid, nil
}

func postJSON(ctx context.Context, client *http.Client, target string, payload any) (*http.Response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	return resp, nil
}

func remoteError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%w: %s: %s", ErrRemote, resp.Status, bytes.TrimSpace(data))
}
