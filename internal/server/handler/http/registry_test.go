package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/CommitKeeper/internal/models"
	"github.com/atinyakov/CommitKeeper/internal/service"
)

// fakeRegistryService implements RegistryService for testing.
type fakeRegistryService struct {
	publishErr  error
	getResult   *models.PublishedCommitment
	getErr      error
	listResult  []models.PublishedCommitment
	listErr     error
	listIDs     []string
	revealOK    bool
	revealErr   error
	revealInput string
}

func (f *fakeRegistryService) Publish(ctx context.Context, id, scheme, digest string) (models.PublishedCommitment, error) {
	if f.publishErr != nil {
		return models.PublishedCommitment{}, f.publishErr
	}
	return models.PublishedCommitment{ID: id, Scheme: scheme, Commitment: digest, PublishedAt: 42}, nil
}

func (f *fakeRegistryService) Get(ctx context.Context, id string) (*models.PublishedCommitment, error) {
	return f.getResult, f.getErr
}

func (f *fakeRegistryService) List(ctx context.Context, ids []string) ([]models.PublishedCommitment, error) {
	f.listIDs = ids
	return f.listResult, f.listErr
}

func (f *fakeRegistryService) Reveal(ctx context.Context, id, input, pepper string) (bool, error) {
	f.revealInput = input
	return f.revealOK, f.revealErr
}

// withURLParam attaches a chi route context carrying the given id.
func withURLParam(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestRegistryHandler_Publish(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		service        *fakeRegistryService
		expectedCode   int
		expectedSubstr string
	}{
		{
			name:           "invalid JSON",
			body:           `not a json`,
			service:        &fakeRegistryService{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid body",
		},
		{
			name:           "invalid commitment",
			body:           `{"id":"a","commitment":"zz"}`,
			service:        &fakeRegistryService{publishErr: fmt.Errorf("%w: bad hex", service.ErrInvalidCommitment)},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid commitment",
		},
		{
			name:           "duplicate",
			body:           `{"id":"a","commitment":"` + headsSHA512 + `"}`,
			service:        &fakeRegistryService{publishErr: service.ErrAlreadyPublished},
			expectedCode:   http.StatusConflict,
			expectedSubstr: "already published",
		},
		{
			name:           "repository failure",
			body:           `{"id":"a","commitment":"` + headsSHA512 + `"}`,
			service:        &fakeRegistryService{publishErr: errors.New("db down")},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "internal error",
		},
		{
			name:           "success",
			body:           `{"id":"bet-1","scheme":"sha512-lp-v1","commitment":"` + headsSHA512 + `"}`,
			service:        &fakeRegistryService{},
			expectedCode:   http.StatusCreated,
			expectedSubstr: `"id":"bet-1"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/commitments", bytes.NewBufferString(tt.body))
			h := &RegistryHandler{RegistryService: tt.service}

			h.Publish(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestRegistryHandler_Get(t *testing.T) {
	tests := []struct {
		name         string
		service      *fakeRegistryService
		expectedCode int
	}{
		{"found", &fakeRegistryService{getResult: &models.PublishedCommitment{ID: "bet-1", Commitment: headsSHA512}}, http.StatusOK},
		{"not found", &fakeRegistryService{getErr: service.ErrCommitmentNotFound}, http.StatusNotFound},
		{"failure", &fakeRegistryService{getErr: errors.New("boom")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := withURLParam(httptest.NewRequest("GET", "/api/commitments/bet-1", nil), "bet-1")
			h := &RegistryHandler{RegistryService: tt.service}

			h.Get(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			if tt.expectedCode == http.StatusOK {
				var got models.PublishedCommitment
				if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if got.ID != "bet-1" {
					t.Errorf("ID = %q", got.ID)
				}
			}
		})
	}
}

func TestRegistryHandler_List(t *testing.T) {
	svc := &fakeRegistryService{listResult: []models.PublishedCommitment{{ID: "a"}, {ID: "b"}}}
	h := &RegistryHandler{RegistryService: svc}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/commitments?id=a&id=b", nil)
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(svc.listIDs) != 2 || svc.listIDs[0] != "a" || svc.listIDs[1] != "b" {
		t.Errorf("ids passed = %v", svc.listIDs)
	}
	var got []models.PublishedCommitment
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d commitments; want 2", len(got))
	}

	failing := &RegistryHandler{RegistryService: &fakeRegistryService{listErr: errors.New("boom")}}
	rec = httptest.NewRecorder()
	failing.List(rec, httptest.NewRequest("GET", "/api/commitments", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestRegistryHandler_Reveal(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		service        *fakeRegistryService
		expectedCode   int
		expectedSubstr string
	}{
		{"invalid JSON", `{`, &fakeRegistryService{}, http.StatusBadRequest, "invalid body"},
		{"match", `{"input":"alice-bet-heads","pepper":"` + testPepperHex + `"}`, &fakeRegistryService{revealOK: true}, http.StatusOK, `"valid":true`},
		{"mismatch", `{"input":"alice-bet-tails","pepper":"` + testPepperHex + `"}`, &fakeRegistryService{}, http.StatusOK, `"valid":false`},
		{"unknown", `{"input":"x","pepper":"` + testPepperHex + `"}`, &fakeRegistryService{revealErr: service.ErrCommitmentNotFound}, http.StatusNotFound, "not found"},
		{"already revealed", `{"input":"x","pepper":"` + testPepperHex + `"}`, &fakeRegistryService{revealErr: service.ErrAlreadyRevealed}, http.StatusConflict, "already revealed"},
		{"bad pepper", `{"input":"x","pepper":"zz"}`, &fakeRegistryService{revealErr: fmt.Errorf("%w: bad hex", service.ErrInvalidOpening)}, http.StatusBadRequest, "invalid opening"},
		{"failure", `{"input":"x","pepper":"` + testPepperHex + `"}`, &fakeRegistryService{revealErr: errors.New("db down")}, http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := withURLParam(httptest.NewRequest("POST", "/api/commitments/bet-1/reveal", bytes.NewBufferString(tt.body)), "bet-1")
			h := &RegistryHandler{RegistryService: tt.service}

			h.Reveal(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}
