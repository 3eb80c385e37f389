package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const (
	testPepperHex = "000102030405060708090a0b0c0d0e0f"
	headsSHA512   = "3bff0ae40d7a89ce36f443620202e9af7a3e677dc810634aab41b99c2754b75f947586ff7a4abde3b33e0ca1b477c0abb602ad6424ba1227f6234d9ee4cce2c4"
)

func TestVerifyHandler_Verify(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedCode   int
		expectedValid  bool
		expectedSubstr string
	}{
		{
			name:           "invalid JSON",
			body:           `not a json`,
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid body",
		},
		{
			name:          "matching opening",
			body:          `{"input":"alice-bet-heads","pepper":"` + testPepperHex + `","commitment":"` + headsSHA512 + `"}`,
			expectedCode:  http.StatusOK,
			expectedValid: true,
		},
		{
			name:          "explicit scheme",
			body:          `{"scheme":"sha512-lp-v1","input":"alice-bet-heads","pepper":"` + testPepperHex + `","commitment":"` + headsSHA512 + `"}`,
			expectedCode:  http.StatusOK,
			expectedValid: true,
		},
		{
			name:          "wrong input",
			body:          `{"input":"alice-bet-tails","pepper":"` + testPepperHex + `","commitment":"` + headsSHA512 + `"}`,
			expectedCode:  http.StatusOK,
			expectedValid: false,
		},
		{
			name:          "other scheme does not match",
			body:          `{"scheme":"blake2b512-lp-v1","input":"alice-bet-heads","pepper":"` + testPepperHex + `","commitment":"` + headsSHA512 + `"}`,
			expectedCode:  http.StatusOK,
			expectedValid: false,
		},
		{
			name:           "bad commitment hex",
			body:           `{"input":"alice-bet-heads","pepper":"` + testPepperHex + `","commitment":"zz"}`,
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "digest",
		},
		{
			name:           "unknown scheme",
			body:           `{"scheme":"md5","input":"x","pepper":"` + testPepperHex + `","commitment":"` + headsSHA512 + `"}`,
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/verify", bytes.NewBufferString(tt.body))
			h := &VerifyHandler{}

			h.Verify(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedCode, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" {
				if !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
					t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
				}
				return
			}

			var resp map[string]bool
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp["valid"] != tt.expectedValid {
				t.Errorf("valid = %v; want %v", resp["valid"], tt.expectedValid)
			}
		})
	}
}
