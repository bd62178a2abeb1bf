package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		data       any
		wantStatus int
		wantJSON   string
	}{
		{
			name:       "shorten response",
			status:     http.StatusOK,
			data:       map[string]string{"short_code": "abc123"},
			wantStatus: http.StatusOK,
			wantJSON:   `{"short_code":"abc123"}`,
		},
		{
			name:       "list",
			status:     http.StatusOK,
			data:       []map[string]any{{"short_code": "abc123", "is_custom_alias": false}},
			wantStatus: http.StatusOK,
			wantJSON:   `[{"short_code":"abc123","is_custom_alias":false}]`,
		},
		{
			name:       "empty object",
			status:     http.StatusAccepted,
			data:       map[string]string{},
			wantStatus: http.StatusAccepted,
			wantJSON:   `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			WriteJSON(rr, tt.status, tt.data)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %q", ct)
			}
			if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("expected X-Content-Type-Options nosniff, got %q", got)
			}

			var got, want any
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if err := json.Unmarshal([]byte(tt.wantJSON), &want); err != nil {
				t.Fatalf("failed to unmarshal expected JSON: %v", err)
			}
			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("expected JSON %s, got %s", wantJSON, gotJSON)
			}
		})
	}
}

func TestWriteError_OmitsEmptyFields(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteError(rr, http.StatusNotFound, "not_found", "", nil)

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["error"] != "not_found" {
		t.Errorf("error = %v, want not_found", body["error"])
	}
	if _, ok := body["message"]; ok {
		t.Error("message should be omitted when empty")
	}
	if _, ok := body["details"]; ok {
		t.Error("details should be omitted when nil")
	}
}

func TestWriteNoContent(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteNoContent(rr)

	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rr.Body.String())
	}
}
