package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDetector_Detect(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantObject string
		wantErr    string
	}{
		{
			name:       "ok",
			status:     http.StatusOK,
			body:       `{"object_name":"cat","advice":"keep it fed","heatmap_url":"https://cdn.example.com/h.png"}`,
			wantObject: "cat",
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    "model crashed\n",
			wantErr: "inference returned 500: model crashed",
		},
		{
			name:    "bad json",
			status:  http.StatusOK,
			body:    `{"object_name":`,
			wantErr: "decode inference response",
		},
		{
			name:    "empty result",
			status:  http.StatusOK,
			body:    `{"advice":"none"}`,
			wantErr: "no object_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotImage string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req map[string]string
				_ = json.NewDecoder(r.Body).Decode(&req)
				gotImage = req["image_url"]

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			d := NewHTTPDetector(srv.URL, time.Second)
			result, err := d.Detect(context.Background(), "https://cdn.example.com/a.jpg")

			assert.Equal(t, "https://cdn.example.com/a.jpg", gotImage)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantObject, result.ObjectName)
			assert.Equal(t, "keep it fed", result.Advice)
			assert.Equal(t, "https://cdn.example.com/h.png", result.HeatmapURL)
		})
	}
}

func TestHTTPDetector_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	d := NewHTTPDetector(srv.URL, 50*time.Millisecond)
	_, err := d.Detect(context.Background(), "https://cdn.example.com/a.jpg")
	assert.Error(t, err)
}
