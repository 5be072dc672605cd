package greeter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mockHTTP struct {
	status int
	body   string
	err    error

	gotURL string
}

func (m *mockHTTP) Do(req *http.Request) (*http.Response, error) {
	m.gotURL = req.URL.String()
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.status,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		name    string
		mock    *mockHTTP
		want    string
		wantErr bool
	}{
		{
			name: "success",
			mock: &mockHTTP{
				status: 200,
				body:   `{"candidates":[{"content":{"parts":[{"text":"Hello everyone!"}]}}]}`,
			},
			want: "Hello everyone!",
		},
		{
			name:    "http error",
			mock:    &mockHTTP{err: fmt.Errorf("connection refused")},
			wantErr: true,
		},
		{
			name:    "non-200",
			mock:    &mockHTTP{status: 429, body: "{}"},
			wantErr: true,
		},
		{
			name:    "malformed body",
			mock:    &mockHTTP{status: 200, body: "not json"},
			wantErr: true,
		},
		{
			name:    "no candidates",
			mock:    &mockHTTP{status: 200, body: `{"candidates":[]}`},
			wantErr: true,
		},
		{
			name:    "empty text",
			mock:    &mockHTTP{status: 200, body: `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.mock, "https://api.example.com", "test-model", "key")
			got, err := c.Greeting(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("greeting mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGreetingRequestURL(t *testing.T) {
	mock := &mockHTTP{status: 200, body: `{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`}
	c := New(mock, "https://api.example.com", "test-model", "key")
	if _, err := c.Greeting(context.Background()); err != nil {
		t.Fatalf("greeting: %v", err)
	}
	want := "https://api.example.com/v1beta/models/test-model:generateContent"
	if diff := cmp.Diff(want, mock.gotURL); diff != "" {
		t.Errorf("request URL mismatch (-want +got):\n%s", diff)
	}
}
