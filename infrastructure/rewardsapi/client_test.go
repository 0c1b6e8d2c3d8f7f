package rewardsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"rewardsfarmer-go/infrastructure/browser"
)

func testConfig(url string) *ClientConfig {
	return &ClientConfig{
		URL:       url,
		Timeout:   2 * time.Second,
		Attempts:  5,
		RetryWait: time.Millisecond,
	}
}

func TestDefaultClientConfig(t *testing.T) {
	config := DefaultClientConfig()
	if config.URL != DefaultUserInfoURL {
		t.Errorf("URL = %v", config.URL)
	}
	if config.Attempts != 5 || config.RetryWait != time.Second {
		t.Errorf("Attempts/RetryWait = %d/%v, want 5/1s", config.Attempts, config.RetryWait)
	}
}

func TestHTTPClient_UserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("_U")
		if err != nil || c.Value != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userInfo":{"balance":1234,"isRewardsUser":true}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL))
	info, err := client.UserInfo(context.Background(), []browser.Cookie{{Name: "_U", Value: "token"}})
	if err != nil {
		t.Fatalf("UserInfo() error = %v", err)
	}
	if info.Balance != 1234 || !info.IsRewardsUser {
		t.Errorf("UserInfo() = %+v", info)
	}
}

func TestHTTPClient_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"userInfo":{"balance":7,"isRewardsUser":false}}`))
	}))
	defer server.Close()

	info, err := NewHTTPClient(testConfig(server.URL)).UserInfo(context.Background(), nil)
	if err != nil {
		t.Fatalf("UserInfo() error = %v", err)
	}
	if info.Balance != 7 {
		t.Errorf("Balance = %d, want 7", info.Balance)
	}
	if calls.Load() != 3 {
		t.Errorf("server called %d times, want 3", calls.Load())
	}
}

func TestHTTPClient_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := NewHTTPClient(testConfig(server.URL)).UserInfo(context.Background(), nil); err == nil {
		t.Fatal("UserInfo() error = nil, want error")
	}
	if calls.Load() != 5 {
		t.Errorf("server called %d times, want 5", calls.Load())
	}
}

func TestHTTPClient_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>"},
		{"missing userInfo", `{"other":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			if _, err := NewHTTPClient(testConfig(server.URL)).UserInfo(context.Background(), nil); err == nil {
				t.Error("UserInfo() error = nil, want error")
			}
		})
	}
}

func TestNoOpClient(t *testing.T) {
	_, err := NewNoOpClient().UserInfo(context.Background(), nil)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("UserInfo() error = %v, want ErrDisabled", err)
	}
}
