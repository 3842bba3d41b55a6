package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientBookSuccess(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/appointments" {
			t.Errorf("path = %q, want /appointments", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Confirmation{AppointmentID: "APT-TEST"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	conf, err := c.Book(context.Background(), Request{
		ServiceType: "consultation",
		Date:        "2026-09-03",
		Time:        "15:00",
		Name:        "Ada",
		Email:       "ada@example.com",
	})
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if conf.AppointmentID != "APT-TEST" {
		t.Fatalf("AppointmentID = %q", conf.AppointmentID)
	}
	if got.ServiceType != "consultation" || got.Email != "ada@example.com" {
		t.Fatalf("server saw %+v", got)
	}
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Confirmation{AppointmentID: "APT-RETRY"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	conf, err := c.Book(context.Background(), Request{Name: "Ada"})
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if conf.AppointmentID != "APT-RETRY" {
		t.Fatalf("AppointmentID = %q", conf.AppointmentID)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Book(context.Background(), Request{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestNewServiceSelection(t *testing.T) {
	if _, ok := NewService("auto", "", time.Second).(*MockService); !ok {
		t.Fatal("auto with no URL should pick mock")
	}
	if _, ok := NewService("auto", "http://localhost:9", time.Second).(*Client); !ok {
		t.Fatal("auto with URL should pick HTTP client")
	}
	if _, ok := NewService("mock", "http://localhost:9", time.Second).(*MockService); !ok {
		t.Fatal("mock mode should pick mock even with URL")
	}
	if _, ok := NewService("http", "", time.Second).(*MockService); !ok {
		t.Fatal("http mode without URL should fall back to mock")
	}
}

func TestMockServiceFailNext(t *testing.T) {
	m := NewMockService()
	m.FailNext = true
	if _, err := m.Book(context.Background(), Request{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	conf, err := m.Book(context.Background(), Request{Name: "Ada"})
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if conf.AppointmentID == "" {
		t.Fatal("expected appointment id")
	}
	if len(m.Booked()) != 1 {
		t.Fatalf("booked = %d, want 1", len(m.Booked()))
	}
}
