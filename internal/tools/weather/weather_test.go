package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExecute_Lookup(t *testing.T) {
	geocode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "Berlin" {
			t.Errorf("geocode name = %q, want Berlin", got)
		}
		_, _ = w.Write([]byte(`{"results":[{"name":"Berlin","latitude":52.52,"longitude":13.41}]}`))
	}))
	defer geocode.Close()

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":18.5,"windspeed":12.0,"weathercode":2}}`))
	}))
	defer forecast.Close()

	tool := New(Config{GeocodeURL: geocode.URL, ForecastURL: forecast.URL})
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"location":"Berlin"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("Execute() returned error result: %s", res.Content)
	}

	var report Report
	if err := json.Unmarshal([]byte(res.Content), &report); err != nil {
		t.Fatalf("report not valid JSON: %v", err)
	}
	if report.Location != "Berlin" || report.Temperature != 18.5 {
		t.Errorf("report = %+v", report)
	}
	if report.Condition != "partly cloudy" {
		t.Errorf("condition = %q, want partly cloudy", report.Condition)
	}
}

func TestExecute_NoGeocodeMatch(t *testing.T) {
	geocode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer geocode.Close()

	tool := New(Config{GeocodeURL: geocode.URL})
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"location":"Nowhereville"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.IsError {
		t.Error("Execute() expected error result for unmatched location")
	}
}

func TestExecute_EmptyLocation(t *testing.T) {
	tool := New(Config{})
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"location":""}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.IsError {
		t.Error("Execute() expected error result for empty location")
	}
}

func TestConditionFromCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "clear"},
		{2, "partly cloudy"},
		{45, "fog"},
		{61, "rain"},
		{71, "snow"},
		{95, "thunderstorm"},
		{120, "unknown"},
	}
	for _, tt := range tests {
		if got := conditionFromCode(tt.code); got != tt.want {
			t.Errorf("conditionFromCode(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
