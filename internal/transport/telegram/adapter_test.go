package telegram

import (
	"context"
	"testing"

	"github.com/haasonsaas/concierge/pkg/models"
)

func TestConfigValidate(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); !models.IsValidation(err) {
		t.Fatalf("Validate() error = %v, want VALIDATION_ERROR for missing token", err)
	}

	cfg = &Config{Token: "123:abc"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Logger == nil {
		t.Error("Validate() left Logger nil")
	}
}

func TestChatIDFromTenant(t *testing.T) {
	tests := []struct {
		tenantID string
		want     int64
		wantErr  bool
	}{
		{"123456789", 123456789, false},
		{"-1001234567890", -1001234567890, false},
		{"", 0, true},
		{"alice", 0, true},
	}
	for _, tt := range tests {
		got, err := chatIDFromTenant(tt.tenantID)
		if tt.wantErr {
			if !models.IsValidation(err) {
				t.Errorf("chatIDFromTenant(%q) error = %v, want VALIDATION_ERROR", tt.tenantID, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("chatIDFromTenant(%q) error = %v", tt.tenantID, err)
			continue
		}
		if got != tt.want {
			t.Errorf("chatIDFromTenant(%q) = %d, want %d", tt.tenantID, got, tt.want)
		}
	}
}

func TestDeliverBeforeStart(t *testing.T) {
	a, err := NewAdapter(Config{Token: "123:abc"})
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	ctx := context.Background()
	if err := a.Deliver(ctx, "123", "hi"); !models.HasCode(err, models.ErrCodeTransport) {
		t.Errorf("Deliver() before Start error = %v, want TRANSPORT_ERROR", err)
	}
	if err := a.SendPresence(ctx, "123"); !models.HasCode(err, models.ErrCodeTransport) {
		t.Errorf("SendPresence() before Start error = %v, want TRANSPORT_ERROR", err)
	}
}
