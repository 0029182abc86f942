package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"user", RoleUser, false},
		{"  Assistant ", RoleAssistant, false},
		{"SYSTEM", RoleSystem, false},
		{"tool", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMessage_Chars(t *testing.T) {
	msg := Message{Role: RoleUser, Content: "héllo"}
	if msg.Chars() != 5 {
		t.Errorf("expected 5 characters, got %d", msg.Chars())
	}
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var cfg ProviderConfig
	if err := json.Unmarshal([]byte(`{"requestTimeout":"2m"}`), &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if cfg.RequestTimeout.Std() != 2*time.Minute {
		t.Errorf("expected 2m, got %s", cfg.RequestTimeout.Std())
	}

	if err := json.Unmarshal([]byte(`{"requestTimeout":1500}`), &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if cfg.RequestTimeout.Std() != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %s", cfg.RequestTimeout.Std())
	}

	if err := json.Unmarshal([]byte(`{"requestTimeout":"soon"}`), &cfg); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(ProviderConfig{RequestTimeout: Duration(90 * time.Second)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"requestTimeout":"1m30s"}` {
		t.Errorf("unexpected JSON: %s", data)
	}
}

func TestChatConfig_Flags(t *testing.T) {
	var cfg ChatConfig
	if !cfg.SafetyEnabled() || !cfg.MemoryEnabled() {
		t.Error("expected safety and memory to default to enabled")
	}

	off := false
	cfg.EnableSafetyFeatures = &off
	cfg.EnableConversationMemory = &off
	if cfg.SafetyEnabled() || cfg.MemoryEnabled() {
		t.Error("expected explicit false to disable the features")
	}
}
