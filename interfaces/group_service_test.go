package interfaces

import (
	"errors"
	"strings"
	"testing"
)

// TestServiceConfigValidate tests the Validate method of ServiceConfig.
func TestServiceConfigValidate(t *testing.T) {
	validKey := strings.Repeat("ab", 32)

	tests := []struct {
		name    string
		config  ServiceConfig
		wantErr error
	}{
		{
			name:    "valid simulation config",
			config:  ServiceConfig{UseSimulation: true, DialTimeout: 1000, RequestTimeout: 1000},
			wantErr: nil,
		},
		{
			name:    "valid unix config",
			config:  ServiceConfig{Network: "unix", Address: "/run/groupcast.sock", DialTimeout: 1000, RequestTimeout: 5000},
			wantErr: nil,
		},
		{
			name:    "valid tcp config with daemon key",
			config:  ServiceConfig{Network: "tcp", Address: "127.0.0.1:5405", DialTimeout: 1000, RequestTimeout: 5000, DaemonPublicKey: validKey},
			wantErr: nil,
		},
		{
			name:    "zero dial timeout",
			config:  ServiceConfig{UseSimulation: true, DialTimeout: 0, RequestTimeout: 1000},
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative request timeout",
			config:  ServiceConfig{UseSimulation: true, DialTimeout: 1000, RequestTimeout: -1},
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "unsupported network",
			config:  ServiceConfig{Network: "udp", Address: "127.0.0.1:5405", DialTimeout: 1000, RequestTimeout: 1000},
			wantErr: ErrUnsupportedNetwork,
		},
		{
			name:    "missing address",
			config:  ServiceConfig{Network: "tcp", DialTimeout: 1000, RequestTimeout: 1000},
			wantErr: ErrMissingAddress,
		},
		{
			name:    "short daemon key",
			config:  ServiceConfig{Network: "tcp", Address: "127.0.0.1:5405", DialTimeout: 1000, RequestTimeout: 1000, DaemonPublicKey: "abcd"},
			wantErr: ErrInvalidDaemonKey,
		},
		{
			name:    "non-hex daemon key",
			config:  ServiceConfig{Network: "tcp", Address: "127.0.0.1:5405", DialTimeout: 1000, RequestTimeout: 1000, DaemonPublicKey: strings.Repeat("zz", 32)},
			wantErr: ErrInvalidDaemonKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatusDescriptions(t *testing.T) {
	tests := []struct {
		status Status
		name   string
		desc   string
	}{
		{StatusOK, "OK", "Success"},
		{StatusErrLibrary, "ERR_LIBRARY", "Error in library"},
		{StatusErrAccess, "ERR_ACCESS", "Access denied"},
		{StatusErrTooManyGroups, "ERR_TOO_MANY_GROUPS", "Too many groups"},
		{StatusErrSecurity, "ERR_SECURITY", "Security error"},
		{Status(29), "STATUS(29)", "Unknown error"},
		{Status(0), "STATUS(0)", "Unknown error"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.name {
			t.Errorf("Status(%d).String() = %q, want %q", uint32(tt.status), got, tt.name)
		}
		if got := DescribeStatus(tt.status); got != tt.desc {
			t.Errorf("DescribeStatus(%d) = %q, want %q", uint32(tt.status), got, tt.desc)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusOK.IsOK() {
		t.Error("StatusOK.IsOK() = false")
	}
	if StatusErrBusy.IsOK() {
		t.Error("StatusErrBusy.IsOK() = true")
	}
	if !StatusErrBusy.Known() {
		t.Error("StatusErrBusy.Known() = false")
	}
	if Status(29).Known() {
		t.Error("Status(29).Known() = true")
	}
}

func TestOrderingModeString(t *testing.T) {
	if OrderAgreed.String() != "agreed" {
		t.Errorf("OrderAgreed.String() = %q", OrderAgreed.String())
	}
	if OrderingMode(9).String() != "ordering(9)" {
		t.Errorf("OrderingMode(9).String() = %q", OrderingMode(9).String())
	}
}

func TestDefaultModel(t *testing.T) {
	m := DefaultModel()
	if m.Version != ModelV1 {
		t.Errorf("DefaultModel().Version = %d, want %d", m.Version, ModelV1)
	}
	if DefaultModel() == m {
		t.Error("DefaultModel returned a shared descriptor")
	}
}

func TestHandleString(t *testing.T) {
	if got := Handle(0x2a).String(); got != "0x000000000000002a" {
		t.Errorf("Handle.String() = %q", got)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"14", StatusErrExist, true},
		{"ERR_EXIST", StatusErrExist, true},
		{"err_try_again", StatusErrTryAgain, true},
		{"TOO_MANY_GROUPS", StatusErrTooManyGroups, true},
		{"ok", StatusOK, true},
		{"29", 0, false},
		{"NOPE", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseStatus(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
