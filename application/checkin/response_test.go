package checkin

import (
	"net/http"
	"testing"

	"checkin-go/infrastructure/httpclient"
)

func TestParseUserInfo(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantSuccess bool
		wantQuota   string
		wantUsed    string
		wantDisplay string
		wantError   string
	}{
		{
			name:        "scaled quota",
			status:      http.StatusOK,
			body:        `{"success":true,"data":{"quota":1000000,"used_quota":500000}}`,
			wantSuccess: true,
			wantQuota:   "2.00",
			wantUsed:    "1.00",
			wantDisplay: ":money: Current balance: $2.00, Used: $1.00",
		},
		{
			name:        "rounded to cents",
			status:      http.StatusOK,
			body:        `{"success":true,"data":{"quota":6172839,"used_quota":1}}`,
			wantSuccess: true,
			wantQuota:   "12.35",
			wantUsed:    "0.00",
		},
		{
			name:        "half cent below representable value",
			status:      http.StatusOK,
			body:        `{"success":true,"data":{"quota":1337500,"used_quota":1332500}}`,
			wantSuccess: true,
			wantQuota:   "2.67",
			wantUsed:    "2.67",
			wantDisplay: ":money: Current balance: $2.67, Used: $2.67",
		},
		{
			name:        "missing data counts as zero",
			status:      http.StatusOK,
			body:        `{"success":true}`,
			wantSuccess: true,
			wantQuota:   "0.00",
			wantUsed:    "0.00",
		},
		{
			name:      "success false",
			status:    http.StatusOK,
			body:      `{"success":false,"message":"unauthorized"}`,
			wantError: "Failed to get user info: HTTP 200",
		},
		{
			name:      "non 200",
			status:    http.StatusForbidden,
			body:      `{"success":true}`,
			wantError: "Failed to get user info: HTTP 403",
		},
		{
			name:      "invalid json",
			status:    http.StatusOK,
			body:      `<html>blocked</html>`,
			wantError: "Failed to get user info: invalid JSON response...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseUserInfo(&httpclient.Response{StatusCode: tt.status, Body: []byte(tt.body)})

			if info.Success != tt.wantSuccess {
				t.Fatalf("Success = %v, want %v (error %q)", info.Success, tt.wantSuccess, info.Error)
			}
			if !tt.wantSuccess {
				if info.Error != tt.wantError {
					t.Errorf("Error = %q, want %q", info.Error, tt.wantError)
				}
				return
			}
			if got := info.Quota.StringFixed(2); got != tt.wantQuota {
				t.Errorf("Quota = %v, want %v", got, tt.wantQuota)
			}
			if got := info.UsedQuota.StringFixed(2); got != tt.wantUsed {
				t.Errorf("UsedQuota = %v, want %v", got, tt.wantUsed)
			}
			if tt.wantDisplay != "" && info.Display != tt.wantDisplay {
				t.Errorf("Display = %q, want %q", info.Display, tt.wantDisplay)
			}
		})
	}
}

func TestClassifyCheckin(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantOK   bool
		wantKind Kind
		wantMsg  string
	}{
		{name: "ret 1", status: 200, body: `{"ret":1}`, wantOK: true},
		{name: "code 0", status: 200, body: `{"code":0,"msg":"ok"}`, wantOK: true},
		{name: "success true", status: 200, body: `{"success":true}`, wantOK: true},
		{name: "success non-empty string", status: 200, body: `{"success":"yes"}`, wantOK: true},
		{name: "ret true", status: 200, body: `{"ret":true}`, wantOK: true},
		{name: "plain text success", status: 200, body: `OK success`, wantOK: true},
		{name: "plain text success upper", status: 200, body: `SUCCESS`, wantOK: true},
		{name: "msg", status: 200, body: `{"ret":0,"msg":"already signed"}`, wantKind: KindCheckin, wantMsg: "already signed"},
		{name: "message", status: 200, body: `{"success":false,"message":"nope"}`, wantKind: KindCheckin, wantMsg: "nope"},
		{name: "msg wins over message", status: 200, body: `{"msg":"a","message":"b"}`, wantKind: KindCheckin, wantMsg: "a"},
		{name: "unknown", status: 200, body: `{"success":0}`, wantKind: KindCheckin, wantMsg: "Unknown error"},
		{name: "code 1", status: 200, body: `{"code":1}`, wantKind: KindCheckin, wantMsg: "Unknown error"},
		{name: "plain text", status: 200, body: `done`, wantKind: KindResponseFormat, wantMsg: "Invalid response format"},
		{name: "empty body", status: 200, body: ``, wantKind: KindResponseFormat, wantMsg: "Invalid response format"},
		{name: "non 200", status: 502, body: `{"success":true}`, wantKind: KindTransport, wantMsg: "HTTP 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyCheckin(&httpclient.Response{StatusCode: tt.status, Body: []byte(tt.body)})

			if tt.wantOK {
				if err != nil {
					t.Errorf("ClassifyCheckin() = %v, want success", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ClassifyCheckin() = nil, want error")
			}
			if err.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", err.Kind, tt.wantKind)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 50); got != "short" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("abcdef", 3); got != "abc" {
		t.Errorf("Truncate() = %q, want abc", got)
	}
	if got := Truncate("签到签到", 2); got != "签到" {
		t.Errorf("Truncate() = %q, want rune-safe cut", got)
	}
}
