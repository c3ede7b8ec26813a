package platform

import (
	"errors"
	"testing"
)

func TestParseHandshake(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Session
		wantErr bool
	}{
		{
			name:    "envelope with messages",
			payload: `{"Messages":["sess-1","partner_user",4242]}`,
			want:    Session{ID: "sess-1", Username: "partner_user", PartnerID: 4242},
		},
		{
			name:    "bare array",
			payload: `["sess-2","partner_user","4242"]`,
			want:    Session{ID: "sess-2", Username: "partner_user", PartnerID: 4242},
		},
		{
			name:    "numeric session id",
			payload: `{"Messages":[12345,"partner_user",1]}`,
			want:    Session{ID: "12345", Username: "partner_user", PartnerID: 1},
		},
		{
			name:    "extra trailing fields ignored",
			payload: `["sess-3","u",7,"extra",true]`,
			want:    Session{ID: "sess-3", Username: "u", PartnerID: 7},
		},
		{
			name:    "too short",
			payload: `["sess-4","u"]`,
			wantErr: true,
		},
		{
			name:    "empty session id",
			payload: `["","u",7]`,
			wantErr: true,
		},
		{
			name:    "empty payload",
			payload: ``,
			wantErr: true,
		},
		{
			name:    "unrecognized shape",
			payload: `"just a string"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHandshake([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseHandshake(%s) expected error, got %+v", tt.payload, got)
				}

				return
			}

			if err != nil {
				t.Fatalf("parseHandshake(%s) error: %v", tt.payload, err)
			}

			if *got != tt.want {
				t.Errorf("parseHandshake(%s) = %+v, want %+v", tt.payload, *got, tt.want)
			}
		})
	}
}

func TestParseHandshakeAuthRejected(t *testing.T) {
	_, err := parseHandshake([]byte(`{"Error":"bad token"}`))
	if !errors.Is(err, ErrAuthRejected) {
		t.Errorf("expected ErrAuthRejected, got %v", err)
	}
}

func TestPickLiveServer(t *testing.T) {
	servers := []Server{
		{Name: "Demo-1", Address: "demo.example.com:443"},
		{Name: "Live-2", Address: "live.example.com:443"},
	}

	if got := PickLiveServer(servers); got.Address != "live.example.com:443" {
		t.Errorf("PickLiveServer picked %+v", got)
	}

	// Без live-сервера берётся первый
	onlyDemo := servers[:1]
	if got := PickLiveServer(onlyDemo); got.Address != "demo.example.com:443" {
		t.Errorf("PickLiveServer picked %+v", got)
	}
}
