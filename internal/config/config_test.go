package config

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "minimal",
			args: []string{"127.0.0.1", "10000"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Addr() != "127.0.0.1:10000" {
					t.Errorf("Addr = %q", cfg.Addr())
				}
				if cfg.MaxClients != DefaultMaxClients || cfg.MaxRooms != DefaultMaxRooms {
					t.Errorf("defaults not applied: %+v", cfg)
				}
			},
		},
		{
			name: "limits and sinks",
			args: []string{"0.0.0.0", "10000", "-c", "50", "-r", "20",
				"-admin", "localhost:8080", "-redis", "localhost:6379",
				"-journal-db", "events.db"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.MaxClients != 50 || cfg.MaxRooms != 20 {
					t.Errorf("limits not parsed: %+v", cfg)
				}
				if cfg.AdminAddr != "localhost:8080" || cfg.RedisAddr != "localhost:6379" {
					t.Errorf("addresses not parsed: %+v", cfg)
				}
				if cfg.JournalDB != "events.db" {
					t.Errorf("journal db not parsed: %+v", cfg)
				}
			},
		},
		{name: "missing port", args: []string{"127.0.0.1"}, wantErr: true},
		{name: "bad ip", args: []string{"not-an-ip", "10000"}, wantErr: true},
		{name: "bad port", args: []string{"127.0.0.1", "banana"}, wantErr: true},
		{name: "port out of range", args: []string{"127.0.0.1", "70000"}, wantErr: true},
		{name: "zero clients", args: []string{"127.0.0.1", "10000", "-c", "0"}, wantErr: true},
		{name: "bad admin addr", args: []string{"127.0.0.1", "10000", "-admin", "no-port"}, wantErr: true},
		{name: "stray argument", args: []string{"127.0.0.1", "10000", "stray"}, wantErr: true},
		{name: "unknown flag", args: []string{"127.0.0.1", "10000", "-x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%v) succeeded, want error", tt.args)
				}
				if !errors.Is(err, ErrUsage) {
					t.Errorf("error %v is not ErrUsage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%v): %v", tt.args, err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
