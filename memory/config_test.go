package memory_test

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/tailored-agentic-units/studyplan/memory"
)

func TestDefaultConfig(t *testing.T) {
	cfg := memory.DefaultConfig()

	if cfg.Backend != "" || cfg.Path != "" {
		t.Errorf("got %+v, want disabled", cfg)
	}
	if cfg.Redis.Prefix != memory.DefaultRedisPrefix {
		t.Errorf("got prefix %q, want %q", cfg.Redis.Prefix, memory.DefaultRedisPrefix)
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := memory.Config{Path: "/original", Redis: memory.RedisConfig{Addr: "a:1", DB: 2}}

	cfg.Merge(&memory.Config{Backend: memory.BackendRedis, Redis: memory.RedisConfig{Addr: "b:2"}})

	if cfg.Backend != memory.BackendRedis || cfg.Path != "/original" {
		t.Errorf("got %+v", cfg)
	}
	if cfg.Redis.Addr != "b:2" || cfg.Redis.DB != 2 {
		t.Errorf("got redis %+v", cfg.Redis)
	}
}

func TestNewStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     memory.Config
		wantNil bool
		wantErr error
	}{
		{name: "disabled", cfg: memory.Config{}, wantNil: true},
		{name: "path implies file", cfg: memory.Config{Path: t.TempDir()}},
		{name: "file without path", cfg: memory.Config{Backend: memory.BackendFile}, wantErr: memory.ErrMissingPath},
		{name: "redis", cfg: memory.Config{Backend: memory.BackendRedis, Redis: memory.RedisConfig{Addr: mr.Addr()}}},
		{name: "unknown", cfg: memory.Config{Backend: "etcd"}, wantErr: memory.ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := memory.NewStore(&tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewStore() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewStore() error = %v", err)
			}
			if (store == nil) != tt.wantNil {
				t.Errorf("NewStore() = %v, wantNil %v", store, tt.wantNil)
			}
		})
	}
}
