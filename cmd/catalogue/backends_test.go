package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/3vilTid/Catalogue-Web-App/internal/config"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/cachedkv"
	"github.com/3vilTid/Catalogue-Web-App/internal/partition/diskpart"
	"github.com/3vilTid/Catalogue-Web-App/internal/partition/mempart"
)

func TestNewCodec(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "zstd", false},
		{"zstd", "zstd", false},
		{"gzip", "gzip", false},
		{"none", "none", false},
		{"lz4", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := newCodec(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newCodec(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err == nil && c.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", c.Name(), tt.want)
			}
		})
	}
}

func TestStoreOpener(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name   string
		sc     config.StoreConfig
		cached bool
	}{
		{"memory", config.StoreConfig{Backend: config.BackendMemory}, false},
		{"sqlite", config.StoreConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "c.db")}, false},
		{"disk cached", config.StoreConfig{Backend: config.BackendDisk, Path: filepath.Join(dir, "kv"), Codec: "gzip", CacheSize: 8}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := storeOpener(tt.sc, nil)(ctx)
			if err != nil {
				t.Fatalf("open error = %v", err)
			}
			defer st.Close()
			if _, ok := st.(*cachedkv.Store); ok != tt.cached {
				t.Errorf("cached = %v, want %v", ok, tt.cached)
			}
		})
	}

	if _, err := storeOpener(config.StoreConfig{Backend: "tape"}, nil)(ctx); err == nil {
		t.Error("unknown backend: expected error")
	}
}

func TestNewPartitions(t *testing.T) {
	s, err := newPartitions(config.CacheConfig{}, "zstd")
	if err != nil {
		t.Fatalf("newPartitions() error = %v", err)
	}
	if _, ok := s.(*mempart.Storage); !ok {
		t.Errorf("newPartitions() = %T, want *mempart.Storage", s)
	}

	s, err = newPartitions(config.CacheConfig{Dir: t.TempDir()}, "zstd")
	if err != nil {
		t.Fatalf("newPartitions() error = %v", err)
	}
	if _, ok := s.(*diskpart.Storage); !ok {
		t.Errorf("newPartitions() = %T, want *diskpart.Storage", s)
	}
}
