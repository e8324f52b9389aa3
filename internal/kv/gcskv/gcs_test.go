package gcskv

import (
	"testing"

	"github.com/3vilTid/Catalogue-Web-App/internal/codec/noopcodec"
	"github.com/3vilTid/Catalogue-Web-App/internal/codec/zstdcodec"
)

func TestWithPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"prefix", "prefix/"},
		{"prefix/", "prefix/"},
		{"a/b/c", "a/b/c/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s := &Store{}
			WithPrefix(tt.input)(s)
			if s.prefix != tt.want {
				t.Errorf("prefix = %q, want %q", s.prefix, tt.want)
			}
		})
	}
}

func TestStore_recordKey(t *testing.T) {
	tests := []struct {
		name  string
		store *Store
		key   string
		want  string
	}{
		{"zstd", &Store{codec: zstdcodec.New()}, "items", "records/6974656d73.zst"},
		{"prefixed", &Store{codec: zstdcodec.New(), prefix: "kiosk/"}, "_metadata", "kiosk/records/5f6d65746164617461.zst"},
		{"noop", &Store{codec: noopcodec.New()}, "tab_2_items", "records/7461625f325f6974656d73"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.store.recordKey(tt.key)
			if got != tt.want {
				t.Errorf("recordKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
			back, ok := tt.store.keyFromObject(got)
			if !ok || back != tt.key {
				t.Errorf("keyFromObject(%q) = %q, %v, want %q", got, back, ok, tt.key)
			}
		})
	}
}
