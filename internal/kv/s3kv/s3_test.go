package s3kv

import (
	"testing"

	"github.com/3vilTid/Catalogue-Web-App/internal/codec/gzipcodec"
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
		{"a/b/c/", "a/b/c/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s := &Store{}
			if err := WithPrefix(tt.input)(s); err != nil {
				t.Fatalf("WithPrefix() error = %v", err)
			}
			if s.prefix != tt.want {
				t.Errorf("prefix = %q, want %q", s.prefix, tt.want)
			}
		})
	}
}

func TestStore_recordKey(t *testing.T) {
	s := &Store{codec: zstdcodec.New(), prefix: "data/"}

	got := s.recordKey("items")
	if want := "data/records/6974656d73.zst"; got != want {
		t.Errorf("recordKey() = %q, want %q", got, want)
	}

	key, ok := s.keyFromObject(got)
	if !ok || key != "items" {
		t.Errorf("keyFromObject() = %q, %v, want %q", key, ok, "items")
	}
}

func TestStore_keyFromObject_Foreign(t *testing.T) {
	s := &Store{codec: gzipcodec.New()}
	if _, ok := s.keyFromObject("records/not-hex.gz"); ok {
		t.Error("keyFromObject() should reject non-hex names")
	}
}
