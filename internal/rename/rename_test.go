package rename_test

import (
	"testing"

	"mkvtag/internal/rename"
)

func TestNewEmptyPatternDisablesRenaming(t *testing.T) {
	engine, err := rename.New("   ")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if engine != nil {
		t.Fatal("expected nil engine for empty pattern")
	}
	if name, ok := engine.CleanName("movie.mkv"); ok || name != "movie.mkv" {
		t.Fatalf("nil engine must clean nothing: got %q ok=%v", name, ok)
	}
}

func TestNewInvalidPattern(t *testing.T) {
	if _, err := rename.New("["); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestCleanName(t *testing.T) {
	engine, err := rename.New(`_t\d{2}`)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"strips match", "movie_t03.mkv", "movie.mkv", true},
		{"strips every match", "movie_t01_t02.mkv", "movie.mkv", true},
		{"case insensitive", "movie_T03.mkv", "movie.mkv", true},
		{"no match", "movie.mkv", "movie.mkv", false},
		{"result would be only extension", "_t01.mkv", "_t01.mkv", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := engine.CleanName(tc.in)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("CleanName(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestCleanNameRejectsEmptyResult(t *testing.T) {
	engine, err := rename.New(`.+`)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, ok := engine.CleanName("movie.mkv"); ok {
		t.Fatalf("expected rejection of empty result, got %q", got)
	}
}
