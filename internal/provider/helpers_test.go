package provider

import (
	"testing"
	"time"

	"vodcast/internal/domain"
)

func TestClampPageSize(t *testing.T) {
	tests := map[int]int{
		0:    defaultPageSize,
		-5:   defaultPageSize,
		10:   10,
		500:  maxPageSize,
		200:  200,
	}
	for input, want := range tests {
		if got := clampPageSize(input); got != want {
			t.Errorf("clampPageSize(%d) = %d, want %d", input, got, want)
		}
	}
}

func TestSplitPath(t *testing.T) {
	got := splitPath("/channel/UC123/videos/")
	want := []string{"channel", "UC123", "videos"}
	if len(got) != len(want) {
		t.Fatalf("splitPath() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitPath()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSortItems(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	items := []ListingItem{
		{ID: "old", PublishedAt: older},
		{ID: "new", PublishedAt: newer},
	}

	sortItems(items, domain.SortDescending)
	if items[0].ID != "new" {
		t.Errorf("SortDescending: items[0].ID = %q, want %q", items[0].ID, "new")
	}

	sortItems(items, domain.SortAscending)
	if items[0].ID != "old" {
		t.Errorf("SortAscending: items[0].ID = %q, want %q", items[0].ID, "old")
	}
}
