package provider_test

import (
	"context"
	"errors"
	"testing"

	"vodcast/internal/domain"
	"vodcast/internal/provider"
)

type fakeCapability struct {
	snapshot *provider.FeedSnapshot
	info     *provider.PlaylistInfo
}

func (f *fakeCapability) Build(ctx context.Context, sourceURL string, pageSize int, sort domain.SortOrder) (*provider.FeedSnapshot, error) {
	return f.snapshot, nil
}

func (f *fakeCapability) PlaylistMetadata(ctx context.Context, sourceURL string) (*provider.PlaylistInfo, error) {
	return f.info, nil
}

func TestNewRegistry_RegistersAllKnownTags(t *testing.T) {
	r := provider.NewRegistry(nil, nil)

	for _, tag := range []string{provider.TagYouTube, provider.TagVimeo, provider.TagSoundCloud, provider.TagTwitch} {
		if _, err := r.Resolve(tag); err != nil {
			t.Errorf("Resolve(%q) error = %v, want a registered adapter even with no configured keys", tag, err)
		}
	}
}

func TestRegistry_Resolve_UnknownTag(t *testing.T) {
	r := provider.NewRegistry(nil, nil)

	_, err := r.Resolve("dailymotion")
	if err == nil {
		t.Fatal("Resolve(\"dailymotion\") error = nil, want an error for an unregistered tag")
	}
}

func TestRegistry_Register_OverridesAdapter(t *testing.T) {
	r := provider.NewRegistry(nil, nil)
	fake := &fakeCapability{snapshot: &provider.FeedSnapshot{Title: "Stubbed Channel"}}

	r.Register(provider.TagYouTube, fake)

	resolved, err := r.Resolve(provider.TagYouTube)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	snap, err := resolved.Build(context.Background(), "https://www.youtube.com/channel/UC123", 10, domain.SortDescending)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if snap.Title != "Stubbed Channel" {
		t.Errorf("Build().Title = %q, want %q", snap.Title, "Stubbed Channel")
	}
}

func TestRegistry_Resolve_NoKeysConfiguredFailsLazily(t *testing.T) {
	r := provider.NewRegistry(nil, nil)

	adapter, err := r.Resolve(provider.TagYouTube)
	if err != nil {
		t.Fatalf("Resolve() error = %v, want the adapter to exist even with no keys", err)
	}

	_, buildErr := adapter.Build(context.Background(), "https://www.youtube.com/channel/UC123", 10, domain.SortDescending)
	if buildErr == nil {
		t.Fatal("Build() error = nil, want ErrNoKeysConfigured to surface on first use")
	}
	if !errors.Is(buildErr, provider.ErrNoKeysConfigured) {
		t.Errorf("Build() error = %v, want it to wrap ErrNoKeysConfigured", buildErr)
	}
}
