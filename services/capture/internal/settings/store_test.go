package settings

import (
	"context"
	"testing"

	"jobsnap/common/cache"
	"jobsnap/common/cache/memory"
	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/models"

	"go.uber.org/zap/zaptest"
)

func TestLoadEmpty(t *testing.T) {
	s := NewStore(memory.New(cache.DefaultOptions()), zaptest.NewLogger(t))

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != (models.Settings{}) {
		t.Errorf("Load = %+v, want empty", got)
	}
	if got.MissingField() != models.SettingsKeyAPIKey {
		t.Errorf("MissingField = %q", got.MissingField())
	}
}

func TestSaveTrimsAndPersists(t *testing.T) {
	c := memory.New(cache.DefaultOptions())
	s := NewStore(c, zaptest.NewLogger(t))
	ctx := context.Background()

	if err := s.Save(ctx, models.Settings{APIKey: "  key-1234 ", WebhookURL: "\thttps://script.example.com/exec\n"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := models.Settings{APIKey: "key-1234", WebhookURL: "https://script.example.com/exec"}
	if got != want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}

	var raw models.Settings
	if err := c.Get(ctx, "settings:current", &raw); err != nil || raw != want {
		t.Errorf("stored value = %+v, %v", raw, err)
	}
}

func TestSaveReplacesBothFieldsTogether(t *testing.T) {
	s := NewStore(memory.New(cache.DefaultOptions()), zaptest.NewLogger(t))
	ctx := context.Background()

	if err := s.Save(ctx, models.Settings{APIKey: "old-key", WebhookURL: "https://old"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, models.Settings{APIKey: "new-key", WebhookURL: "https://new"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := (models.Settings{APIKey: "new-key", WebhookURL: "https://new"}); got != want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
}

// countingCache counts reads against the wrapped cache.
type countingCache struct {
	cache.Cache
	gets int
}

func (c *countingCache) Get(ctx context.Context, key string, value interface{}) error {
	c.gets++
	return c.Cache.Get(ctx, key, value)
}

func TestLoadReadsOneKey(t *testing.T) {
	c := &countingCache{Cache: memory.New(cache.DefaultOptions())}
	s := NewStore(c, zaptest.NewLogger(t))
	ctx := context.Background()

	if err := s.Save(ctx, models.Settings{APIKey: "k", WebhookURL: "https://w"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if c.gets != 1 {
		t.Errorf("Load issued %d cache reads, want 1", c.gets)
	}
}

func TestClosedCacheIsUnavailable(t *testing.T) {
	c := memory.New(cache.DefaultOptions())
	c.Close()
	s := NewStore(c, zaptest.NewLogger(t))

	if _, err := s.Load(context.Background()); !errors.IsType(err, errors.ErrTypeUnavailable) {
		t.Errorf("Load err = %v, want unavailable", err)
	}
	if err := s.Save(context.Background(), models.Settings{APIKey: "a", WebhookURL: "b"}); !errors.IsType(err, errors.ErrTypeUnavailable) {
		t.Errorf("Save err = %v, want unavailable", err)
	}
}
