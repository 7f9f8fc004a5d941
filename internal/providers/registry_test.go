package providers

import (
	"sync"
	"testing"
	"time"
)

// notAnAnimator is a Provider that implements no role.
type notAnAnimator struct{}

func (notAnAnimator) Name() string { return "bare" }

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMock()

		r.Register("test", mock)

		p, err := r.Get("test")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if p != mock {
			t.Error("got different provider than registered")
		}
	})

	t.Run("role lookups", func(t *testing.T) {
		r := NewRegistry()
		r.Register("mock", NewMock())
		r.Register("bare", notAnAnimator{})

		if _, err := r.Analyzer("mock"); err != nil {
			t.Errorf("Analyzer() error = %v", err)
		}
		if _, err := r.Illustrator("mock"); err != nil {
			t.Errorf("Illustrator() error = %v", err)
		}
		if _, err := r.Animator("mock"); err != nil {
			t.Errorf("Animator() error = %v", err)
		}
		if _, err := r.Animator("bare"); err == nil {
			t.Error("expected error for provider without the animator role")
		}
		if _, err := r.Analyzer("missing"); err == nil {
			t.Error("expected error for nonexistent provider")
		}
	})

	t.Run("list and has", func(t *testing.T) {
		r := NewRegistry()
		r.Register("b", NewMock())
		r.Register("a", NewMock())

		list := r.List()
		if len(list) != 2 || list[0] != "a" {
			t.Errorf("List() = %v", list)
		}
		if !r.Has("a") || r.Has("c") {
			t.Error("Has() returned wrong result")
		}
		r.Unregister("a")
		if r.Has("a") {
			t.Error("Unregister() did not remove provider")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.Register("concurrent", NewMock())
			}()
			go func() {
				defer wg.Done()
				r.Get("concurrent") // may fail, that's ok
			}()
		}
		wg.Wait()
	})
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Run("registers providers from config", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"openai": {Type: "openai", APIKey: "test-key", Enabled: true},
				"mock":   {Type: "mock", Enabled: true},
			},
		})

		if !r.Has("openai") || !r.Has("mock") {
			t.Errorf("expected both providers, got %v", r.List())
		}
	})

	t.Run("skips disabled and keyless providers", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"off":    {Type: "openai", APIKey: "k", Enabled: false},
				"nokey":  {Type: "openai", Enabled: true},
				"bogus":  {Type: "bogus", APIKey: "k", Enabled: true},
				"mockok": {Type: "mock", Enabled: true},
			},
		})

		if got := r.List(); len(got) != 1 || got[0] != "mockok" {
			t.Errorf("List() = %v, want [mockok]", got)
		}
	})

	t.Run("uses custom models", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"openai": {Type: "openai", Model: "custom-chat", ImageModel: "custom-image", APIKey: "k", Enabled: true},
			},
		})

		p, _ := r.Get("openai")
		c, ok := p.(*OpenAIClient)
		if !ok {
			t.Fatal("expected OpenAIClient")
		}
		if c.model != "custom-chat" || c.imageModel != "custom-image" || c.videoModel != openAIDefaultVideoModel {
			t.Errorf("models = %s/%s/%s", c.model, c.imageModel, c.videoModel)
		}
	})
}

func TestRegistry_Reload(t *testing.T) {
	cfg := RegistryConfig{
		Providers: map[string]ProviderConfig{
			"openai": {Type: "openai", APIKey: "key-1", Enabled: true},
		},
	}
	r := NewRegistryFromConfig(cfg)
	first, _ := r.Get("openai")

	t.Run("keeps unchanged providers", func(t *testing.T) {
		r.Reload(cfg)
		same, _ := r.Get("openai")
		if same != first {
			t.Error("provider recreated without config change")
		}
	})

	t.Run("recreates changed providers", func(t *testing.T) {
		r.Reload(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"openai": {Type: "openai", APIKey: "key-2", PollInterval: time.Second, Enabled: true},
			},
		})
		updated, _ := r.Get("openai")
		if updated == first {
			t.Error("provider not recreated after key change")
		}
		if c := updated.(*OpenAIClient); c.apiKey != "key-2" || c.pollInterval != time.Second {
			t.Errorf("reloaded client = %+v", c)
		}
	})

	t.Run("removes providers no longer configured", func(t *testing.T) {
		r.Reload(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"mock": {Type: "mock", Enabled: true},
			},
		})
		if r.Has("openai") {
			t.Error("openai should be unregistered")
		}
		if !r.Has("mock") {
			t.Error("mock should be registered")
		}
	})
}
