package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/adwizard/internal/auth"
	"github.com/lehigh-university-libraries/adwizard/internal/config"
	"github.com/lehigh-university-libraries/adwizard/internal/contract"
	"github.com/lehigh-university-libraries/adwizard/internal/gemini"
	"github.com/lehigh-university-libraries/adwizard/internal/imagen"
	"github.com/lehigh-university-libraries/adwizard/internal/openai"
	"github.com/lehigh-university-libraries/adwizard/internal/providers"
	"github.com/lehigh-university-libraries/adwizard/internal/session"
	"github.com/lehigh-university-libraries/adwizard/internal/storage"
	"github.com/lehigh-university-libraries/adwizard/internal/wizard"
)

// app is everything a command needs, built from config
type app struct {
	kv       storage.KV
	store    *session.Store
	contract *contract.Service
	gate     *auth.Gate
	wizard   *wizard.Wizard
}

func openKV(cfg *config.Config) (storage.KV, error) {
	if cfg.Store == config.StoreMemory {
		slog.Warn("Using in-memory store, nothing will survive a restart")
		return storage.NewMemory(), nil
	}
	kv, err := storage.OpenSQLite(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	slog.Debug("Opened session store", "path", cfg.DBPath())
	return kv, nil
}

// newProviders picks the text and image backends named in config
func newProviders(cfg *config.Config) (providers.TextProvider, providers.ImageProvider) {
	if cfg.Backend == config.BackendOpenAI {
		o := openai.New()
		if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
			o.BaseURL = base
		}
		return o, o
	}
	return gemini.New(), imagen.New()
}

// envCredential is the API key exported for the configured backend
func envCredential(cfg *config.Config) string {
	if cfg.Backend == config.BackendOpenAI {
		return os.Getenv("OPENAI_API_KEY")
	}
	return os.Getenv("GEMINI_API_KEY")
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	kv, err := openKV(cfg)
	if err != nil {
		return nil, err
	}
	store := session.New(kv)

	if err := seedCredential(ctx, store, envCredential(cfg)); err != nil {
		_ = kv.Close()
		return nil, err
	}

	text, images := newProviders(cfg)
	svc := contract.NewService(text, images, store, contract.WithModels(contract.Models{
		Fast:  cfg.FastModel,
		Pro:   cfg.ProModel,
		Image: cfg.ImageModel,
	}))

	gate := auth.NewGate(cfg.PINHash)
	if gate.Open() {
		slog.Warn("No pin_hash configured, any PIN will be accepted")
	}

	w, err := wizard.New(ctx, store, svc, gate)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	return &app{kv: kv, store: store, contract: svc, gate: gate, wizard: w}, nil
}

// seedCredential stores key when the session has none yet
func seedCredential(ctx context.Context, store *session.Store, key string) error {
	if key == "" {
		return nil
	}
	current, err := store.Credential(ctx)
	if err != nil {
		return err
	}
	if current != "" {
		return nil
	}
	slog.Info("Seeding API key from environment")
	return store.SaveCredential(ctx, key)
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		slog.Error("Unable to close session store", "err", err)
	}
}
