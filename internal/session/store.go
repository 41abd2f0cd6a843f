// Package session mirrors wizard state into a storage.KV so a restart resumes
// at the same step with the same data.
//
// Every field lives under its own key and is JSON-encoded independently.
// Loading never fails on bad data: an absent or unparsable field falls back
// to its default and the problem is logged.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/adwizard/internal/models"
	"github.com/lehigh-university-libraries/adwizard/internal/storage"
)

// Persisted keys
const (
	KeyAuthenticated = "isAuthenticated"
	KeyStep          = "currentStep"
	KeyForm          = "formData"
	KeyCreatives     = "generatedCreatives"
	KeyHistory       = "generationHistory"
	KeyCredential    = "gemini-api-key"
)

const (
	FirstStep = 1
	LastStep  = 4
)

// Snapshot is the durable part of a wizard session
type Snapshot struct {
	Authenticated bool
	Step          int
	Form          models.FormSnapshot
	Creatives     []models.AdCreative
	History       []models.HistoryEntry
}

// Defaults returns the snapshot of a brand-new session
func Defaults() Snapshot {
	return Snapshot{
		Step:    FirstStep,
		Form:    models.DefaultForm(),
		History: []models.HistoryEntry{},
	}
}

type Store struct {
	kv storage.KV
}

func New(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Load rehydrates every field independently. Only a failing KV is an error.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	snap := Defaults()

	if _, err := s.loadJSON(ctx, KeyAuthenticated, &snap.Authenticated); err != nil {
		return snap, err
	}

	var step int
	ok, err := s.loadJSON(ctx, KeyStep, &step)
	if err != nil {
		return snap, err
	}
	if ok {
		if step < FirstStep || step > LastStep {
			slog.Warn("Ignoring out of range persisted step", "step", step)
		} else {
			snap.Step = step
		}
	}

	var form models.FormSnapshot
	if ok, err := s.loadJSON(ctx, KeyForm, &form); err != nil {
		return snap, err
	} else if ok {
		if len(form.USP) == 0 {
			form.USP = []string{""}
		}
		form.VariantCount = models.ClampVariants(form.VariantCount)
		snap.Form = form
	}

	var creatives []models.AdCreative
	if ok, err := s.loadJSON(ctx, KeyCreatives, &creatives); err != nil {
		return snap, err
	} else if ok {
		snap.Creatives = creatives
	}

	var history []models.HistoryEntry
	if ok, err := s.loadJSON(ctx, KeyHistory, &history); err != nil {
		return snap, err
	} else if ok && history != nil {
		snap.History = history
	}
	if err := s.assignHistoryIDs(ctx, snap.History); err != nil {
		return snap, err
	}

	return snap, nil
}

// assignHistoryIDs gives entries saved without an id a fresh one and writes
// the list back so the ids stay stable across loads
func (s *Store) assignHistoryIDs(ctx context.Context, history []models.HistoryEntry) error {
	assigned := 0
	for i := range history {
		if history[i].ID == "" {
			history[i].ID = uuid.NewString()
			assigned++
		}
	}
	if assigned == 0 {
		return nil
	}
	slog.Info("Assigned ids to history entries", "count", assigned)
	return s.SaveHistory(ctx, history)
}

// loadJSON decodes key into dst. Corrupt values are reported as absent.
func (s *Store) loadJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.Warn("Discarding corrupt persisted value", "key", key, "err", err)
		return false, nil
	}
	return true, nil
}

func (s *Store) saveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, data)
}

func (s *Store) SaveAuthenticated(ctx context.Context, authenticated bool) error {
	if !authenticated {
		return s.kv.Remove(ctx, KeyAuthenticated)
	}
	return s.saveJSON(ctx, KeyAuthenticated, true)
}

func (s *Store) SaveStep(ctx context.Context, step int) error {
	return s.saveJSON(ctx, KeyStep, step)
}

func (s *Store) SaveForm(ctx context.Context, form models.FormSnapshot) error {
	return s.saveJSON(ctx, KeyForm, form)
}

// SaveCreatives stores the current result; nil removes it
func (s *Store) SaveCreatives(ctx context.Context, creatives []models.AdCreative) error {
	if creatives == nil {
		return s.kv.Remove(ctx, KeyCreatives)
	}
	return s.saveJSON(ctx, KeyCreatives, creatives)
}

func (s *Store) SaveHistory(ctx context.Context, history []models.HistoryEntry) error {
	if history == nil {
		history = []models.HistoryEntry{}
	}
	return s.saveJSON(ctx, KeyHistory, history)
}

// ClearProgress drops step, form and result. History is kept.
func (s *Store) ClearProgress(ctx context.Context) error {
	for _, key := range []string{KeyForm, KeyStep, KeyCreatives} {
		if err := s.kv.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Credential returns the stored API key, trimmed. It is kept as a raw
// string rather than JSON.
func (s *Store) Credential(ctx context.Context) (string, error) {
	raw, ok, err := s.kv.Get(ctx, KeyCredential)
	if err != nil {
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(string(raw)), nil
}

func (s *Store) SaveCredential(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.kv.Remove(ctx, KeyCredential)
	}
	return s.kv.Set(ctx, KeyCredential, []byte(key))
}

func (s *Store) ClearCredential(ctx context.Context) error {
	return s.kv.Remove(ctx, KeyCredential)
}
