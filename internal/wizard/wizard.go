// Package wizard is the four-step ad creation flow: Goal, Info, Style and
// Result. It owns the session state, mirrors every change through the
// session store and hands generation work to the contract layer.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/adwizard/internal/contract"
	"github.com/lehigh-university-libraries/adwizard/internal/models"
	"github.com/lehigh-university-libraries/adwizard/internal/session"
)

const (
	StepGoal   = 1
	StepInfo   = 2
	StepStyle  = 3
	StepResult = 4
)

// Phase qualifies the Result step
type Phase string

const (
	PhaseIdle    Phase = "idle" // steps 1-3
	PhaseLoading Phase = "loading"
	PhaseError   Phase = "error"
	PhaseReady   Phase = "ready"
)

var (
	ErrBusy            = errors.New("an operation is already in progress")
	ErrWrongStep       = errors.New("operation not allowed at the current step")
	ErrInvalidForm     = errors.New("form is incomplete")
	ErrNoResult        = errors.New("there are no creatives to refine")
	ErrHistoryNotFound = errors.New("history entry not found")
	ErrInvalidPIN      = errors.New("invalid PIN")
)

// Generator is the contract layer as seen by the wizard
type Generator interface {
	Extract(ctx context.Context, content, filename string, tier models.AIModel) (contract.ExtractedInfo, error)
	ExtractURL(ctx context.Context, url string) (contract.ExtractedInfo, error)
	Generate(ctx context.Context, form models.FormSnapshot) ([]models.AdCreative, error)
	Refine(ctx context.Context, current []models.AdCreative, instruction string, form models.FormSnapshot) ([]models.AdCreative, error)
}

// PINChecker guards the wizard behind a local PIN
type PINChecker interface {
	Check(pin string) bool
}

// State is a point-in-time copy of the session
type State struct {
	Authenticated bool                  `json:"authenticated"`
	Step          int                   `json:"currentStep"`
	Phase         Phase                 `json:"phase"`
	Form          models.FormSnapshot   `json:"formData"`
	Creatives     []models.AdCreative   `json:"generatedCreatives"`
	History       []models.HistoryEntry `json:"history"`
	LastError     string                `json:"lastError,omitempty"`
	Busy          bool                  `json:"busy"`
	HasCredential bool                  `json:"hasCredential"`
}

func (s State) clone() State {
	s.Form = s.Form.Clone()
	s.Creatives = models.CloneCreatives(s.Creatives)
	s.History = slices.Clone(s.History)
	return s
}

type Wizard struct {
	mu    sync.Mutex
	store *session.Store
	gen   Generator
	gate  PINChecker
	state State
	// epoch is bumped by every restart so late background results can tell
	// they belong to an abandoned run
	epoch uint64

	now   func() time.Time
	newID func() string
}

// New rehydrates the session from store
func New(ctx context.Context, store *session.Store, gen Generator, gate PINChecker) (*Wizard, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	key, err := store.Credential(ctx)
	if err != nil {
		return nil, err
	}

	w := &Wizard{
		store: store,
		gen:   gen,
		gate:  gate,
		now:   time.Now,
		newID: uuid.NewString,
		state: State{
			Authenticated: snap.Authenticated,
			Step:          snap.Step,
			Form:          snap.Form,
			Creatives:     snap.Creatives,
			History:       snap.History,
			HasCredential: key != "",
		},
	}
	w.state.Phase = w.restingPhase()
	if w.state.Step == StepResult && w.state.Creatives == nil {
		// the process went away while a generation was in flight
		w.state.LastError = contract.UserMessage(contract.ErrGeneration)
	}

	slog.Info("Session restored", "step", w.state.Step, "phase", w.state.Phase, "history", len(w.state.History))
	return w, nil
}

// State returns a copy of the current session
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// restingPhase is the phase the current step settles in when nothing is running
func (w *Wizard) restingPhase() Phase {
	switch {
	case w.state.Step != StepResult:
		return PhaseIdle
	case w.state.Busy:
		return PhaseLoading
	case w.state.Creatives != nil:
		return PhaseReady
	default:
		return PhaseError
	}
}

func (w *Wizard) setStep(ctx context.Context, step int) error {
	w.state.Step = min(max(step, StepGoal), StepResult)
	w.state.Phase = w.restingPhase()
	return w.store.SaveStep(ctx, w.state.Step)
}

// Next advances one step, applying the gate of the step being left
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Busy {
		return ErrBusy
	}
	if w.state.Step == StepResult {
		return nil
	}
	if err := checkStep(w.state.Step, w.state.Form); err != nil {
		return err
	}
	return w.setStep(ctx, w.state.Step+1)
}

// Back retreats one step; the form is left as it is
func (w *Wizard) Back(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Busy {
		return ErrBusy
	}
	return w.setStep(ctx, w.state.Step-1)
}

// SelectGoal records the goal and moves on to the Info step
func (w *Wizard) SelectGoal(ctx context.Context, goal models.Goal) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Busy {
		return ErrBusy
	}
	if w.state.Step != StepGoal {
		return ErrWrongStep
	}
	if !goal.Valid() {
		return fmt.Errorf("%w: unknown goal %q", ErrInvalidForm, goal)
	}

	w.state.Form.Goal = goal
	if err := w.store.SaveForm(ctx, w.state.Form); err != nil {
		return err
	}
	return w.setStep(ctx, StepInfo)
}

// Extract analyses uploaded content (or a URL) with the currently selected
// model. The form is not touched until ConfirmInfo.
func (w *Wizard) Extract(ctx context.Context, content, filename, url string) (contract.ExtractedInfo, error) {
	w.mu.Lock()
	step, tier := w.state.Step, w.state.Form.AIModel
	w.mu.Unlock()

	if step != StepInfo {
		return contract.ExtractedInfo{}, ErrWrongStep
	}
	if content == "" && url != "" {
		return w.gen.ExtractURL(ctx, url)
	}
	return w.gen.Extract(ctx, content, filename, tier)
}

// InfoUpdate is the reviewed product information confirmed at step 2
type InfoUpdate struct {
	ProductDescription string   `json:"productDescription"`
	TargetAudience     string   `json:"targetAudience"`
	USP                []string `json:"usp"`
	WebsiteURL         string   `json:"websiteUrl"`
	Keywords           string   `json:"keywords"`
}

// ConfirmInfo merges the reviewed information into the form and moves to Style
func (w *Wizard) ConfirmInfo(ctx context.Context, info InfoUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Busy {
		return ErrBusy
	}
	if w.state.Step != StepInfo {
		return ErrWrongStep
	}

	form := w.state.Form.Clone()
	form.ProductDescription = info.ProductDescription
	form.TargetAudience = info.TargetAudience
	form.USP = slices.Clone(info.USP)
	if len(form.USP) == 0 {
		form.USP = []string{""}
	}
	form.WebsiteURL = info.WebsiteURL
	form.Keywords = info.Keywords

	if err := checkStep(StepInfo, form); err != nil {
		return err
	}

	w.state.Form = form
	if err := w.store.SaveForm(ctx, form); err != nil {
		return err
	}
	return w.setStep(ctx, StepStyle)
}

// StylePatch changes generation settings; nil fields are left alone
type StylePatch struct {
	CreativeStyle *models.CreativeStyle `json:"creativeStyle,omitempty"`
	VariantCount  *int                  `json:"variantCount,omitempty"`
	AIModel       *models.AIModel       `json:"aiModel,omitempty"`
}

func (w *Wizard) UpdateStyle(ctx context.Context, patch StylePatch) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Busy {
		return ErrBusy
	}
	if w.state.Step != StepStyle {
		return ErrWrongStep
	}

	form := w.state.Form.Clone()
	if patch.CreativeStyle != nil {
		if !patch.CreativeStyle.Valid() {
			return fmt.Errorf("%w: unknown style %q", ErrInvalidForm, *patch.CreativeStyle)
		}
		form.CreativeStyle = *patch.CreativeStyle
	}
	if patch.VariantCount != nil {
		form.VariantCount = models.ClampVariants(*patch.VariantCount)
	}
	if patch.AIModel != nil {
		if !patch.AIModel.Valid() {
			return fmt.Errorf("%w: unknown model %q", ErrInvalidForm, *patch.AIModel)
		}
		form.AIModel = *patch.AIModel
	}

	w.state.Form = form
	return w.store.SaveForm(ctx, form)
}

func (w *Wizard) credentialPresent(ctx context.Context) error {
	key, err := w.store.Credential(ctx)
	if err != nil {
		return err
	}
	w.state.HasCredential = key != ""
	if key == "" {
		w.state.LastError = contract.UserMessage(contract.ErrMissingCredential)
		return contract.ErrMissingCredential
	}
	return nil
}

// Generate moves straight to the Result step in the Loading phase and runs
// the generation in the background. The returned channel is closed once the
// result or error has been recorded. In-flight calls are never cancelled.
func (w *Wizard) Generate(ctx context.Context) (<-chan struct{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Busy {
		return nil, ErrBusy
	}
	if w.state.Step != StepStyle {
		return nil, ErrWrongStep
	}
	for _, step := range []int{StepGoal, StepInfo, StepStyle} {
		if err := checkStep(step, w.state.Form); err != nil {
			return nil, err
		}
	}
	if err := w.credentialPresent(ctx); err != nil {
		return nil, err
	}

	form := w.state.Form.Clone()
	w.state.Busy = true
	w.state.LastError = ""
	if err := w.setStep(ctx, StepResult); err != nil {
		w.state.Busy = false
		w.state.Phase = w.restingPhase()
		return nil, err
	}

	done := make(chan struct{})
	go w.runGenerate(context.WithoutCancel(ctx), w.epoch, form, done)
	return done, nil
}

func (w *Wizard) runGenerate(ctx context.Context, epoch uint64, form models.FormSnapshot, done chan<- struct{}) {
	defer close(done)

	start := w.now()
	creatives, err := w.gen.Generate(ctx, form)

	w.mu.Lock()
	defer w.mu.Unlock()

	stale := epoch != w.epoch
	if !stale {
		w.state.Busy = false
	}

	if err != nil {
		if stale {
			slog.Warn("Abandoned generation failed", "err", err)
			return
		}
		slog.Error("Generation failed", "err", err, "elapsed", w.now().Sub(start))
		w.state.Creatives = nil
		w.state.LastError = contract.UserMessage(err)
		w.state.Phase = PhaseError
		if err := w.store.SaveCreatives(ctx, nil); err != nil {
			slog.Error("Unable to persist creatives", "err", err)
		}
		return
	}

	entry := models.HistoryEntry{
		ID:        w.newID(),
		FormData:  form,
		Creatives: models.CloneCreatives(creatives),
		Timestamp: w.now().UnixMilli(),
	}
	w.state.History = append([]models.HistoryEntry{entry}, w.state.History...)

	if stale {
		// the wizard has moved on; the result is only kept in history
		slog.Info("Abandoned generation finished", "creatives", len(creatives), "elapsed", w.now().Sub(start))
	} else {
		w.state.Creatives = creatives
		w.state.Phase = PhaseReady
		slog.Info("Generation finished", "creatives", len(creatives), "elapsed", w.now().Sub(start))
		if err := w.store.SaveCreatives(ctx, creatives); err != nil {
			slog.Error("Unable to persist creatives", "err", err)
		}
	}
	if err := w.store.SaveHistory(ctx, w.state.History); err != nil {
		slog.Error("Unable to persist history", "err", err)
	}
}

// Refine applies a follow-up instruction to the current creatives in the
// background. On failure the previous creatives are kept.
func (w *Wizard) Refine(ctx context.Context, instruction string) (<-chan struct{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Busy {
		return nil, ErrBusy
	}
	if w.state.Step != StepResult {
		return nil, ErrWrongStep
	}
	if len(w.state.Creatives) == 0 {
		return nil, ErrNoResult
	}
	if err := w.credentialPresent(ctx); err != nil {
		return nil, err
	}

	current := models.CloneCreatives(w.state.Creatives)
	form := w.state.Form.Clone()
	w.state.Busy = true
	w.state.LastError = ""
	w.state.Phase = PhaseLoading

	done := make(chan struct{})
	go w.runRefine(context.WithoutCancel(ctx), w.epoch, current, instruction, form, done)
	return done, nil
}

func (w *Wizard) runRefine(ctx context.Context, epoch uint64, current []models.AdCreative, instruction string, form models.FormSnapshot, done chan<- struct{}) {
	defer close(done)

	creatives, err := w.gen.Refine(ctx, current, instruction, form)

	w.mu.Lock()
	defer w.mu.Unlock()

	if epoch != w.epoch {
		slog.Info("Discarding refinement of an abandoned run", "err", err)
		return
	}
	w.state.Busy = false

	if err != nil {
		slog.Error("Refinement failed", "err", err)
		w.state.LastError = contract.UserMessage(err)
		w.state.Phase = PhaseError
		return
	}

	w.state.Creatives = creatives
	w.state.Phase = PhaseReady
	if err := w.store.SaveCreatives(ctx, creatives); err != nil {
		slog.Error("Unable to persist creatives", "err", err)
	}
}

// Restart returns to step 1 with a fresh form. History is kept. A generation
// or refinement still in flight is abandoned.
func (w *Wizard) Restart(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.restart(ctx)
}

func (w *Wizard) restart(ctx context.Context) error {
	w.epoch++
	w.state.Busy = false
	w.state.Step = StepGoal
	w.state.Form = models.DefaultForm()
	w.state.Creatives = nil
	w.state.LastError = ""
	w.state.Phase = PhaseIdle
	return w.store.ClearProgress(ctx)
}

// LoadFromHistory jumps straight to a ready Result step with the entry's
// form and creatives. The history list is not changed.
func (w *Wizard) LoadFromHistory(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Busy {
		return ErrBusy
	}
	idx := slices.IndexFunc(w.state.History, func(e models.HistoryEntry) bool { return e.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrHistoryNotFound, id)
	}
	entry := w.state.History[idx]

	w.state.Form = entry.FormData.Clone()
	w.state.Creatives = models.CloneCreatives(entry.Creatives)
	w.state.LastError = ""
	if err := w.store.SaveForm(ctx, w.state.Form); err != nil {
		return err
	}
	if err := w.store.SaveCreatives(ctx, w.state.Creatives); err != nil {
		return err
	}
	return w.setStep(ctx, StepResult)
}

func (w *Wizard) ClearHistory(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state.History = []models.HistoryEntry{}
	return w.store.SaveHistory(ctx, w.state.History)
}

// Login opens the PIN gate
func (w *Wizard) Login(ctx context.Context, pin string) error {
	if !w.gate.Check(pin) {
		return ErrInvalidPIN
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Authenticated = true
	return w.store.SaveAuthenticated(ctx, true)
}

// Logout closes the gate and restarts the wizard. History survives.
func (w *Wizard) Logout(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state.Authenticated = false
	if err := w.store.SaveAuthenticated(ctx, false); err != nil {
		return err
	}
	return w.restart(ctx)
}

func (w *Wizard) SetCredential(ctx context.Context, key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.store.SaveCredential(ctx, key); err != nil {
		return err
	}
	stored, err := w.store.Credential(ctx)
	if err != nil {
		return err
	}
	w.state.HasCredential = stored != ""
	return nil
}

func (w *Wizard) ClearCredential(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state.HasCredential = false
	return w.store.ClearCredential(ctx)
}
