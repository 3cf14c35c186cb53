package blogsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// WizardStep is one step of the authoring flow.
type WizardStep int

const (
	// StepCompose collects title, description, category, and content.
	StepCompose WizardStep = iota + 1
	// StepSelectType picks the visual card type and publishes.
	StepSelectType
	// StepReserved is reachable but has no behavior yet.
	StepReserved
)

func (s WizardStep) String() string {
	switch s {
	case StepCompose:
		return "compose"
	case StepSelectType:
		return "select-type"
	case StepReserved:
		return "reserved"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Wizard drives the multi-step authoring flow over a durable draft. Steps
// move linearly with back/forward transitions only; the compose schema gates
// the forward transition but never blocks saving the draft locally.
type Wizard struct {
	mu     sync.Mutex
	client *Client
	step   WizardStep
	draft  Draft
	logger *slog.Logger
}

// NewWizard creates a wizard at the compose step, resuming any draft saved
// by a previous run.
func NewWizard(ctx context.Context, client *Client) (*Wizard, error) {
	w := &Wizard{client: client, step: StepCompose, logger: client.logger}
	saved, err := client.store.LoadDraft(ctx)
	if err != nil && !errors.Is(err, ErrDraftNotFound) {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if saved != nil {
		w.draft = *saved
	}
	return w, nil
}

// Step returns the current step.
func (w *Wizard) Step() WizardStep {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the working draft.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// SetDraft saves the draft locally, valid or not. Overwrites are
// last-write-wins.
func (w *Wizard) SetDraft(ctx context.Context, d Draft) error {
	d.Updated = time.Now()
	if err := w.client.store.SaveDraft(ctx, &d); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	w.mu.Lock()
	w.draft = d
	w.mu.Unlock()
	return nil
}

// Next advances one step. Leaving the compose step requires a valid draft.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepCompose:
		if err := w.draft.Validate(); err != nil {
			return err
		}
		w.step = StepSelectType
	case StepSelectType:
		w.step = StepReserved
	default:
		return ErrWrongStep
	}
	return nil
}

// Back moves one step back, stopping at the compose step.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepCompose {
		w.step--
	}
}

// SelectCardType records the card type on the draft. Only valid at the
// select step.
func (w *Wizard) SelectCardType(ctx context.Context, t CardType) error {
	if !t.Valid() {
		return fmt.Errorf("invalid card type: %s", t)
	}

	w.mu.Lock()
	if w.step != StepSelectType {
		w.mu.Unlock()
		return ErrWrongStep
	}
	d := w.draft
	w.mu.Unlock()

	d.CardType = t
	return w.SetDraft(ctx, d)
}

// Publish creates the post. On success the draft is cleared and the wizard
// resets; on failure the wizard stays at the select step with the draft
// intact, and retry is the user's call.
func (w *Wizard) Publish(ctx context.Context) error {
	w.mu.Lock()
	if w.step != StepSelectType {
		w.mu.Unlock()
		return ErrWrongStep
	}
	d := w.draft
	w.mu.Unlock()

	if !d.CardType.Valid() {
		return ErrNoCardType
	}
	if err := w.client.CreatePost(ctx, &d); err != nil {
		return err
	}

	if err := w.client.store.DeleteDraft(ctx); err != nil {
		// The post is out; a leftover draft is an annoyance, not a failure.
		w.logger.Warn("published but failed to clear draft",
			slog.String("error", err.Error()))
	}

	w.mu.Lock()
	w.draft = Draft{}
	w.step = StepCompose
	w.mu.Unlock()
	return nil
}

// Reset discards the draft and returns to the compose step.
func (w *Wizard) Reset(ctx context.Context) error {
	if err := w.client.store.DeleteDraft(ctx); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	w.mu.Lock()
	w.draft = Draft{}
	w.step = StepCompose
	w.mu.Unlock()
	return nil
}
