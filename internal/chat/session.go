// Package chat implements the support-chat session: the ordered turn log,
// the single-in-flight send discipline, and the hand-off from free-form
// conversation to structured case creation.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novera/support-assistant/internal/history"
	"github.com/novera/support-assistant/internal/model"
	"github.com/novera/support-assistant/pkg/logger"
	"github.com/novera/support-assistant/pkg/metrics"
)

var (
	// ErrHandoffInFlight is returned when a hand-off is requested while a
	// previous request is still being processed.
	ErrHandoffInFlight = errors.New("case hand-off already in progress")

	// ErrNoProject is returned when a hand-off is requested without an
	// active project context.
	ErrNoProject = errors.New("no active project")
)

// Transport sends one user turn to the assistant backend.
type Transport interface {
	SendTurn(ctx context.Context, text, conversationID string, products model.ProductMap) (*model.TurnResult, error)
}

// Classifier maps a conversation transcript plus environment context onto
// suggested case fields.
type Classifier interface {
	Classify(ctx context.Context, req *model.ClassificationRequest) (*model.Classification, error)
}

// ProductSource is the deployment/product aggregator as seen by the
// session: a loading flag, a completion signal, and the combined map.
type ProductSource interface {
	Loading() bool
	Done() <-chan struct{}
	ProductMap() model.ProductMap
}

// Navigator receives the session's terminal transitions. OpenCaseForm must
// render correctly when state.Classification is nil.
type Navigator interface {
	OpenCaseForm(state model.HandoffState)
	OpenHome()
}

// Config holds the injected context for a session.
type Config struct {
	ProjectID string
	Region    string
	Tier      string
}

// Session is one running support conversation. A Session owns its turn log
// and conversation id exclusively; nothing mutates them from outside.
type Session struct {
	cfg        Config
	transport  Transport
	classifier Classifier
	products   ProductSource
	nav        Navigator
	log        *logger.Logger

	history *history.Store

	mu              sync.Mutex
	conversationID  string
	sending         bool
	handoffBusy     bool
	waitingProducts bool
}

// NewSession creates a session with an empty turn log.
func NewSession(cfg Config, transport Transport, classifier Classifier, products ProductSource, nav Navigator, log *logger.Logger) *Session {
	return &Session{
		cfg:        cfg,
		transport:  transport,
		classifier: classifier,
		products:   products,
		nav:        nav,
		log:        log,
		history:    history.New(),
	}
}

// Seed pre-populates the log with a carried-over user message and/or a
// prior assistant reply, in that order. Empty strings are skipped.
func (s *Session) Seed(userText, assistantText string) {
	if strings.TrimSpace(userText) != "" {
		s.history.Append(newTurn(model.SenderUser, userText))
	}
	if strings.TrimSpace(assistantText) != "" {
		s.history.Append(newTurn(model.SenderAssistant, assistantText))
	}
}

// Turns returns a snapshot of the turn log.
func (s *Session) Turns() []model.Turn {
	return s.history.Turns()
}

// ConversationID returns the backend conversation id, empty before the
// first successful round-trip.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Sending reports whether a turn is currently in flight.
func (s *Session) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// WaitingForProducts reports whether a hand-off is blocked on the
// aggregator finishing its product fetches.
func (s *Session) WaitingForProducts() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitingProducts
}

// Send submits one user turn. Whitespace-only text, or a call while a
// previous turn is still in flight, is a silent no-op. The user turn and a
// pending assistant placeholder are appended immediately; the placeholder
// is replaced in place once the transport settles. On transport failure
// the placeholder is marked failed and the error is returned.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return nil
	}
	s.sending = true
	conversationID := s.conversationID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	s.history.Append(newTurn(model.SenderUser, text))

	placeholder := newTurn(model.SenderAssistant, "")
	placeholder.Pending = true
	s.history.Append(placeholder)

	result, err := s.transport.SendTurn(ctx, text, conversationID, s.products.ProductMap())
	if err != nil {
		// A failed turn still offers the escape hatch into a case.
		s.history.Replace(placeholder.ID, model.TurnPatch{
			Pending:            boolPtr(false),
			Failed:             boolPtr(true),
			OffersCaseCreation: boolPtr(true),
		})
		s.log.Warn("turn send failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	if s.conversationID == "" {
		s.conversationID = result.ConversationID
	}
	s.mu.Unlock()

	s.history.Replace(placeholder.ID, model.TurnPatch{
		Text:               &result.Text,
		Pending:            boolPtr(false),
		OffersCaseCreation: boolPtr(result.Actionable()),
	})
	return nil
}

// RequestHandoff transitions from free-form chat to case creation. If the
// product aggregator is still loading, the hand-off waits for its
// completion signal before classifying. Classification is attempted at
// most once per request; an empty transcript or empty product map skips it
// and a classification failure degrades to navigation with turns only. A
// concurrent hand-off request is rejected with ErrHandoffInFlight.
func (s *Session) RequestHandoff(ctx context.Context) error {
	s.mu.Lock()
	if s.handoffBusy {
		s.mu.Unlock()
		return ErrHandoffInFlight
	}
	s.handoffBusy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.handoffBusy = false
		s.waitingProducts = false
		s.mu.Unlock()
	}()

	if s.cfg.ProjectID == "" {
		s.log.Warn("hand-off without project context")
		s.nav.OpenHome()
		return ErrNoProject
	}

	if s.products.Loading() {
		s.mu.Lock()
		s.waitingProducts = true
		s.mu.Unlock()

		select {
		case <-s.products.Done():
		case <-ctx.Done():
			return ctx.Err()
		}

		s.mu.Lock()
		s.waitingProducts = false
		s.mu.Unlock()
	}

	turns := s.history.Turns()
	transcript := history.Format(turns)
	products := s.products.ProductMap()

	var classification *model.Classification
	outcome := "skipped"
	if transcript != "" && len(products) > 0 {
		result, err := s.classifier.Classify(ctx, &model.ClassificationRequest{
			ChatHistory:    transcript,
			EnvProducts:    products,
			Region:         s.cfg.Region,
			Tier:           s.cfg.Tier,
			ConversationID: s.ConversationID(),
		})
		if err != nil {
			// Recoverable: the case form works without a pre-fill.
			s.log.Warn("classification failed, proceeding without pre-fill", zap.Error(err))
			outcome = "degraded"
		} else {
			classification = result
			outcome = "classified"
		}
	}
	metrics.HandoffsTotal.WithLabelValues(outcome).Inc()

	s.nav.OpenCaseForm(model.HandoffState{
		Turns:          turns,
		Classification: classification,
	})
	return nil
}

func newTurn(sender model.Sender, text string) model.Turn {
	return model.Turn{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

func boolPtr(b bool) *bool { return &b }
