package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github/astrolozee/consult/models"
)

// ErrInvalidQuestion is the only failure surfaced for bad input.
var ErrInvalidQuestion = errors.New("question must be a non-empty string")

const defaultReligion = "hindu"

// ConsultService is the operation surface consumed by the HTTP layer.
type ConsultService interface {
	Consult(ctx context.Context, req models.ConsultRequest) (*models.ConsultResponse, error)
	ClearSession(sessionID string)
}

// consultServiceImpl orchestrates one consultation: context composition,
// retrieval fan-out, remedy gating, a single model call, validation and
// best-effort session persistence.
type consultServiceImpl struct {
	retriever Retriever
	generator TextGenerator
	sessions  SessionStore
	composer  *ContextComposer
	validator *ResponseValidator
	topK      int
}

func NewConsultService(retriever Retriever, generator TextGenerator, sessions SessionStore, topK int) ConsultService {
	return &consultServiceImpl{
		retriever: retriever,
		generator: generator,
		sessions:  sessions,
		composer:  NewContextComposer(sessions),
		validator: NewResponseValidator(generator),
		topK:      topK,
	}
}

func (s *consultServiceImpl) Consult(ctx context.Context, req models.ConsultRequest) (*models.ConsultResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, ErrInvalidQuestion
	}

	religion := strings.ToLower(req.Religion)
	if religion == "" {
		religion = defaultReligion
	}

	log.Printf("SERVICE: consulting for question %q (session %q, religion %s)", req.Question, req.SessionID, religion)

	mergedContext := s.composer.Compose(req.Context, req.SessionID, req.UseHistory)

	docs, err := s.retrieveKnowledge(ctx, req, mergedContext)
	if err != nil {
		// Degrade rather than fail: the consultation proceeds on the model's
		// general expertise and the prompt says so.
		log.Printf("SERVICE: retrieval failed, continuing without knowledge: %v", err)
		docs = nil
	}

	contextBlock := ContextBlock(mergedContext)
	forceRemedy := s.remedyDue(req.SessionID, mergedContext, req.Question)
	if forceRemedy {
		contextBlock += RemedyDirective(religion)
	}

	prompt := BuildConsultPrompt(religion, req.Question, PackRetrievedBlock(docs), contextBlock)

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("could not generate consultation: %w", err)
	}

	consultation := s.validator.Validate(ctx, raw, religion)

	s.persistTurn(req, consultation, raw, forceRemedy)

	sources := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		metadata := doc.Metadata
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		sources = append(sources, metadata)
	}

	return &models.ConsultResponse{
		Question:         req.Question,
		Category:         consultation.Category,
		Answer:           consultation.Answer,
		Remedy:           consultation.Remedy,
		RetrievedSources: sources,
	}, nil
}

// retrieveKnowledge selects between question-only retrieval and the
// question+context concurrent fan-out.
func (s *consultServiceImpl) retrieveKnowledge(ctx context.Context, req models.ConsultRequest, mergedContext string) ([]models.KnowledgeDocument, error) {
	if req.RagWithContext {
		return RetrieveMerged(ctx, s.retriever, req.Question, mergedContext, s.topK)
	}
	return s.retriever.Retrieve(ctx, req.Question, s.topK)
}

// remedyDue combines the stored conversation stage with the keyword heuristic.
// The stage is authoritative once a session exists; the keyword scan remains
// as a shim for stateless requests and externally authored prompt flows.
func (s *consultServiceImpl) remedyDue(sessionID, mergedContext, question string) bool {
	if sessionID != "" {
		stage, err := s.sessions.Stage(sessionID)
		if err == nil && stage >= StageAnalysis && UserAffirmsRemedies(question) {
			return true
		}
	}
	return ShouldForceRemedy(mergedContext, question)
}

// persistTurn appends the exchange to session memory and advances the
// conversation stage. Memory is advisory: failures are logged and swallowed,
// never surfaced to the caller.
func (s *consultServiceImpl) persistTurn(req models.ConsultRequest, consultation Consultation, raw string, remedyDelivered bool) {
	if req.SessionID == "" {
		return
	}
	// An explicitly empty answer still gets an AI line in the history: fall
	// back to the unwrapped raw output.
	aiMsg := consultation.Answer
	if aiMsg == "" {
		aiMsg = unwrapText(raw)
	}
	if err := s.sessions.AppendTurn(req.SessionID, req.Question, aiMsg); err != nil {
		log.Printf("SERVICE: could not persist chat turn for session %q: %v", req.SessionID, err)
		return
	}
	if req.Context != "" {
		if err := s.sessions.SaveContext(req.SessionID, req.Context); err != nil {
			log.Printf("SERVICE: could not persist context for session %q: %v", req.SessionID, err)
		}
	}

	// Stage transitions mirror what this turn actually delivered: remedies
	// move the session to the remedy stage, a timeline-bearing answer to the
	// analysis stage. A plain greeting turn advances nothing.
	switch {
	case remedyDelivered && len(strings.TrimSpace(consultation.Remedy)) >= minRemedyLength:
		if err := s.sessions.AdvanceStage(req.SessionID, StageRemedy); err != nil {
			log.Printf("SERVICE: could not advance stage for session %q: %v", req.SessionID, err)
		}
	case containsAny(strings.ToLower(consultation.Answer), timelineWords):
		if err := s.sessions.AdvanceStage(req.SessionID, StageAnalysis); err != nil {
			log.Printf("SERVICE: could not advance stage for session %q: %v", req.SessionID, err)
		}
	}
}

// ClearSession drops all stored state for the session id.
func (s *consultServiceImpl) ClearSession(sessionID string) {
	if err := s.sessions.Clear(sessionID); err != nil {
		log.Printf("SERVICE: could not clear session %q: %v", sessionID, err)
	}
}
