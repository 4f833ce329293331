// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to SQLite or PostgreSQL
//
// Services take repository interfaces, never a concrete store. The same
// NoteService runs against SQLite in development, PostgreSQL in production,
// and an in-memory mock in tests.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

// Validation limits. MaxTitleLength matches the column width used by
// databases created before this app was written in Go.
const (
	MaxTitleLength   = 200
	MaxContentLength = 100000
	MaxTagsLength    = 1000
	MaxListLimit     = 500
)

// NoteService handles business logic for notes.
type NoteService struct {
	repo   repository.NoteRepository
	logger *slog.Logger
}

// NewNoteService creates a new NoteService.
func NewNoteService(repo repository.NoteRepository, logger *slog.Logger) *NoteService {
	return &NoteService{repo: repo, logger: logger}
}

// Create validates and saves a new note. in uses the same shape as an update:
// title is required, every other field is optional.
func (s *NoteService) Create(ctx context.Context, in model.NotePatch) (*model.Note, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, apperror.ValidationFailed("title", "note title is required")
	}

	note := &model.Note{}
	if err := validateNotePatch(in); err != nil {
		return nil, err
	}
	in.Apply(note)
	note.Title = strings.TrimSpace(note.Title)

	if err := s.repo.Create(ctx, note); err != nil {
		s.logger.Error("failed to create note",
			slog.String("title", note.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating note: %w", err)
	}

	s.logger.Info("note created",
		slog.Int64("id", note.ID),
		slog.String("title", note.Title),
	)
	return note, nil
}

// GetByID retrieves a note. Returns apperror.ErrNotFound if it does not exist.
func (s *NoteService) GetByID(ctx context.Context, id int64) (*model.Note, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "note ID must be a positive integer")
	}
	return s.repo.GetByID(ctx, id)
}

// List returns notes ordered by position then newest first. A non-empty
// query narrows the result to notes whose title or content contains it.
// A limit of zero returns every note.
func (s *NoteService) List(ctx context.Context, query string, limit, offset int) ([]model.Note, error) {
	filter := repository.NoteFilter{
		Query:       strings.TrimSpace(query),
		ListOptions: clampPage(limit, offset),
	}

	notes, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list notes",
			slog.String("query", filter.Query),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

// Update applies a partial update.
//
// STRATEGY: fetch then update. The fetch gives a consistent NotFound and
// lets us return the full note after the patch is applied.
func (s *NoteService) Update(ctx context.Context, id int64, patch model.NotePatch) (*model.Note, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "note ID must be a positive integer")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperror.ValidationFailed("title", "note title cannot be empty")
	}
	if err := validateNotePatch(patch); err != nil {
		return nil, err
	}

	note, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(note)
	note.Title = strings.TrimSpace(note.Title)

	if err := s.repo.Update(ctx, note); err != nil {
		s.logger.Error("failed to update note",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating note: %w", err)
	}

	s.logger.Info("note updated", slog.Int64("id", note.ID))
	return note, nil
}

// Delete removes a note. Returns apperror.ErrNotFound if it does not exist.
func (s *NoteService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.ValidationFailed("id", "note ID must be a positive integer")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("note deleted", slog.Int64("id", id))
	return nil
}

// validateNotePatch checks length limits on whatever fields the patch sets.
func validateNotePatch(p model.NotePatch) error {
	if p.Title != nil && len(strings.TrimSpace(*p.Title)) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("note title must be %d characters or less", MaxTitleLength))
	}
	if p.Content != nil && len(*p.Content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("note content must be %d characters or less", MaxContentLength))
	}
	if p.Tags.Value != nil && len(*p.Tags.Value) > MaxTagsLength {
		return apperror.ValidationFailed("tags",
			fmt.Sprintf("tags must be %d characters or less", MaxTagsLength))
	}
	return nil
}

// clampPage keeps paging arguments in range. Zero limit means "all".
func clampPage(limit, offset int) repository.ListOptions {
	if limit < 0 {
		limit = 0
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}
