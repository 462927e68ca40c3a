// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/twiztd/cpbc-volunteer-app/internal/mailer"
	"github.com/twiztd/cpbc-volunteer-app/internal/model"
	"github.com/twiztd/cpbc-volunteer-app/internal/store"
	"github.com/twiztd/cpbc-volunteer-app/internal/taxonomy"
)

// SignupService handles volunteer signups: validation against the ministry
// taxonomy, persistence, listing, and notes.
type SignupService struct {
	db       *sql.DB
	queries  *store.Queries
	taxonomy *taxonomy.Taxonomy
	mailer   *mailer.Mailer

	now func() time.Time
}

// NewSignupService creates a SignupService bound to a taxonomy snapshot.
func NewSignupService(db *sql.DB, tax *taxonomy.Taxonomy, m *mailer.Mailer) *SignupService {
	return &SignupService{
		db:       db,
		queries:  store.New(db),
		taxonomy: tax,
		mailer:   m,
		now:      time.Now,
	}
}

// SetClock overrides the service's time source for tests.
func (s *SignupService) SetClock(now func() time.Time) {
	s.now = now
}

// SubmitInput holds a public signup submission.
type SubmitInput struct {
	Name       string
	Phone      string
	Email      string
	Selections []model.MinistrySelection
}

// Submit validates the selections against the taxonomy and persists the
// volunteer with its selections in one transaction. The admin notification
// email is dispatched after the commit and its failure never fails the
// submission.
func (s *SignupService) Submit(ctx context.Context, input SubmitInput) (model.Volunteer, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.TrimSpace(input.Email)

	if err := s.taxonomy.Validate(input.Selections); err != nil {
		return model.Volunteer{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Volunteer{}, fmt.Errorf("beginning signup: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)

	now := s.now()
	id, err := qtx.CreateVolunteer(ctx, store.CreateVolunteerParams{
		Name:       input.Name,
		Phone:      input.Phone,
		Email:      input.Email,
		SignupDate: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return model.Volunteer{}, fmt.Errorf("creating volunteer: %w", err)
	}

	for _, sel := range input.Selections {
		if err := qtx.CreateVolunteerMinistry(ctx, id, sel); err != nil {
			return model.Volunteer{}, fmt.Errorf("storing selection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Volunteer{}, fmt.Errorf("committing signup: %w", err)
	}

	volunteer, err := s.Get(ctx, id)
	if err != nil {
		return model.Volunteer{}, err
	}

	slog.Info("volunteer signup stored",
		"volunteer_id", id, "selections", len(input.Selections), "category", model.EventCategorySignup)

	go func() {
		if err := s.mailer.NotifySignup(volunteer); err != nil {
			slog.Error("sending signup notification failed",
				"volunteer_id", id, "error", err, "category", model.EventCategoryEmail)
		}
	}()

	return volunteer, nil
}

// ReplaceSelections swaps a volunteer's whole selection set for a new one.
// The old set is discarded and the new one inserted in a single transaction;
// selections are never merged.
func (s *SignupService) ReplaceSelections(ctx context.Context, volunteerID int64, selections []model.MinistrySelection) (model.Volunteer, error) {
	if err := s.taxonomy.Validate(selections); err != nil {
		return model.Volunteer{}, err
	}

	if _, err := s.queries.GetVolunteerByID(ctx, volunteerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Volunteer{}, ErrVolunteerNotFound
		}
		return model.Volunteer{}, fmt.Errorf("looking up volunteer: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Volunteer{}, fmt.Errorf("beginning update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)

	if err := qtx.DeleteVolunteerMinistries(ctx, volunteerID); err != nil {
		return model.Volunteer{}, fmt.Errorf("clearing selections: %w", err)
	}
	for _, sel := range selections {
		if err := qtx.CreateVolunteerMinistry(ctx, volunteerID, sel); err != nil {
			return model.Volunteer{}, fmt.Errorf("storing selection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Volunteer{}, fmt.Errorf("committing update: %w", err)
	}

	return s.Get(ctx, volunteerID)
}

// Get returns one volunteer with its selections.
func (s *SignupService) Get(ctx context.Context, id int64) (model.Volunteer, error) {
	v, err := s.queries.GetVolunteerByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Volunteer{}, ErrVolunteerNotFound
		}
		return model.Volunteer{}, err
	}
	v.Ministries, err = s.queries.ListMinistriesByVolunteer(ctx, id)
	if err != nil {
		return model.Volunteer{}, err
	}
	return v, nil
}

// List returns volunteers matching the filters, each with its selections
// attached. Selections are bulk-loaded in a second query rather than one
// query per volunteer.
func (s *SignupService) List(ctx context.Context, params store.ListVolunteersParams) ([]model.Volunteer, error) {
	vols, err := s.queries.ListVolunteers(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(vols) == 0 {
		return []model.Volunteer{}, nil
	}

	rows, err := s.queries.ListAllVolunteerMinistries(ctx)
	if err != nil {
		return nil, err
	}

	byVolunteer := make(map[int64][]model.MinistrySelection, len(vols))
	for _, r := range rows {
		byVolunteer[r.VolunteerID] = append(byVolunteer[r.VolunteerID], r.Selection)
	}
	for i := range vols {
		vols[i].Ministries = byVolunteer[vols[i].ID]
	}
	return vols, nil
}

// Delete removes a volunteer and, via cascade, its selections and notes.
func (s *SignupService) Delete(ctx context.Context, id int64) error {
	n, err := s.queries.DeleteVolunteer(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting volunteer: %w", err)
	}
	if n == 0 {
		return ErrVolunteerNotFound
	}
	return nil
}

// AddNote attaches an admin note to a volunteer.
func (s *SignupService) AddNote(ctx context.Context, volunteerID int64, caller model.AdminUser, text string) (model.VolunteerNote, error) {
	if _, err := s.queries.GetVolunteerByID(ctx, volunteerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VolunteerNote{}, ErrVolunteerNotFound
		}
		return model.VolunteerNote{}, fmt.Errorf("looking up volunteer: %w", err)
	}

	note, err := s.queries.CreateVolunteerNote(ctx, store.CreateVolunteerNoteParams{
		VolunteerID: volunteerID,
		AdminID:     caller.ID,
		NoteText:    text,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return model.VolunteerNote{}, fmt.Errorf("creating note: %w", err)
	}
	note.AdminEmail = caller.Email
	return note, nil
}

// Notes returns a volunteer's notes, newest first.
func (s *SignupService) Notes(ctx context.Context, volunteerID int64) ([]model.VolunteerNote, error) {
	if _, err := s.queries.GetVolunteerByID(ctx, volunteerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVolunteerNotFound
		}
		return nil, fmt.Errorf("looking up volunteer: %w", err)
	}
	return s.queries.ListVolunteerNotes(ctx, volunteerID)
}

// Taxonomy returns the taxonomy snapshot this service validates against.
func (s *SignupService) Taxonomy() *taxonomy.Taxonomy {
	return s.taxonomy
}
