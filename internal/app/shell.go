// Package app drives the client shell: the login → signup → room-form step
// flow, identity edits, share links and the handoff into the session machine.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codesync/codesync/internal/adapters/httpapi"
	"github.com/codesync/codesync/internal/domain"
	"github.com/codesync/codesync/internal/session"
)

// Step is the shell's visible surface, mirroring the original page flow.
type Step int

const (
	StepLogin Step = iota
	StepSignup
	StepForm
)

var (
	ErrMissingCredentials = errors.New("please enter email and password")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrNoRoom             = errors.New("create or enter a room first")
	ErrNoEmail            = errors.New("enter email to validate")
	ErrEmailNotFound      = errors.New("email not found in database")
	ErrEmailCheck         = errors.New("something went wrong while checking the email")
)

type Shell struct {
	machine    *session.Machine
	api        *httpapi.Client
	editorBase string

	mu        sync.Mutex
	step      Step
	identity  domain.Identity
	shareLink string // pending share link, held only for display
}

func NewShell(machine *session.Machine, api *httpapi.Client, editorBase string) *Shell {
	return &Shell{
		machine:    machine,
		api:        api,
		editorBase: editorBase,
		step:       StepLogin,
	}
}

func (s *Shell) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// GoToSignup and GoToLogin flip between the two account steps.
func (s *Shell) GoToSignup() { s.setStep(StepSignup) }
func (s *Shell) GoToLogin()  { s.setStep(StepLogin) }

func (s *Shell) setStep(st Step) {
	s.mu.Lock()
	s.step = st
	s.mu.Unlock()
}

func (s *Shell) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Shell) SetRoomID(roomID string) {
	s.mu.Lock()
	s.identity.RoomID = roomID
	s.mu.Unlock()
}

func (s *Shell) SetUsername(username string) {
	s.mu.Lock()
	s.identity.Username = username
	s.mu.Unlock()
}

// ApplyInitialRoomID pre-fills the room id handed over by navigation (a share
// link target), but never overwrites one the user already typed.
func (s *Shell) ApplyInitialRoomID(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if roomID == "" || s.identity.RoomID != "" {
		return false
	}
	s.identity.RoomID = roomID
	return true
}

// CreateRoomID mints a fresh room id into the identity and returns it.
func (s *Shell) CreateRoomID() string {
	id := domain.NewRoomID()
	s.mu.Lock()
	s.identity.RoomID = id
	s.mu.Unlock()
	log.Info().Str("module", "app").Str("room", id).Msg("created a new room id")
	return id
}

// Login authenticates against the backend. On success the identity fields
// (which double as the login form here, as in the original) are cleared and
// the shell advances to the room form.
func (s *Shell) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrMissingCredentials
	}
	if err := s.api.Login(ctx, email, password); err != nil {
		var apiErr *httpapi.Error
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return fmt.Errorf("login failed: %w", err)
	}

	s.mu.Lock()
	s.identity = domain.Identity{}
	s.step = StepForm
	s.mu.Unlock()
	log.Info().Str("module", "app").Msg("login successful")
	return nil
}

// Signup registers a new account and advances to the room form.
func (s *Shell) Signup(ctx context.Context, name, email, password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if err := s.api.Register(ctx, name, email, password); err != nil {
		var apiErr *httpapi.Error
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return fmt.Errorf("registration failed: %w", err)
	}

	s.mu.Lock()
	s.identity = domain.Identity{}
	s.step = StepForm
	s.mu.Unlock()
	log.Info().Str("module", "app").Msg("registration successful")
	return nil
}

// JoinRoom hands the current identity to the session machine.
func (s *Shell) JoinRoom() error {
	s.mu.Lock()
	id := s.identity
	s.mu.Unlock()
	return s.machine.SubmitJoin(id)
}

// GenerateShareLink produces the anyone-with-link URL for the current room.
func (s *Shell) GenerateShareLink() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity.RoomID == "" {
		return "", ErrNoRoom
	}
	s.shareLink = fmt.Sprintf("%s/editor/%s", s.editorBase, s.identity.RoomID)
	return s.shareLink, nil
}

// GenerateEmailLink produces a share URL gated on the backend knowing the
// address. The validation call failing closed means no link on error.
func (s *Shell) GenerateEmailLink(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", ErrNoEmail
	}

	exists, err := s.api.ValidateEmail(ctx, email)
	if err != nil {
		log.Warn().Err(err).Str("module", "app").Msg("email validation failed")
		return "", ErrEmailCheck
	}
	if !exists {
		return "", ErrEmailNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.shareLink = fmt.Sprintf("%s/editor/%s&email=%s", s.editorBase, s.identity.RoomID, email)
	return s.shareLink, nil
}

// ShareLink returns the last generated link, empty when none is pending.
func (s *Shell) ShareLink() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shareLink
}
