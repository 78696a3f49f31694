package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"netlabs/api/internal/auth"
	"netlabs/api/internal/clipboard"
	"netlabs/api/internal/editor"
	"netlabs/api/internal/engine"
	"netlabs/api/internal/session"
	"netlabs/api/internal/store"
	"netlabs/api/internal/util"
)

const maxEventsPerRequest = 256

// editSession is one open editor. mu guards the editor and every field
// below it.
type editSession struct {
	id         string
	documentID string
	author     string
	tokenHash  string
	expiresAt  time.Time
	clip       *clipboard.Memory

	mu          sync.Mutex
	editor      *editor.Editor
	baseVersion int
	lastSeen    time.Time
	closed      bool
}

type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type CreateSessionInput struct {
	Author       string    `json:"author"`
	Editable     bool      `json:"editable"`
	RestoreDraft bool      `json:"restoreDraft"`
	Viewport     *Viewport `json:"viewport"`
}

// SessionState is what the surface receives after every interaction.
type SessionState struct {
	SessionID  string      `json:"sessionId"`
	DocumentID string      `json:"documentId"`
	Author     string      `json:"author"`
	Version    int         `json:"version"`
	Clipboard  string      `json:"clipboard,omitempty"`
	View       editor.View `json:"view"`
}

type CreatedSession struct {
	SessionState
	Token         string    `json:"token"`
	ExpiresAt     time.Time `json:"expiresAt"`
	DraftRestored bool      `json:"draftRestored"`
	DraftStale    bool      `json:"draftStale,omitempty"`
}

// CreateSession opens an editor over the saved document, or over the
// author's draft when restoreDraft is set and the draft was based on the
// current version.
func (s *Service) CreateSession(ctx context.Context, documentID string, input CreateSessionInput) (CreatedSession, error) {
	author := strings.TrimSpace(input.Author)
	if author == "" {
		return CreatedSession{}, validationError("author is required")
	}
	item, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return CreatedSession{}, err
	}

	value := item.HTML
	restored, stale := false, false
	if input.RestoreDraft && s.drafts != nil {
		draft, err := s.drafts.LoadDraft(ctx, documentID, author)
		switch {
		case errors.Is(err, session.ErrNoDraft):
		case err != nil:
			log.Printf("app: load draft for %s/%s: %v", documentID, author, err)
		case draft.BaseVersion != item.Version:
			stale = true
		default:
			value = draft.HTML
			restored = true
		}
	}

	width, height := s.cfg.ViewportWidth, s.cfg.ViewportHeight
	if input.Viewport != nil && input.Viewport.Width > 0 && input.Viewport.Height > 0 {
		width, height = input.Viewport.Width, input.Viewport.Height
	}

	now := s.now()
	sess := &editSession{
		id:          util.NewID(util.PrefixSession),
		documentID:  documentID,
		author:      author,
		expiresAt:   now.Add(s.sessionTTL()),
		clip:        &clipboard.Memory{},
		baseVersion: item.Version,
		lastSeen:    now,
	}
	sess.editor = editor.New(editor.Config{
		Editable:  input.Editable,
		Value:     value,
		OnChange:  s.draftWriter(sess),
		Clipboard: sess.clip,
		Layout:    engine.NewGridLayout(float64(width), float64(height)),
		Logger:    log.Default(),
		Now:       s.now,
	})

	token, err := auth.IssueToken([]byte(s.cfg.SessionSecret), auth.Claims{
		Session:  sess.id,
		Document: documentID,
		Author:   author,
		Editable: input.Editable,
		JTI:      util.NewID(util.PrefixToken),
		Exp:      sess.expiresAt.Unix(),
	})
	if err != nil {
		return CreatedSession{}, err
	}
	sess.tokenHash = auth.HashToken(token)

	s.sessionsMu.Lock()
	s.sessions[sess.id] = sess
	s.sessionsMu.Unlock()

	sess.mu.Lock()
	state := sess.state()
	sess.mu.Unlock()
	return CreatedSession{
		SessionState:  state,
		Token:         token,
		ExpiresAt:     sess.expiresAt,
		DraftRestored: restored,
		DraftStale:    stale,
	}, nil
}

func (s *Service) sessionTTL() time.Duration {
	if s.cfg.SessionTTL <= 0 {
		return 12 * time.Hour
	}
	return s.cfg.SessionTTL
}

// draftWriter keeps the latest unsaved HTML in the draft store. It runs
// inside the editor's change callback, so with the session lock held.
func (s *Service) draftWriter(sess *editSession) func(string) {
	if s.drafts == nil {
		return nil
	}
	return func(html string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := s.drafts.SaveDraft(ctx, session.Draft{
			DocumentID:  sess.documentID,
			Author:      sess.author,
			HTML:        html,
			BaseVersion: sess.baseVersion,
		})
		if err != nil {
			log.Printf("app: save draft for %s/%s: %v", sess.documentID, sess.author, err)
		}
	}
}

// authorize resolves a session from its id and bearer token.
func (s *Service) authorize(sessionID, token string) (*editSession, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.SessionSecret), token)
	if err != nil {
		return nil, err
	}
	if claims.Session != sessionID {
		return nil, auth.ErrInvalidToken
	}

	s.sessionsMu.Lock()
	sess, ok := s.sessions[sessionID]
	s.sessionsMu.Unlock()
	if !ok {
		return nil, notFound("Session")
	}
	if sess.tokenHash != auth.HashToken(token) {
		return nil, auth.ErrInvalidToken
	}
	if s.now().After(sess.expiresAt) {
		s.dropSession(sessionID)
		return nil, auth.ErrExpiredToken
	}
	return sess, nil
}

// lock takes the session lock, failing when the session was closed while
// the caller waited.
func (sess *editSession) lock(now time.Time) error {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return notFound("Session")
	}
	sess.lastSeen = now
	return nil
}

// state snapshots the session. Callers hold mu.
func (sess *editSession) state() SessionState {
	text, _ := sess.clip.ReadText()
	return SessionState{
		SessionID:  sess.id,
		DocumentID: sess.documentID,
		Author:     sess.author,
		Version:    sess.baseVersion,
		Clipboard:  text,
		View:       sess.editor.View(),
	}
}

// drain snapshots the session and clears the notices it delivered.
func (sess *editSession) drain() SessionState {
	st := sess.state()
	sess.editor.Notices()
	return st
}

func (s *Service) GetSession(sessionID, token string) (SessionState, error) {
	sess, err := s.authorize(sessionID, token)
	if err != nil {
		return SessionState{}, err
	}
	if err := sess.lock(s.now()); err != nil {
		return SessionState{}, err
	}
	defer sess.mu.Unlock()
	return sess.drain(), nil
}

// ApplyEvents feeds surface inputs to the editor in order. Action errors
// become notices in the returned view; an input the editor does not know
// stops the batch.
func (s *Service) ApplyEvents(sessionID, token string, inputs []editor.Input) (SessionState, error) {
	if len(inputs) > maxEventsPerRequest {
		return SessionState{}, validationError("too many events in one request")
	}
	sess, err := s.authorize(sessionID, token)
	if err != nil {
		return SessionState{}, err
	}
	if err := sess.lock(s.now()); err != nil {
		return SessionState{}, err
	}
	defer sess.mu.Unlock()

	for i, in := range inputs {
		if err := sess.editor.Apply(in); errors.Is(err, editor.ErrUnknownInput) {
			return SessionState{}, domainError(http.StatusUnprocessableEntity, "UNKNOWN_INPUT", err.Error(), map[string]any{"index": i})
		}
	}
	return sess.drain(), nil
}

// Save persists the session's HTML. The session lock is released while the
// document is written so the surface stays responsive; edits made
// meanwhile keep the editor dirty.
func (s *Service) Save(ctx context.Context, sessionID, token string) (SessionState, error) {
	sess, err := s.authorize(sessionID, token)
	if err != nil {
		return SessionState{}, err
	}
	if err := sess.lock(s.now()); err != nil {
		return SessionState{}, err
	}
	if !sess.editor.Editable() {
		sess.mu.Unlock()
		return SessionState{}, domainError(http.StatusForbidden, "READ_ONLY", "This session is read-only", nil)
	}
	html, err := sess.editor.BeginSave()
	if err != nil {
		defer sess.mu.Unlock()
		if errors.Is(err, editor.ErrSaveInProgress) {
			return SessionState{}, domainError(http.StatusConflict, "SAVE_IN_PROGRESS", err.Error(), nil)
		}
		return SessionState{}, domainError(http.StatusConflict, "NOT_READY", err.Error(), nil)
	}
	base := sess.baseVersion
	sess.mu.Unlock()

	item, saveErr := s.persist(ctx, sess.documentID, sess.author, html, base)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	// a rejected save stays in the editor as a notice and keeps it dirty
	if err := sess.editor.FinishSave(html, saveRejection(saveErr)); err != nil {
		log.Printf("app: save %s for session %s: %v", sess.documentID, sess.id, saveErr)
		return sess.drain(), nil
	}
	sess.baseVersion = item.Version
	// edits made while saving still need a draft
	if write := s.draftWriter(sess); write != nil && sess.editor.HTML() != html {
		write(sess.editor.HTML())
	}
	return sess.drain(), nil
}

// saveRejection turns a persistence failure into the message the editor
// shows. Internal errors are not shown verbatim.
func saveRejection(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrVersionConflict):
		return errors.New("This document was changed elsewhere. Reload to get the latest version.")
	case errors.Is(err, store.ErrNotFound):
		return errors.New("This document no longer exists.")
	default:
		return fmt.Errorf("%w: %v", editor.ErrSaveFailed, err)
	}
}

func (s *Service) CloseSession(sessionID, token string) error {
	if _, err := s.authorize(sessionID, token); err != nil {
		return err
	}
	s.dropSession(sessionID)
	return nil
}

func (s *Service) dropSession(sessionID string) {
	s.sessionsMu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.sessionsMu.Unlock()
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.closed = true
	sess.mu.Unlock()
}

func (s *Service) closeDocumentSessions(documentID string) int {
	s.sessionsMu.Lock()
	var ids []string
	for id, sess := range s.sessions {
		if sess.documentID == documentID {
			ids = append(ids, id)
		}
	}
	s.sessionsMu.Unlock()
	for _, id := range ids {
		s.dropSession(id)
	}
	return len(ids)
}

// SessionCount is the number of open sessions.
func (s *Service) SessionCount() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return len(s.sessions)
}

// ReapIdle closes sessions that expired or saw no request for idle.
func (s *Service) ReapIdle(idle time.Duration) int {
	now := s.now()
	s.sessionsMu.Lock()
	candidates := make([]*editSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.sessionsMu.Unlock()

	reaped := 0
	for _, sess := range candidates {
		sess.mu.Lock()
		stale := now.After(sess.expiresAt) || (idle > 0 && now.Sub(sess.lastSeen) > idle)
		saving := sess.editor.Saving()
		sess.mu.Unlock()
		if stale && !saving {
			s.dropSession(sess.id)
			reaped++
		}
	}
	return reaped
}

// RunReaper calls ReapIdle every interval until ctx is done.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ReapIdle(s.cfg.SessionIdle); n > 0 {
				log.Printf("app: closed %d idle edit sessions", n)
			}
		}
	}
}
