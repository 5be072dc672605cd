// Package archive implements the moderated channel-archival workflow: a
// requester submits a channel, a moderator approves within a window, and the
// channel is renamed and moved under the archive group. Moderators archive
// directly without the approval round-trip.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultApprovalWindow is how long an archival request waits for approval.
const DefaultApprovalWindow = 24 * time.Hour

// State of an archival request.
type State string

const (
	StateRequested State = "requested"
	StateApproved  State = "approved"
	StateTimedOut  State = "timed_out"
)

// ErrUnknownRequest reports an approval for a request that does not exist or
// was already decided. Callers treat it as an unrelated marker and ignore it.
var ErrUnknownRequest = errors.New("unknown archive request")

// ErrNotAuthorized reports an approval attempt by an actor without the
// required role, or by the bot itself.
var ErrNotAuthorized = errors.New("not authorized to approve")

// Platform abstracts the chat operations the workflow needs.
type Platform interface {
	// ChannelName resolves the current display name of a channel.
	ChannelName(ctx context.Context, channelID int64) (string, error)
	// ArchiveChannel renames the channel and moves it under the archive
	// group. No partial effect on error.
	ArchiveChannel(ctx context.Context, channelID int64, newName string) error
	// PostApprovalRequest posts the approval notice with its tracked
	// marker to the moderator channel, tagged with the request id so the
	// approval event routes back.
	PostApprovalRequest(ctx context.Context, req Request) error
	// PostConfirmation posts an archival confirmation to the moderator
	// channel.
	PostConfirmation(ctx context.Context, text string) error
}

// Authorizer decides whether a user may approve or directly perform
// archivals.
type Authorizer interface {
	IsModerator(userID int64) bool
}

// Request is one archival request.
type Request struct {
	ID          string
	ChannelID   int64
	ChannelName string
	RequesterID int64
	Label       string
	Reason      string
	State       State
}

type pendingRequest struct {
	Request
	timer *time.Timer
}

// Workflow tracks pending archival requests and applies approvals.
type Workflow struct {
	platform  Platform
	auth      Authorizer
	botUserID int64
	window    time.Duration
	log       *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingRequest
}

// New creates a Workflow with the default approval window. botUserID is the
// bot's own account, whose reactions never count as approvals.
func New(platform Platform, auth Authorizer, botUserID int64, log *slog.Logger) *Workflow {
	return &Workflow{
		platform:  platform,
		auth:      auth,
		botUserID: botUserID,
		window:    DefaultApprovalWindow,
		log:       log,
		pending:   make(map[string]*pendingRequest),
	}
}

// SetApprovalWindow overrides the approval window. Intended for tests.
func (w *Workflow) SetApprovalWindow(d time.Duration) {
	w.window = d
}

// Submit starts an archival of channelID under the given date label. A
// moderator requester archives immediately; anyone else gets a pending
// request that waits for HandleApproval. The request id is returned for
// pending requests, "" when archived immediately.
func (w *Workflow) Submit(ctx context.Context, channelID, requesterID int64, label, reason string) (string, error) {
	name, err := w.platform.ChannelName(ctx, channelID)
	if err != nil {
		return "", fmt.Errorf("resolve channel name: %w", err)
	}

	if w.auth.IsModerator(requesterID) {
		if err := w.archiveNow(ctx, channelID, name, label, requesterID); err != nil {
			return "", err
		}
		return "", nil
	}

	req := &pendingRequest{Request: Request{
		ID:          uuid.NewString(),
		ChannelID:   channelID,
		ChannelName: name,
		RequesterID: requesterID,
		Label:       label,
		Reason:      reason,
		State:       StateRequested,
	}}

	if err := w.platform.PostApprovalRequest(ctx, req.Request); err != nil {
		return "", fmt.Errorf("post approval request: %w", err)
	}

	w.mu.Lock()
	req.timer = time.AfterFunc(w.window, func() { w.expire(req.ID) })
	w.pending[req.ID] = req
	w.mu.Unlock()

	w.log.Info("archive requested", "request_id", req.ID, "channel", name, "requester", requesterID)
	return req.ID, nil
}

// ArchiveNow archives channelID directly, bypassing approval. The requester
// must hold the moderator role.
func (w *Workflow) ArchiveNow(ctx context.Context, channelID, requesterID int64, label string) error {
	if !w.auth.IsModerator(requesterID) {
		return ErrNotAuthorized
	}
	name, err := w.platform.ChannelName(ctx, channelID)
	if err != nil {
		return fmt.Errorf("resolve channel name: %w", err)
	}
	return w.archiveNow(ctx, channelID, name, label, requesterID)
}

// HandleApproval applies an approval event for requestID by approverID.
// Unknown or already-decided ids return ErrUnknownRequest regardless of the
// actor; approvals by the bot itself or by non-moderators return
// ErrNotAuthorized and leave the request pending.
func (w *Workflow) HandleApproval(ctx context.Context, requestID string, approverID int64) error {
	w.mu.Lock()
	req, ok := w.pending[requestID]
	if !ok || req.State != StateRequested {
		w.mu.Unlock()
		return ErrUnknownRequest
	}
	if approverID == w.botUserID || !w.auth.IsModerator(approverID) {
		w.mu.Unlock()
		return ErrNotAuthorized
	}
	req.State = StateApproved
	req.timer.Stop()
	delete(w.pending, requestID)
	w.mu.Unlock()

	newName := ArchivedName(req.ChannelName, req.Label)
	if err := w.platform.ArchiveChannel(ctx, req.ChannelID, newName); err != nil {
		return fmt.Errorf("archive channel: %w", err)
	}
	confirmation := fmt.Sprintf("Channel %s archived as %s (requested by %d, approved by %d).",
		req.ChannelName, newName, req.RequesterID, approverID)
	if err := w.platform.PostConfirmation(ctx, confirmation); err != nil {
		w.log.Warn("post archive confirmation", "request_id", requestID, "error", err)
	}
	w.log.Info("archive approved", "request_id", requestID, "approver", approverID)
	return nil
}

// Pending reports the state of a request id, for status displays.
func (w *Workflow) Pending(requestID string) (State, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	req, ok := w.pending[requestID]
	if !ok {
		return "", false
	}
	return req.State, true
}

// expire times out a still-pending request. Timed-out requests are dropped
// silently; only the log records them.
func (w *Workflow) expire(requestID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	req, ok := w.pending[requestID]
	if !ok || req.State != StateRequested {
		return
	}
	req.State = StateTimedOut
	delete(w.pending, requestID)
	w.log.Info("archive request timed out", "request_id", requestID, "channel", req.ChannelName)
}

// archiveNow renames the channel and posts a confirmation naming only the
// requester.
func (w *Workflow) archiveNow(ctx context.Context, channelID int64, name, label string, requesterID int64) error {
	newName := ArchivedName(name, label)
	if err := w.platform.ArchiveChannel(ctx, channelID, newName); err != nil {
		return fmt.Errorf("archive channel: %w", err)
	}
	confirmation := fmt.Sprintf("Channel %s archived as %s by %d.", name, newName, requesterID)
	if err := w.platform.PostConfirmation(ctx, confirmation); err != nil {
		w.log.Warn("post archive confirmation", "error", err)
	}
	return nil
}

// ArchivedName derives the archived channel name: any "・"-delimited icon
// prefix is stripped and the date label is prepended.
func ArchivedName(name, label string) string {
	base := name
	if _, rest, ok := strings.Cut(name, "・"); ok {
		base = rest
	}
	return fmt.Sprintf("%s_%s", label, base)
}
