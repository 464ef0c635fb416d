package board

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/realtime"
)

const unknownUserName = "Unknown user"

const resubscribeDelay = 2 * time.Second

// Reconciler folds server-pushed change events into the projection. Events
// are applied in arrival order; duplicates and stale task rows are dropped,
// audit rows are append-only. A lost subscription triggers a full reload
// because missed events are not replayable.
type Reconciler struct {
	store    *Store
	src      realtime.Subscriber
	reload   func(ctx context.Context) error
	profiles model.ProfileDirectory
	log      lgr.L

	handlers map[string]func(ctx context.Context, ev realtime.Event)
}

func NewReconciler(
	store *Store,
	src realtime.Subscriber,
	reload func(ctx context.Context) error,
	profiles model.ProfileDirectory,
	log lgr.L,
) *Reconciler {
	if log == nil {
		log = lgr.NoOp
	}
	r := &Reconciler{
		store:    store,
		src:      src,
		reload:   reload,
		profiles: profiles,
		log:      log,
	}
	r.handlers = map[string]func(ctx context.Context, ev realtime.Event){
		realtime.TableTasks:       r.applyTask,
		realtime.TableComments:    r.applyComment,
		realtime.TableAttachments: r.applyAttachment,
		realtime.TableActivities:  r.applyActivity,
		realtime.TableMovements:   r.applyMovement,
		realtime.TableAssignments: r.applyAssignment,
	}
	return r
}

// Run blocks until ctx is cancelled: subscribe, resync, consume, repeat on loss.
func (r *Reconciler) Run(ctx context.Context) {
	for ctx.Err() == nil {
		sub, err := r.src.Subscribe(ctx)
		if err != nil {
			r.log.Logf("WARN could not subscribe to change feed: %v", err)
			r.sleep(ctx)
			continue
		}

		// Resync after every (re)subscribe: events between the previous
		// subscription and this one are gone for good.
		if err := r.reload(ctx); err != nil {
			r.log.Logf("WARN resync failed: %v", err)
			sub.Close()
			r.sleep(ctx)
			continue
		}

		r.consume(ctx, sub)
		sub.Close()
		if ctx.Err() == nil {
			r.log.Logf("INFO change feed lost, resubscribing")
		}
	}
}

func (r *Reconciler) consume(ctx context.Context, sub realtime.Subscription) {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			r.Apply(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reconciler) sleep(ctx context.Context) {
	select {
	case <-time.After(resubscribeDelay):
	case <-ctx.Done():
	}
}

// Apply folds a single event into the projection. Exported so the dispatch
// logic is testable without any transport.
func (r *Reconciler) Apply(ctx context.Context, ev realtime.Event) {
	handler, ok := r.handlers[ev.Table]
	if !ok {
		r.log.Logf("DEBUG ignoring event for unknown table %q", ev.Table)
		return
	}
	handler(ctx, ev)
}

func (r *Reconciler) applyTask(ctx context.Context, ev realtime.Event) {
	var row realtime.TaskRow
	if err := json.Unmarshal(ev.Payload, &row); err != nil {
		r.log.Logf("WARN bad task payload: %v", err)
		return
	}

	switch ev.Type {
	case realtime.EventDelete:
		r.store.Remove(row.ID)
	case realtime.EventInsert, realtime.EventUpdate:
		if row.WorkspaceID != r.store.WorkspaceID() {
			return
		}
		task := row.Model()
		if !task.Status.Valid() {
			r.log.Logf("WARN dropping task %s with unknown status %q", row.ID, row.Status)
			return
		}
		if !r.store.MergeRemote(task) {
			r.log.Logf("DEBUG stale task event dropped id=%s", row.ID)
		}
	}
}

func (r *Reconciler) applyComment(ctx context.Context, ev realtime.Event) {
	if ev.Type != realtime.EventInsert {
		return
	}
	var row realtime.CommentRow
	if err := json.Unmarshal(ev.Payload, &row); err != nil {
		r.log.Logf("WARN bad comment payload: %v", err)
		return
	}
	comment := row.Model()
	comment.UserName = resolveUserName(ctx, r.profiles, r.log, comment.UserID)
	if !r.store.AddComment(comment) {
		r.log.Logf("DEBUG duplicate comment event dropped id=%s", row.ID)
	}
}

func (r *Reconciler) applyAttachment(ctx context.Context, ev realtime.Event) {
	var row realtime.AttachmentRow
	if err := json.Unmarshal(ev.Payload, &row); err != nil {
		r.log.Logf("WARN bad attachment payload: %v", err)
		return
	}
	switch ev.Type {
	case realtime.EventInsert:
		r.store.AddAttachment(row.Model())
	case realtime.EventDelete:
		r.store.RemoveAttachment(row.ID)
	}
}

func (r *Reconciler) applyActivity(ctx context.Context, ev realtime.Event) {
	if ev.Type != realtime.EventInsert {
		return
	}
	var row realtime.ActivityRow
	if err := json.Unmarshal(ev.Payload, &row); err != nil {
		r.log.Logf("WARN bad activity payload: %v", err)
		return
	}
	activity := row.Model()
	if activity.UserID != "" {
		activity.UserName = resolveUserName(ctx, r.profiles, r.log, activity.UserID)
	}
	r.store.AddActivity(activity)
}

func (r *Reconciler) applyMovement(ctx context.Context, ev realtime.Event) {
	if ev.Type != realtime.EventInsert {
		return
	}
	var row realtime.MovementRow
	if err := json.Unmarshal(ev.Payload, &row); err != nil {
		r.log.Logf("WARN bad movement payload: %v", err)
		return
	}
	r.store.AddMovement(row.Model())
}

func (r *Reconciler) applyAssignment(ctx context.Context, ev realtime.Event) {
	var row realtime.AssignmentRow
	if err := json.Unmarshal(ev.Payload, &row); err != nil {
		r.log.Logf("WARN bad assignment payload: %v", err)
		return
	}
	switch ev.Type {
	case realtime.EventInsert:
		r.store.AddAssignee(row.TaskID, row.UserID)
	case realtime.EventDelete:
		r.store.RemoveAssignee(row.TaskID, row.UserID)
	}
}

// resolveUserName asks the profile service for a display name; a failed
// lookup degrades to a placeholder instead of failing the caller.
func resolveUserName(ctx context.Context, profiles model.ProfileDirectory, log lgr.L, userID string) string {
	if profiles == nil || userID == "" {
		return unknownUserName
	}
	name, err := profiles.DisplayName(ctx, userID)
	if err != nil || name == "" {
		log.Logf("DEBUG could not resolve user %s: %v", userID, err)
		return unknownUserName
	}
	return name
}
