package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/perm"
	"github.com/agalitsyn/taskboard/internal/realtime"
)

const (
	fieldStatus      = "status"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldAssignees   = "assignees"
	fieldLifecycle   = "lifecycle"
)

// Repositories are the engine's view of the external durable store plus the
// profile service. Implementations may be remote clients or local stand-ins.
type Repositories struct {
	Tasks       model.TaskRepository
	Comments    model.CommentRepository
	Attachments model.AttachmentRepository
	Activities  model.ActivityRepository
	Movements   model.MovementRepository
	Assignments model.AssignmentRepository
	Profiles    model.ProfileDirectory
}

// Engine is the task synchronization core for one workspace session: it owns
// the projection, applies mutations optimistically and keeps the audit trail.
// Operations take the acting user explicitly; adapters resolve the actor.
type Engine struct {
	workspaceID string
	store       *Store
	pipeline    *Pipeline
	recorder    *Recorder
	repos       Repositories
	log         lgr.L
}

func NewEngine(workspaceID string, repos Repositories, log lgr.L) *Engine {
	if log == nil {
		log = lgr.NoOp
	}
	return &Engine{
		workspaceID: workspaceID,
		store:       NewStore(workspaceID),
		pipeline:    NewPipeline(log),
		recorder:    NewRecorder(repos.Movements, repos.Activities, log),
		repos:       repos,
		log:         log,
	}
}

// Store exposes the projection for read-only consumption and Watch.
func (e *Engine) Store() *Store { return e.store }

// Reconciler builds the realtime consumer folding push events into this
// engine's projection.
func (e *Engine) Reconciler(src realtime.Subscriber) *Reconciler {
	return NewReconciler(e.store, src, e.Load, e.repos.Profiles, e.log)
}

// Load replaces the projection from the durable store. On failure the
// previous projection is left intact.
func (e *Engine) Load(ctx context.Context) error {
	tasks, err := e.repos.Tasks.FetchTasks(ctx, e.workspaceID)
	if err != nil {
		return &TransportError{Op: "load tasks", Err: err}
	}
	for i := range tasks {
		assignees, err := e.repos.Assignments.FetchAssignees(ctx, tasks[i].ID)
		if err != nil {
			return &TransportError{Op: "load assignees", Err: err}
		}
		tasks[i].Assignees = assignees
	}
	e.store.ReplaceAll(tasks)
	e.log.Logf("DEBUG loaded %d tasks for workspace %s", len(tasks), e.workspaceID)
	return nil
}

// LoadTaskDetail fills the sub-collections of one task for the detail panel.
func (e *Engine) LoadTaskDetail(ctx context.Context, taskID string) error {
	if _, ok := e.store.Get(taskID); !ok {
		return fmt.Errorf("load detail: %w", ErrNotFound)
	}

	comments, err := e.repos.Comments.FetchComments(ctx, taskID)
	if err != nil {
		return &TransportError{Op: "load comments", Err: err}
	}
	for i := range comments {
		comments[i].UserName = resolveUserName(ctx, e.repos.Profiles, e.log, comments[i].UserID)
	}

	attachments, err := e.repos.Attachments.FetchAttachments(ctx, taskID)
	if err != nil {
		return &TransportError{Op: "load attachments", Err: err}
	}

	activities, err := e.repos.Activities.FetchActivities(ctx, taskID)
	if err != nil {
		return &TransportError{Op: "load activities", Err: err}
	}
	for i := range activities {
		if activities[i].UserID != "" {
			activities[i].UserName = resolveUserName(ctx, e.repos.Profiles, e.log, activities[i].UserID)
		}
	}

	movements, err := e.repos.Movements.FetchMovements(ctx, taskID)
	if err != nil {
		return &TransportError{Op: "load movements", Err: err}
	}

	e.store.ReplaceComments(taskID, comments)
	e.store.ReplaceAttachments(taskID, attachments)
	e.store.ReplaceActivities(taskID, activities)
	e.store.ReplaceMovements(taskID, movements)
	return nil
}

func (e *Engine) TasksForStage(stage model.TaskStatus) ([]model.Task, error) {
	if !stage.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown stage %q", stage)}
	}
	return e.store.TasksForStage(stage), nil
}

func (e *Engine) Task(taskID string) (*model.Task, error) {
	t, ok := e.store.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return t, nil
}

type CreateTaskParams struct {
	Title       string
	Description string
	Priority    int
	DueDate     time.Time
}

func (e *Engine) CreateTask(ctx context.Context, actor *model.User, params CreateTaskParams) (*model.Task, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !perm.CanCreateTask(actor) {
		return nil, fmt.Errorf("create task: %w", ErrPermissionDenied)
	}

	task := model.NewTask(e.workspaceID, title, actor.ID)
	task.ID = uuid.NewString()
	task.Description = strings.TrimSpace(params.Description)
	task.Priority = params.Priority
	task.DueDate = params.DueDate

	m := Mutation{
		TaskID: task.ID,
		Field:  fieldLifecycle,
		Apply: func() (func(), error) {
			e.store.Upsert(task)
			return func() { e.store.Remove(task.ID) }, nil
		},
		Persist: func(ctx context.Context) error {
			return e.repos.Tasks.CreateTask(ctx, task)
		},
	}
	if err := e.pipeline.Do(ctx, m); err != nil {
		if errors.Is(err, ErrSuperseded) {
			return task, nil
		}
		return nil, err
	}

	e.recorder.RecordActivity(ctx, task.ID, actor.ID, model.ActivityTaskCreated, nil, "", title)
	return task, nil
}

// MoveTask transitions a task to another stage. Moving to the current stage
// is a silent no-op; a successful transition appends exactly one movement.
func (e *Engine) MoveTask(ctx context.Context, actor *model.User, taskID string, target model.TaskStatus) error {
	if !target.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown stage %q", target)}
	}

	cur, ok := e.store.Get(taskID)
	if !ok {
		return fmt.Errorf("move task: %w", ErrNotFound)
	}
	if !perm.CanMoveTask(actor, cur) {
		return fmt.Errorf("move task: %w", ErrPermissionDenied)
	}
	if cur.Status == target {
		return nil
	}
	from := cur.Status

	var updated *model.Task
	m := Mutation{
		TaskID: taskID,
		Field:  fieldStatus,
		Apply: func() (func(), error) {
			snapshot, ok := e.store.ApplyOptimistic(taskID, func(t *model.Task) {
				t.Status = target
				updated = t.Clone()
			})
			if !ok {
				return nil, fmt.Errorf("move task: %w", ErrNotFound)
			}
			return func() { e.store.Restore(snapshot) }, nil
		},
		Persist: func(ctx context.Context) error {
			return e.repos.Tasks.UpdateTask(ctx, updated)
		},
	}
	if err := e.pipeline.Do(ctx, m); err != nil {
		if errors.Is(err, ErrSuperseded) {
			return nil
		}
		return err
	}

	e.recorder.RecordMovement(ctx, cur, from, target, actor.ID)
	e.recorder.RecordActivity(ctx, taskID, actor.ID, model.ActivityStatusChanged, nil, string(from), string(target))
	return nil
}

func (e *Engine) UpdateTitle(ctx context.Context, actor *model.User, taskID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return e.updateTextField(ctx, actor, taskID, fieldTitle, title, model.ActivityTitleUpdated)
}

func (e *Engine) UpdateDescription(ctx context.Context, actor *model.User, taskID, description string) error {
	return e.updateTextField(ctx, actor, taskID, fieldDescription, description, model.ActivityDescriptionUpdated)
}

func (e *Engine) updateTextField(
	ctx context.Context,
	actor *model.User,
	taskID, field, value string,
	action model.ActivityAction,
) error {
	cur, ok := e.store.Get(taskID)
	if !ok {
		return fmt.Errorf("update %s: %w", field, ErrNotFound)
	}
	if !perm.CanEdit(actor, cur) {
		return fmt.Errorf("update %s: %w", field, ErrPermissionDenied)
	}

	old := cur.Title
	if field == fieldDescription {
		old = cur.Description
	}
	if old == value {
		return nil
	}

	var updated *model.Task
	m := Mutation{
		TaskID: taskID,
		Field:  field,
		Apply: func() (func(), error) {
			snapshot, ok := e.store.ApplyOptimistic(taskID, func(t *model.Task) {
				if field == fieldTitle {
					t.Title = value
				} else {
					t.Description = value
				}
				updated = t.Clone()
			})
			if !ok {
				return nil, fmt.Errorf("update %s: %w", field, ErrNotFound)
			}
			return func() { e.store.Restore(snapshot) }, nil
		},
		Persist: func(ctx context.Context) error {
			return e.repos.Tasks.UpdateTask(ctx, updated)
		},
	}
	if err := e.pipeline.Do(ctx, m); err != nil {
		if errors.Is(err, ErrSuperseded) {
			return nil
		}
		return err
	}

	e.recorder.RecordActivity(ctx, taskID, actor.ID, action, nil, old, value)
	return nil
}

func (e *Engine) AddComment(ctx context.Context, actor *model.User, taskID, body string) (*model.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, &ValidationError{Field: "comment", Reason: "must not be empty"}
	}

	cur, ok := e.store.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("add comment: %w", ErrNotFound)
	}
	if !perm.CanComment(actor, cur) {
		return nil, fmt.Errorf("add comment: %w", ErrPermissionDenied)
	}

	comment := &model.Comment{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		UserID:    actor.ID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
		UserName:  actor.FullName,
	}

	m := Mutation{
		TaskID: taskID,
		Field:  "comment/" + comment.ID,
		Apply: func() (func(), error) {
			e.store.AddComment(*comment)
			return func() { e.store.RemoveComment(taskID, comment.ID) }, nil
		},
		Persist: func(ctx context.Context) error {
			return e.repos.Comments.CreateComment(ctx, comment)
		},
	}
	if err := e.pipeline.Do(ctx, m); err != nil && !errors.Is(err, ErrSuperseded) {
		return nil, err
	}

	e.recorder.RecordActivity(ctx, taskID, actor.ID, model.ActivityCommentAdded,
		map[string]string{"comment_id": comment.ID}, "", "")
	return comment, nil
}

// FileInfo describes an already uploaded blob; the engine persists metadata only.
type FileInfo struct {
	Name string
	Path string
	Size int64
	Type string
}

func (e *Engine) AddAttachment(ctx context.Context, actor *model.User, taskID string, file FileInfo) (*model.Attachment, error) {
	if strings.TrimSpace(file.Name) == "" {
		return nil, &ValidationError{Field: "file", Reason: "name must not be empty"}
	}

	cur, ok := e.store.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("add attachment: %w", ErrNotFound)
	}
	// Attaching follows the comment rule: admin roles and assignees act on a task.
	if !perm.CanComment(actor, cur) {
		return nil, fmt.Errorf("add attachment: %w", ErrPermissionDenied)
	}

	attachment := &model.Attachment{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		FileName:   file.Name,
		FilePath:   file.Path,
		FileSize:   file.Size,
		FileType:   file.Type,
		UploadedBy: actor.ID,
		CreatedAt:  time.Now().UTC(),
	}

	m := Mutation{
		TaskID: taskID,
		Field:  "attachment/" + attachment.ID,
		Apply: func() (func(), error) {
			e.store.AddAttachment(*attachment)
			return func() { e.store.RemoveAttachment(attachment.ID) }, nil
		},
		Persist: func(ctx context.Context) error {
			return e.repos.Attachments.CreateAttachment(ctx, attachment)
		},
	}
	if err := e.pipeline.Do(ctx, m); err != nil && !errors.Is(err, ErrSuperseded) {
		return nil, err
	}

	e.recorder.RecordActivity(ctx, taskID, actor.ID, model.ActivityFileUploaded,
		map[string]string{"file_name": attachment.FileName}, "", "")
	return attachment, nil
}

func (e *Engine) RemoveAttachment(ctx context.Context, actor *model.User, attachmentID string) error {
	attachment, ok := e.store.AttachmentByID(attachmentID)
	if !ok {
		return fmt.Errorf("remove attachment: %w", ErrNotFound)
	}
	if !perm.CanDeleteAttachment(actor, attachment) {
		return fmt.Errorf("remove attachment: %w", ErrPermissionDenied)
	}

	m := Mutation{
		TaskID: attachment.TaskID,
		Field:  "attachment/" + attachmentID,
		Apply: func() (func(), error) {
			e.store.RemoveAttachment(attachmentID)
			return func() { e.store.AddAttachment(*attachment) }, nil
		},
		Persist: func(ctx context.Context) error {
			return e.repos.Attachments.DeleteAttachment(ctx, attachmentID)
		},
	}
	if err := e.pipeline.Do(ctx, m); err != nil && !errors.Is(err, ErrSuperseded) {
		return err
	}

	e.recorder.RecordActivity(ctx, attachment.TaskID, actor.ID, model.ActivityFileDeleted,
		map[string]string{"file_name": attachment.FileName}, "", "")
	return nil
}

// RecordAttachmentDownload leaves an audit mark only; downloads do not mutate
// the projection.
func (e *Engine) RecordAttachmentDownload(ctx context.Context, actor *model.User, attachmentID string) error {
	attachment, ok := e.store.AttachmentByID(attachmentID)
	if !ok {
		return fmt.Errorf("download attachment: %w", ErrNotFound)
	}
	e.recorder.RecordActivity(ctx, attachment.TaskID, actor.ID, model.ActivityFileDownloaded,
		map[string]string{"file_name": attachment.FileName}, "", "")
	return nil
}

func (e *Engine) AssignUsers(ctx context.Context, actor *model.User, taskID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return &ValidationError{Field: "users", Reason: "must not be empty"}
	}

	cur, ok := e.store.Get(taskID)
	if !ok {
		return fmt.Errorf("assign users: %w", ErrNotFound)
	}
	if !perm.CanManageAssignments(actor, cur) {
		return fmt.Errorf("assign users: %w", ErrPermissionDenied)
	}

	var added []string
	for _, id := range userIDs {
		if id != "" && !cur.HasAssignee(id) {
			added = append(added, id)
		}
	}
	if len(added) == 0 {
		return nil
	}

	var updated *model.Task
	m := Mutation{
		TaskID: taskID,
		Field:  fieldAssignees,
		Apply: func() (func(), error) {
			snapshot, ok := e.store.ApplyOptimistic(taskID, func(t *model.Task) {
				t.Assignees = append(t.Assignees, added...)
				// Keep the legacy primary pointer in the set.
				if t.AssignedTo == "" {
					t.AssignedTo = added[0]
				}
				updated = t.Clone()
			})
			if !ok {
				return nil, fmt.Errorf("assign users: %w", ErrNotFound)
			}
			return func() { e.store.Restore(snapshot) }, nil
		},
		Persist: func(ctx context.Context) error {
			if err := e.repos.Assignments.AddAssignees(ctx, taskID, added); err != nil {
				return err
			}
			return e.repos.Tasks.UpdateTask(ctx, updated)
		},
	}
	if err := e.pipeline.Do(ctx, m); err != nil {
		if errors.Is(err, ErrSuperseded) {
			return nil
		}
		return err
	}

	e.recorder.RecordActivity(ctx, taskID, actor.ID, model.ActivityUsersAssigned,
		map[string]string{"user_ids": strings.Join(added, ",")}, "", "")
	return nil
}

func (e *Engine) UnassignUser(ctx context.Context, actor *model.User, taskID, userID string) error {
	cur, ok := e.store.Get(taskID)
	if !ok {
		return fmt.Errorf("unassign user: %w", ErrNotFound)
	}
	if !perm.CanManageAssignments(actor, cur) {
		return fmt.Errorf("unassign user: %w", ErrPermissionDenied)
	}
	if !cur.HasAssignee(userID) {
		return nil
	}

	var updated *model.Task
	m := Mutation{
		TaskID: taskID,
		Field:  fieldAssignees,
		Apply: func() (func(), error) {
			snapshot, ok := e.store.ApplyOptimistic(taskID, func(t *model.Task) {
				for i, id := range t.Assignees {
					if id == userID {
						t.Assignees = append(t.Assignees[:i:i], t.Assignees[i+1:]...)
						break
					}
				}
				if t.AssignedTo == userID {
					t.AssignedTo = ""
				}
				updated = t.Clone()
			})
			if !ok {
				return nil, fmt.Errorf("unassign user: %w", ErrNotFound)
			}
			return func() { e.store.Restore(snapshot) }, nil
		},
		Persist: func(ctx context.Context) error {
			if err := e.repos.Assignments.RemoveAssignee(ctx, taskID, userID); err != nil {
				return err
			}
			return e.repos.Tasks.UpdateTask(ctx, updated)
		},
	}
	if err := e.pipeline.Do(ctx, m); err != nil {
		if errors.Is(err, ErrSuperseded) {
			return nil
		}
		return err
	}

	e.recorder.RecordActivity(ctx, taskID, actor.ID, model.ActivityUserRemoved,
		map[string]string{"user_id": userID}, "", "")
	return nil
}

// DeleteTask hard-deletes a task; storage cascades its comments, attachments
// and audit rows.
func (e *Engine) DeleteTask(ctx context.Context, actor *model.User, taskID string) error {
	if !perm.CanDeleteTask(actor) {
		return fmt.Errorf("delete task: %w", ErrPermissionDenied)
	}

	cur, ok := e.store.Get(taskID)
	if !ok {
		return fmt.Errorf("delete task: %w", ErrNotFound)
	}

	comments := e.store.Comments(taskID)
	attachments := e.store.Attachments(taskID)
	activities := e.store.Activities(taskID)
	movements := e.store.Movements(taskID)

	m := Mutation{
		TaskID: taskID,
		Field:  fieldLifecycle,
		Apply: func() (func(), error) {
			e.store.Remove(taskID)
			return func() {
				e.store.Upsert(cur)
				e.store.ReplaceComments(taskID, comments)
				e.store.ReplaceAttachments(taskID, attachments)
				e.store.ReplaceActivities(taskID, activities)
				e.store.ReplaceMovements(taskID, movements)
			}, nil
		},
		Persist: func(ctx context.Context) error {
			return e.repos.Tasks.DeleteTask(ctx, taskID)
		},
	}
	if err := e.pipeline.Do(ctx, m); err != nil && !errors.Is(err, ErrSuperseded) {
		return err
	}
	return nil
}
