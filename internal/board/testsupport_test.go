package board

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/agalitsyn/taskboard/internal/model"
)

const testWorkspace = "ws-1"

// fakeStorage implements every repository interface plus the profile
// directory, with injectable failures per operation.
type fakeStorage struct {
	mu          sync.Mutex
	tasks       map[string]model.Task
	comments    map[string][]model.Comment
	attachments map[string][]model.Attachment
	activities  map[string][]model.Activity
	movements   map[string][]model.Movement
	assignees   map[string][]string
	profiles    map[string]string

	failFetchTasks       error
	failCreateTask       error
	failUpdateTask       error
	failDeleteTask       error
	failCreateComment    error
	failCreateAttachment error
	failDeleteAttachment error
	failCreateActivity   error
	failCreateMovement   error
	failAssignments      error
	failProfiles         error

	updateTaskCalls    int
	createCommentCalls int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		tasks:       make(map[string]model.Task),
		comments:    make(map[string][]model.Comment),
		attachments: make(map[string][]model.Attachment),
		activities:  make(map[string][]model.Activity),
		movements:   make(map[string][]model.Movement),
		assignees:   make(map[string][]string),
		profiles:    make(map[string]string),
	}
}

func (f *fakeStorage) repos() Repositories {
	return Repositories{
		Tasks:       f,
		Comments:    f,
		Attachments: f,
		Activities:  f,
		Movements:   f,
		Assignments: f,
		Profiles:    f,
	}
}

func (f *fakeStorage) FetchTasks(_ context.Context, workspaceID string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFetchTasks != nil {
		return nil, f.failFetchTasks
	}
	var out []model.Task
	for _, t := range f.tasks {
		if t.WorkspaceID == workspaceID {
			out = append(out, *t.Clone())
		}
	}
	return out, nil
}

func (f *fakeStorage) FetchTaskByID(_ context.Context, id string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, model.ErrTaskNotFound
	}
	return t.Clone(), nil
}

func (f *fakeStorage) CreateTask(_ context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateTask != nil {
		return f.failCreateTask
	}
	f.tasks[task.ID] = *task.Clone()
	return nil
}

func (f *fakeStorage) UpdateTask(_ context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateTaskCalls++
	if f.failUpdateTask != nil {
		return f.failUpdateTask
	}
	if _, ok := f.tasks[task.ID]; !ok {
		return model.ErrTaskNotFound
	}
	f.tasks[task.ID] = *task.Clone()
	return nil
}

func (f *fakeStorage) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeleteTask != nil {
		return f.failDeleteTask
	}
	delete(f.tasks, id)
	delete(f.comments, id)
	delete(f.attachments, id)
	delete(f.activities, id)
	delete(f.movements, id)
	delete(f.assignees, id)
	return nil
}

func (f *fakeStorage) FetchComments(_ context.Context, taskID string) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Comment(nil), f.comments[taskID]...), nil
}

func (f *fakeStorage) CreateComment(_ context.Context, comment *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCommentCalls++
	if f.failCreateComment != nil {
		return f.failCreateComment
	}
	f.comments[comment.TaskID] = append(f.comments[comment.TaskID], *comment)
	return nil
}

func (f *fakeStorage) FetchAttachments(_ context.Context, taskID string) ([]model.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Attachment(nil), f.attachments[taskID]...), nil
}

func (f *fakeStorage) FetchAttachmentByID(_ context.Context, id string) (*model.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, held := range f.attachments {
		for _, a := range held {
			if a.ID == id {
				cp := a
				return &cp, nil
			}
		}
	}
	return nil, model.ErrAttachmentNotFound
}

func (f *fakeStorage) CreateAttachment(_ context.Context, attachment *model.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateAttachment != nil {
		return f.failCreateAttachment
	}
	f.attachments[attachment.TaskID] = append(f.attachments[attachment.TaskID], *attachment)
	return nil
}

func (f *fakeStorage) DeleteAttachment(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeleteAttachment != nil {
		return f.failDeleteAttachment
	}
	for taskID, held := range f.attachments {
		for i, a := range held {
			if a.ID == id {
				f.attachments[taskID] = append(held[:i:i], held[i+1:]...)
				return nil
			}
		}
	}
	return model.ErrAttachmentNotFound
}

func (f *fakeStorage) FetchActivities(_ context.Context, taskID string) ([]model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Activity(nil), f.activities[taskID]...), nil
}

func (f *fakeStorage) CreateActivity(_ context.Context, activity *model.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateActivity != nil {
		return f.failCreateActivity
	}
	f.activities[activity.TaskID] = append(f.activities[activity.TaskID], *activity)
	return nil
}

func (f *fakeStorage) FetchMovements(_ context.Context, taskID string) ([]model.Movement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Movement(nil), f.movements[taskID]...), nil
}

func (f *fakeStorage) CreateMovement(_ context.Context, movement *model.Movement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateMovement != nil {
		return f.failCreateMovement
	}
	f.movements[movement.TaskID] = append(f.movements[movement.TaskID], *movement)
	return nil
}

func (f *fakeStorage) FetchAssignees(_ context.Context, taskID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAssignments != nil {
		return nil, f.failAssignments
	}
	return append([]string(nil), f.assignees[taskID]...), nil
}

func (f *fakeStorage) AddAssignees(_ context.Context, taskID string, userIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAssignments != nil {
		return f.failAssignments
	}
	f.assignees[taskID] = append(f.assignees[taskID], userIDs...)
	return nil
}

func (f *fakeStorage) RemoveAssignee(_ context.Context, taskID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAssignments != nil {
		return f.failAssignments
	}
	held := f.assignees[taskID]
	for i, id := range held {
		if id == userID {
			f.assignees[taskID] = append(held[:i:i], held[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStorage) DisplayName(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failProfiles != nil {
		return "", f.failProfiles
	}
	name, ok := f.profiles[userID]
	if !ok {
		return "", fmt.Errorf("no profile for %s", userID)
	}
	return name, nil
}

func (f *fakeStorage) movementsFor(taskID string) []model.Movement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Movement(nil), f.movements[taskID]...)
}

func (f *fakeStorage) activitiesFor(taskID string) []model.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Activity(nil), f.activities[taskID]...)
}

func (f *fakeStorage) taskByID(taskID string) (model.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	return t, ok
}

func seedTask(storage *fakeStorage, id string, status model.TaskStatus, createdBy string, assignees ...string) model.Task {
	task := model.Task{
		ID:          id,
		WorkspaceID: testWorkspace,
		Title:       "Task " + id,
		Status:      status,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC().Add(-time.Hour),
		UpdatedAt:   time.Now().UTC().Add(-time.Hour),
	}
	storage.mu.Lock()
	storage.tasks[id] = task
	storage.assignees[id] = append([]string(nil), assignees...)
	storage.mu.Unlock()
	return task
}

func newTestEngine(t *testing.T, storage *fakeStorage) *Engine {
	t.Helper()
	engine := NewEngine(testWorkspace, storage.repos(), nil)
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return engine
}

func testUser(id string, role model.UserRole) *model.User {
	return &model.User{ID: id, FullName: "User " + id, Role: role, IsActive: true}
}
