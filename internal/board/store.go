package board

import (
	"sort"
	"sync"
	"time"

	"github.com/agalitsyn/taskboard/internal/model"
)

type ChangeKind string

const (
	// ChangeList means the task collection itself changed (rows, statuses).
	ChangeList ChangeKind = "list"
	// ChangeDetail means a task's sub-collections changed.
	ChangeDetail ChangeKind = "detail"
)

// Change is the re-render hint pushed to presentation-layer watchers.
type Change struct {
	TaskID string
	Kind   ChangeKind
}

// Store holds the in-memory projection of one workspace: tasks keyed by id
// plus per-task comments, attachments, activity and movement collections.
// All writes are serialized behind one mutex; readers get deep copies, so
// the presentation layer can never mutate the projection directly.
type Store struct {
	workspaceID string

	mu          sync.RWMutex
	tasks       map[string]*model.Task
	comments    map[string][]model.Comment
	attachments map[string][]model.Attachment
	activities  map[string][]model.Activity
	movements   map[string][]model.Movement

	watchMu   sync.Mutex
	watchers  map[int]func(Change)
	nextWatch int
}

func NewStore(workspaceID string) *Store {
	return &Store{
		workspaceID: workspaceID,
		tasks:       make(map[string]*model.Task),
		comments:    make(map[string][]model.Comment),
		attachments: make(map[string][]model.Attachment),
		activities:  make(map[string][]model.Activity),
		movements:   make(map[string][]model.Movement),
		watchers:    make(map[int]func(Change)),
	}
}

func (s *Store) WorkspaceID() string { return s.workspaceID }

// Watch registers a change listener and returns its cancel func.
func (s *Store) Watch(fn func(Change)) func() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	return func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *Store) notify(taskID string, kind ChangeKind) {
	s.watchMu.Lock()
	fns := make([]func(Change), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()
	for _, fn := range fns {
		fn(Change{TaskID: taskID, Kind: kind})
	}
}

// ReplaceAll swaps the whole task collection in one step. Sub-collections of
// tasks that disappeared are dropped; the rest are kept.
func (s *Store) ReplaceAll(tasks []model.Task) {
	next := make(map[string]*model.Task, len(tasks))
	for i := range tasks {
		t := tasks[i]
		next[t.ID] = t.Clone()
	}

	s.mu.Lock()
	s.tasks = next
	for id := range s.comments {
		if _, ok := next[id]; !ok {
			delete(s.comments, id)
		}
	}
	for id := range s.attachments {
		if _, ok := next[id]; !ok {
			delete(s.attachments, id)
		}
	}
	for id := range s.activities {
		if _, ok := next[id]; !ok {
			delete(s.activities, id)
		}
	}
	for id := range s.movements {
		if _, ok := next[id]; !ok {
			delete(s.movements, id)
		}
	}
	s.mu.Unlock()

	s.notify("", ChangeList)
}

// Get returns a copy of the task with derived counts filled in.
func (s *Store) Get(taskID string) (*model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, false
	}
	return s.view(t), true
}

// view clones a task and fills derived fields. Callers hold s.mu.
func (s *Store) view(t *model.Task) *model.Task {
	cp := t.Clone()
	cp.CommentsCount = len(s.comments[t.ID])
	cp.AttachmentsCount = len(s.attachments[t.ID])
	return cp
}

// Upsert inserts or replaces a task by id.
func (s *Store) Upsert(task *model.Task) {
	s.mu.Lock()
	s.tasks[task.ID] = task.Clone()
	s.mu.Unlock()
	s.notify(task.ID, ChangeList)
}

// MergeRemote folds a server-pushed task row into the projection. Stale
// payloads (older than the held updated_at) are dropped. The assignment set
// travels on separate events, so the locally known set is preserved.
func (s *Store) MergeRemote(task *model.Task) bool {
	s.mu.Lock()
	cur, ok := s.tasks[task.ID]
	if ok && cur.UpdatedAt.After(task.UpdatedAt) {
		s.mu.Unlock()
		return false
	}
	next := task.Clone()
	if ok && next.Assignees == nil {
		next.Assignees = append([]string(nil), cur.Assignees...)
	}
	s.tasks[task.ID] = next
	s.mu.Unlock()
	s.notify(task.ID, ChangeList)
	return true
}

// Remove deletes a task and its sub-collections. Removing an absent id is a
// no-op, not an error.
func (s *Store) Remove(taskID string) {
	s.mu.Lock()
	_, ok := s.tasks[taskID]
	delete(s.tasks, taskID)
	delete(s.comments, taskID)
	delete(s.attachments, taskID)
	delete(s.activities, taskID)
	delete(s.movements, taskID)
	s.mu.Unlock()
	if ok {
		s.notify(taskID, ChangeList)
	}
}

// ApplyOptimistic runs a read-modify-write on a task under the store lock,
// bumps updated_at and returns the pre-mutation snapshot for rollback.
func (s *Store) ApplyOptimistic(taskID string, apply func(*model.Task)) (*model.Task, bool) {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	snapshot := t.Clone()
	apply(t)
	t.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()
	s.notify(taskID, ChangeList)
	return snapshot, true
}

// Restore puts back a rollback snapshot exactly as it was taken.
func (s *Store) Restore(snapshot *model.Task) {
	s.mu.Lock()
	s.tasks[snapshot.ID] = snapshot.Clone()
	s.mu.Unlock()
	s.notify(snapshot.ID, ChangeList)
}

// Tasks returns all tasks sorted by created_at descending.
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *s.view(t))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// TasksForStage returns the tasks of one board column, newest first.
func (s *Store) TasksForStage(stage model.TaskStatus) []model.Task {
	s.mu.RLock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.Status == stage {
			out = append(out, *s.view(t))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// AddComment appends a comment unless one with the same id is already held.
func (s *Store) AddComment(c model.Comment) bool {
	s.mu.Lock()
	for _, held := range s.comments[c.TaskID] {
		if held.ID == c.ID {
			s.mu.Unlock()
			return false
		}
	}
	s.comments[c.TaskID] = append(s.comments[c.TaskID], c)
	s.mu.Unlock()
	s.notify(c.TaskID, ChangeDetail)
	return true
}

func (s *Store) RemoveComment(taskID, commentID string) {
	s.mu.Lock()
	held := s.comments[taskID]
	for i, c := range held {
		if c.ID == commentID {
			s.comments[taskID] = append(held[:i:i], held[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.notify(taskID, ChangeDetail)
}

func (s *Store) ReplaceComments(taskID string, comments []model.Comment) {
	s.mu.Lock()
	s.comments[taskID] = append([]model.Comment(nil), comments...)
	s.mu.Unlock()
	s.notify(taskID, ChangeDetail)
}

func (s *Store) Comments(taskID string) []model.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Comment(nil), s.comments[taskID]...)
}

func (s *Store) AddAttachment(a model.Attachment) bool {
	s.mu.Lock()
	for _, held := range s.attachments[a.TaskID] {
		if held.ID == a.ID {
			s.mu.Unlock()
			return false
		}
	}
	s.attachments[a.TaskID] = append(s.attachments[a.TaskID], a)
	s.mu.Unlock()
	s.notify(a.TaskID, ChangeDetail)
	return true
}

func (s *Store) RemoveAttachment(attachmentID string) {
	s.mu.Lock()
	var taskID string
	for tid, held := range s.attachments {
		for i, a := range held {
			if a.ID == attachmentID {
				s.attachments[tid] = append(held[:i:i], held[i+1:]...)
				taskID = tid
				break
			}
		}
		if taskID != "" {
			break
		}
	}
	s.mu.Unlock()
	if taskID != "" {
		s.notify(taskID, ChangeDetail)
	}
}

// AttachmentByID scans all held attachments; the projection is small enough
// that an index per attachment id is not worth carrying.
func (s *Store) AttachmentByID(attachmentID string) (*model.Attachment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, held := range s.attachments {
		for _, a := range held {
			if a.ID == attachmentID {
				cp := a
				return &cp, true
			}
		}
	}
	return nil, false
}

func (s *Store) ReplaceAttachments(taskID string, attachments []model.Attachment) {
	s.mu.Lock()
	s.attachments[taskID] = append([]model.Attachment(nil), attachments...)
	s.mu.Unlock()
	s.notify(taskID, ChangeDetail)
}

func (s *Store) Attachments(taskID string) []model.Attachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Attachment(nil), s.attachments[taskID]...)
}

// AddActivity appends an audit entry; entries are never merged or replaced.
func (s *Store) AddActivity(a model.Activity) bool {
	s.mu.Lock()
	for _, held := range s.activities[a.TaskID] {
		if held.ID == a.ID {
			s.mu.Unlock()
			return false
		}
	}
	s.activities[a.TaskID] = append(s.activities[a.TaskID], a)
	s.mu.Unlock()
	s.notify(a.TaskID, ChangeDetail)
	return true
}

func (s *Store) ReplaceActivities(taskID string, activities []model.Activity) {
	s.mu.Lock()
	s.activities[taskID] = append([]model.Activity(nil), activities...)
	s.mu.Unlock()
	s.notify(taskID, ChangeDetail)
}

func (s *Store) Activities(taskID string) []model.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Activity(nil), s.activities[taskID]...)
}

func (s *Store) AddMovement(m model.Movement) bool {
	s.mu.Lock()
	for _, held := range s.movements[m.TaskID] {
		if held.ID == m.ID {
			s.mu.Unlock()
			return false
		}
	}
	s.movements[m.TaskID] = append(s.movements[m.TaskID], m)
	s.mu.Unlock()
	s.notify(m.TaskID, ChangeDetail)
	return true
}

func (s *Store) ReplaceMovements(taskID string, movements []model.Movement) {
	s.mu.Lock()
	s.movements[taskID] = append([]model.Movement(nil), movements...)
	s.mu.Unlock()
	s.notify(taskID, ChangeDetail)
}

func (s *Store) Movements(taskID string) []model.Movement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Movement(nil), s.movements[taskID]...)
}

func (s *Store) AddAssignee(taskID, userID string) {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if ok && !t.HasAssignee(userID) {
		t.Assignees = append(t.Assignees, userID)
	}
	s.mu.Unlock()
	if ok {
		s.notify(taskID, ChangeDetail)
	}
}

func (s *Store) RemoveAssignee(taskID, userID string) {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if ok {
		for i, id := range t.Assignees {
			if id == userID {
				t.Assignees = append(t.Assignees[:i:i], t.Assignees[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	if ok {
		s.notify(taskID, ChangeDetail)
	}
}
