package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agalitsyn/taskboard/internal/board"
	"github.com/agalitsyn/taskboard/internal/model"
)

type taskView struct {
	ID               string     `json:"id"`
	WorkspaceID      string     `json:"workspace_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           string     `json:"status"`
	Priority         int        `json:"priority,omitempty"`
	AssignedTo       string     `json:"assigned_to,omitempty"`
	Assignees        []string   `json:"assignees,omitempty"`
	CreatedBy        string     `json:"created_by"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CommentsCount    int        `json:"comments_count"`
	AttachmentsCount int        `json:"attachments_count"`
}

func taskViewFrom(t *model.Task) taskView {
	v := taskView{
		ID:               t.ID,
		WorkspaceID:      t.WorkspaceID,
		Title:            t.Title,
		Description:      t.Description,
		Status:           string(t.Status),
		Priority:         t.Priority,
		AssignedTo:       t.AssignedTo,
		Assignees:        t.Assignees,
		CreatedBy:        t.CreatedBy,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
		CommentsCount:    t.CommentsCount,
		AttachmentsCount: t.AttachmentsCount,
	}
	if !t.DueDate.IsZero() {
		due := t.DueDate
		v.DueDate = &due
	}
	return v
}

func taskViewsFrom(tasks []model.Task) []taskView {
	views := make([]taskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, taskViewFrom(&tasks[i]))
	}
	return views
}

func (s *Server) handleBoard(c *gin.Context) {
	stages := make([]gin.H, 0, len(model.TaskStatuses))
	for _, status := range model.TaskStatuses {
		tasks, err := s.board.TasksForStage(status)
		if err != nil {
			s.respondBoardError(c, err)
			return
		}
		stages = append(stages, gin.H{
			"status": string(status),
			"tasks":  taskViewsFrom(tasks),
		})
	}
	respondSuccess(c, http.StatusOK, gin.H{"stages": stages})
}

func (s *Server) handleStageTasks(c *gin.Context) {
	tasks, err := s.board.TasksForStage(model.TaskStatus(c.Param("stage")))
	if err != nil {
		s.respondBoardError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": taskViewsFrom(tasks)})
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	params := board.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}
	if req.DueDate != nil {
		params.DueDate = *req.DueDate
	}

	task, err := s.board.CreateTask(c.Request.Context(), s.actor(c), params)
	if err != nil {
		s.respondBoardError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": taskViewFrom(task)})
}

func (s *Server) handleTaskDetail(c *gin.Context) {
	taskID := c.Param("id")
	if err := s.board.LoadTaskDetail(c.Request.Context(), taskID); err != nil {
		s.respondBoardError(c, err)
		return
	}

	task, err := s.board.Task(taskID)
	if err != nil {
		s.respondBoardError(c, err)
		return
	}

	store := s.board.Store()
	respondSuccess(c, http.StatusOK, gin.H{
		"task":        taskViewFrom(task),
		"comments":    commentViewsFrom(store.Comments(taskID)),
		"attachments": attachmentViewsFrom(store.Attachments(taskID)),
		"activities":  activityViewsFrom(store.Activities(taskID)),
		"movements":   movementViewsFrom(store.Movements(taskID)),
	})
}

type commentView struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func commentViewsFrom(comments []model.Comment) []commentView {
	views := make([]commentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, commentView{
			ID:        c.ID,
			TaskID:    c.TaskID,
			UserID:    c.UserID,
			UserName:  c.UserName,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}
	return views
}

type attachmentView struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path,omitempty"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `json:"file_type,omitempty"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func attachmentViewsFrom(attachments []model.Attachment) []attachmentView {
	views := make([]attachmentView, 0, len(attachments))
	for _, a := range attachments {
		views = append(views, attachmentView{
			ID:         a.ID,
			TaskID:     a.TaskID,
			FileName:   a.FileName,
			FilePath:   a.FilePath,
			FileSize:   a.FileSize,
			FileType:   a.FileType,
			UploadedBy: a.UploadedBy,
			CreatedAt:  a.CreatedAt,
		})
	}
	return views
}

type activityView struct {
	ID        string            `json:"id"`
	TaskID    string            `json:"task_id"`
	UserID    string            `json:"user_id,omitempty"`
	UserName  string            `json:"user_name,omitempty"`
	Action    string            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
	OldValue  string            `json:"old_value,omitempty"`
	NewValue  string            `json:"new_value,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func activityViewsFrom(activities []model.Activity) []activityView {
	views := make([]activityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, activityView{
			ID:        a.ID,
			TaskID:    a.TaskID,
			UserID:    a.UserID,
			UserName:  a.UserName,
			Action:    string(a.Action),
			Details:   a.Details,
			OldValue:  a.OldValue,
			NewValue:  a.NewValue,
			CreatedAt: a.CreatedAt,
		})
	}
	return views
}

type movementView struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	MovedBy    string    `json:"moved_by"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	CreatedAt  time.Time `json:"created_at"`
}

func movementViewsFrom(movements []model.Movement) []movementView {
	views := make([]movementView, 0, len(movements))
	for _, m := range movements {
		views = append(views, movementView{
			ID:         m.ID,
			TaskID:     m.TaskID,
			MovedBy:    m.MovedBy,
			FromStatus: string(m.FromStatus),
			ToStatus:   string(m.ToStatus),
			CreatedAt:  m.CreatedAt,
		})
	}
	return views
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	taskID := c.Param("id")

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	actor := s.actor(c)
	if req.Title != nil {
		if err := s.board.UpdateTitle(c.Request.Context(), actor, taskID, *req.Title); err != nil {
			s.respondBoardError(c, err)
			return
		}
	}
	if req.Description != nil {
		if err := s.board.UpdateDescription(c.Request.Context(), actor, taskID, *req.Description); err != nil {
			s.respondBoardError(c, err)
			return
		}
	}

	task, err := s.board.Task(taskID)
	if err != nil {
		s.respondBoardError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": taskViewFrom(task)})
}

type moveTaskRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleMoveTask(c *gin.Context) {
	var req moveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	err := s.board.MoveTask(c.Request.Context(), s.actor(c), c.Param("id"), model.TaskStatus(req.Status))
	if err != nil {
		s.respondBoardError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "moved"})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.board.DeleteTask(c.Request.Context(), s.actor(c), c.Param("id")); err != nil {
		s.respondBoardError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

type addCommentRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleAddComment(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	comment, err := s.board.AddComment(c.Request.Context(), s.actor(c), c.Param("id"), req.Body)
	if err != nil {
		s.respondBoardError(c, err)
		return
	}
	views := commentViewsFrom([]model.Comment{*comment})
	respondSuccess(c, http.StatusCreated, gin.H{"comment": views[0]})
}

type addAttachmentRequest struct {
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type"`
}

func (s *Server) handleAddAttachment(c *gin.Context) {
	var req addAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	attachment, err := s.board.AddAttachment(c.Request.Context(), s.actor(c), c.Param("id"), board.FileInfo{
		Name: req.FileName,
		Path: req.FilePath,
		Size: req.FileSize,
		Type: req.FileType,
	})
	if err != nil {
		s.respondBoardError(c, err)
		return
	}
	views := attachmentViewsFrom([]model.Attachment{*attachment})
	respondSuccess(c, http.StatusCreated, gin.H{"attachment": views[0]})
}

func (s *Server) handleDeleteAttachment(c *gin.Context) {
	if err := s.board.RemoveAttachment(c.Request.Context(), s.actor(c), c.Param("id")); err != nil {
		s.respondBoardError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleAttachmentDownload(c *gin.Context) {
	if err := s.board.RecordAttachmentDownload(c.Request.Context(), s.actor(c), c.Param("id")); err != nil {
		s.respondBoardError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "recorded"})
}

type assignUsersRequest struct {
	UserIDs []string `json:"user_ids"`
}

func (s *Server) handleAssignUsers(c *gin.Context) {
	var req assignUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	if err := s.board.AssignUsers(c.Request.Context(), s.actor(c), c.Param("id"), req.UserIDs); err != nil {
		s.respondBoardError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "assigned"})
}

func (s *Server) handleUnassignUser(c *gin.Context) {
	err := s.board.UnassignUser(c.Request.Context(), s.actor(c), c.Param("id"), c.Param("userID"))
	if err != nil {
		s.respondBoardError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "unassigned"})
}
