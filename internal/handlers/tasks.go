package handlers

import (
	"errors"
	"net/http"

	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

var errNoPrincipal = errors.New("task route reached without an authenticated principal")

type TaskHandler struct {
	taskService services.TaskService
}

type CreateTaskRequest struct {
	Title       string            `json:"title" binding:"required,min=1,max=200"`
	Description *string           `json:"description" binding:"omitempty,max=1000"`
	Status      models.TaskStatus `json:"status" binding:"omitempty,oneof=pending completed"`
}

// UpdateTaskRequest carries a partial update. Title and Status are ignored
// when empty; Description is applied whenever the key is present.
type UpdateTaskRequest struct {
	Title       *string                 `json:"title" binding:"omitempty,min=1,max=200"`
	Description models.Optional[string] `json:"description" binding:"omitempty,max=1000"`
	Status      models.TaskStatus       `json:"status" binding:"omitempty,oneof=pending completed"`
}

func (r UpdateTaskRequest) patch() models.TaskPatch {
	p := models.TaskPatch{Description: r.Description, Status: r.Status}
	if r.Title != nil {
		p.Title = *r.Title
	}
	return p
}

func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.List(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err, "view")
		return
	}
	respondOK(c, http.StatusOK, "Tasks retrieved successfully", tasks)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), ownerID, models.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, err, "create")
		return
	}
	respondOK(c, http.StatusCreated, "Task created successfully", task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	taskID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		respondError(c, services.ErrTaskNotFound, "update")
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), ownerID, taskID, req.patch())
	if err != nil {
		respondError(c, err, "update")
		return
	}
	respondOK(c, http.StatusOK, "Task updated successfully", task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}

	taskID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		respondError(c, services.ErrTaskNotFound, "delete")
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), ownerID, taskID); err != nil {
		respondError(c, err, "delete")
		return
	}
	respondOK(c, http.StatusOK, "Task deleted successfully", nil)
}

func ownerFrom(c *gin.Context) (uuid.UUID, bool) {
	principal, ok := middleware.PrincipalFrom(c.Request.Context())
	if !ok {
		_ = c.Error(errNoPrincipal)
		return uuid.Nil, false
	}
	return principal.UserID, true
}
