package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
	"taskboard/storage"
)

const requestBodyMaxSize = 64 * 1024

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store TaskStore, rt Realtime, logger *log.Logger) {
	e.POST("/api/tasks", createTask(store, rt, logger))
	e.GET("/api/tasks", listTasks(store))
	e.PATCH("/api/tasks/:id", updateTask(store, rt, logger))
	e.DELETE("/api/tasks/:id", deleteTask(store, rt, logger))
	e.GET("/healthz", healthz())
}

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type taskResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type listResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Data    []domain.Task `json:"data"`
}

type deleteResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    domain.Task `json:"data"`
}

type errorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

func failAll(c echo.Context, errs []string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Errors: errs})
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func validateCreate(req createRequest) []string {
	var errs []string
	if strings.TrimSpace(req.Title) == "" {
		errs = append(errs, "Title is required")
	}
	if utf8.RuneCountInString(req.Title) > 255 {
		errs = append(errs, "Title must not exceed 255 characters")
	}
	if req.Status != "" && !domain.ValidStatus(req.Status) {
		errs = append(errs, "Status must be one of: pending, in-progress, completed")
	}
	return errs
}

func validateUpdate(fields domain.TaskFields) []string {
	var errs []string
	if fields.Title != nil && strings.TrimSpace(*fields.Title) == "" {
		errs = append(errs, "Title cannot be empty")
	}
	if fields.Title != nil && utf8.RuneCountInString(*fields.Title) > 255 {
		errs = append(errs, "Title must not exceed 255 characters")
	}
	if fields.Status != nil && !domain.ValidStatus(*fields.Status) {
		errs = append(errs, "Status must be one of: pending, in-progress, completed")
	}
	return errs
}

func createTask(store TaskStore, rt Realtime, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics := newMutationMetrics(logger, "create")
		defer func() { metrics.Log(c.Response().Status, err) }()

		var req createRequest
		if decodeErr := decodeBody(c, &req); decodeErr != nil {
			metrics.SetErrorStage("decode")
			err = fail(c, http.StatusBadRequest, "invalid body")
			return err
		}
		if errs := validateCreate(req); len(errs) > 0 {
			metrics.SetErrorStage("validate")
			err = failAll(c, errs)
			return err
		}

		attr := resolveAttribution(c, rt)

		storeStart := time.Now()
		task, createErr := store.Create(ctx, req.Title, req.Description, req.Status)
		metrics.ObserveStore(time.Since(storeStart))
		if createErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(createErr)
			err = fail(c, http.StatusInternalServerError, "Failed to create task")
			return err
		}

		payload := domain.TaskCreated{Task: task, CreatedBy: attr.By, CreatedByColor: attr.Color}
		broadcastStart := time.Now()
		rt.BroadcastAll(domain.EventTaskCreated, payload)
		metrics.ObserveBroadcast(time.Since(broadcastStart))

		err = c.JSON(http.StatusCreated, taskResponse{Success: true, Data: payload})
		return err
	}
}

func listTasks(store TaskStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		tasks, err := store.FindAll(ctx, c.QueryParam("status"))
		if err != nil {
			c.Logger().Error(err)
			return fail(c, http.StatusInternalServerError, "Failed to fetch tasks")
		}
		return c.JSON(http.StatusOK, listResponse{Success: true, Count: len(tasks), Data: tasks})
	}
}

func updateTask(store TaskStore, rt Realtime, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics := newMutationMetrics(logger, "update")
		defer func() { metrics.Log(c.Response().Status, err) }()

		id, parseErr := strconv.ParseInt(c.Param("id"), 10, 64)
		if parseErr != nil {
			metrics.SetErrorStage("parse_id")
			err = fail(c, http.StatusBadRequest, "invalid task id")
			return err
		}

		var fields domain.TaskFields
		if decodeErr := decodeBody(c, &fields); decodeErr != nil {
			metrics.SetErrorStage("decode")
			err = fail(c, http.StatusBadRequest, "invalid body")
			return err
		}
		if fields.Empty() {
			metrics.SetErrorStage("no_fields")
			err = fail(c, http.StatusBadRequest, "At least one field must be provided for update")
			return err
		}
		if errs := validateUpdate(fields); len(errs) > 0 {
			metrics.SetErrorStage("validate")
			err = failAll(c, errs)
			return err
		}

		storeStart := time.Now()
		if _, findErr := store.FindByID(ctx, id); findErr != nil {
			metrics.ObserveStore(time.Since(storeStart))
			if errors.Is(findErr, storage.ErrTaskNotFound) {
				metrics.SetErrorStage("not_found")
				err = fail(c, http.StatusNotFound, "Task not found")
				return err
			}
			metrics.SetErrorStage("storage")
			c.Logger().Error(findErr)
			err = fail(c, http.StatusInternalServerError, "Failed to update task")
			return err
		}

		attr := resolveAttribution(c, rt)

		task, updateErr := store.Update(ctx, id, fields)
		metrics.ObserveStore(time.Since(storeStart))
		if updateErr != nil {
			switch {
			case errors.Is(updateErr, storage.ErrTaskNotFound):
				// The row vanished between lookup and update.
				metrics.SetErrorStage("not_found")
				err = fail(c, http.StatusNotFound, "Task not found")
			case errors.Is(updateErr, storage.ErrNoFields):
				metrics.SetErrorStage("no_fields")
				err = fail(c, http.StatusBadRequest, "At least one field must be provided for update")
			default:
				metrics.SetErrorStage("storage")
				c.Logger().Error(updateErr)
				err = fail(c, http.StatusInternalServerError, "Failed to update task")
			}
			return err
		}

		payload := domain.TaskUpdated{Task: task, UpdatedBy: attr.By, UpdatedByColor: attr.Color}
		broadcastStart := time.Now()
		rt.BroadcastAll(domain.EventTaskUpdated, payload)
		metrics.ObserveBroadcast(time.Since(broadcastStart))

		err = c.JSON(http.StatusOK, taskResponse{Success: true, Data: payload})
		return err
	}
}

func deleteTask(store TaskStore, rt Realtime, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics := newMutationMetrics(logger, "delete")
		defer func() { metrics.Log(c.Response().Status, err) }()

		id, parseErr := strconv.ParseInt(c.Param("id"), 10, 64)
		if parseErr != nil {
			metrics.SetErrorStage("parse_id")
			err = fail(c, http.StatusBadRequest, "invalid task id")
			return err
		}

		attr := resolveAttribution(c, rt)

		storeStart := time.Now()
		task, deleteErr := store.Delete(ctx, id)
		metrics.ObserveStore(time.Since(storeStart))
		if deleteErr != nil {
			if errors.Is(deleteErr, storage.ErrTaskNotFound) {
				metrics.SetErrorStage("not_found")
				err = fail(c, http.StatusNotFound, "Task not found")
				return err
			}
			metrics.SetErrorStage("storage")
			c.Logger().Error(deleteErr)
			err = fail(c, http.StatusInternalServerError, "Failed to delete task")
			return err
		}

		// The deleted row goes back to the caller, but only the id is broadcast.
		payload := domain.TaskDeleted{ID: task.ID, DeletedBy: attr.By, DeletedByColor: attr.Color}
		broadcastStart := time.Now()
		rt.BroadcastAll(domain.EventTaskDeleted, payload)
		metrics.ObserveBroadcast(time.Since(broadcastStart))

		err = c.JSON(http.StatusOK, deleteResponse{Success: true, Message: "Task deleted successfully", Data: task})
		return err
	}
}
