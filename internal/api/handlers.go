package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"unit-gateway/internal/cache"
	"unit-gateway/internal/db"
	"unit-gateway/internal/fanout"
	"unit-gateway/internal/logging"
	"unit-gateway/internal/models"
	"unit-gateway/internal/mqtt"
)

type Handler struct {
	units      *db.UnitStore
	tasks      *db.TaskStore
	cache      *cache.Cache
	hub        *fanout.Hub
	registry   *fanout.Registry
	dispatcher *mqtt.Dispatcher
	auth       *Authenticator
	logger     *logging.Logger
}

func NewHandler(
	units *db.UnitStore,
	tasks *db.TaskStore,
	cache *cache.Cache,
	hub *fanout.Hub,
	registry *fanout.Registry,
	dispatcher *mqtt.Dispatcher,
	auth *Authenticator,
	logger *logging.Logger,
) *Handler {
	return &Handler{
		units:      units,
		tasks:      tasks,
		cache:      cache,
		hub:        hub,
		registry:   registry,
		dispatcher: dispatcher,
		auth:       auth,
		logger:     logger,
	}
}

func unitIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("unit_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid unit_id"})
		return 0, false
	}
	return id, true
}

// ToggleUnit dispatches a manual TOGGLE command, records the commanded
// state, and mirrors the action to live viewers of the unit.
func (h *Handler) ToggleUnit(c *gin.Context) {
	unitID, ok := unitIDParam(c)
	if !ok {
		return
	}

	var req struct {
		State string `json:"state" binding:"required,oneof=on off"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid toggle request for unit %d: %v", unitID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	on := req.State == "on"

	if err := h.dispatcher.Toggle(c.Request.Context(), unitID, on); err != nil {
		h.logger.Errorf("Failed to dispatch toggle for unit %d: %v", unitID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to dispatch command"})
		return
	}
	if err := h.units.UpdateToggle(c.Request.Context(), unitID, on); err != nil {
		if errors.Is(err, db.ErrUnitNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unit not found"})
			return
		}
		h.logger.Errorf("Failed to record toggle for unit %d: %v", unitID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record toggle"})
		return
	}

	event, _ := json.Marshal(gin.H{"event": "toggle", "state": req.State, "time": time.Now().Unix()})
	h.hub.Publish(unitID, event)

	h.logger.Infof("Unit %d toggled %s by operator", unitID, req.State)
	c.JSON(http.StatusOK, gin.H{"unit_id": unitID, "state": req.State})
}

// UpdateSchedule stores a new schedule and pushes it down to the device.
func (h *Handler) UpdateSchedule(c *gin.Context) {
	unitID, ok := unitIDParam(c)
	if !ok {
		return
	}

	var sched models.Schedule
	if err := c.ShouldBindJSON(&sched); err != nil {
		h.logger.Errorf("Invalid schedule request for unit %d: %v", unitID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if sched.HourOn < 0 || sched.HourOn > 23 || sched.HourOff < 0 || sched.HourOff > 23 ||
		sched.MinuteOn < 0 || sched.MinuteOn > 59 || sched.MinuteOff < 0 || sched.MinuteOff > 59 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Schedule out of range"})
		return
	}

	if err := h.units.UpdateSchedule(c.Request.Context(), unitID, sched); err != nil {
		if errors.Is(err, db.ErrUnitNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unit not found"})
			return
		}
		h.logger.Errorf("Failed to update schedule for unit %d: %v", unitID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update schedule"})
		return
	}
	if err := h.dispatcher.Schedule(c.Request.Context(), unitID, sched); err != nil {
		h.logger.Errorf("Failed to dispatch schedule for unit %d: %v", unitID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Schedule stored but dispatch failed"})
		return
	}

	c.JSON(http.StatusOK, sched)
}

// AutoUnit returns the unit to schedule-driven operation.
func (h *Handler) AutoUnit(c *gin.Context) {
	unitID, ok := unitIDParam(c)
	if !ok {
		return
	}
	if err := h.dispatcher.Auto(c.Request.Context(), unitID); err != nil {
		h.logger.Errorf("Failed to dispatch auto for unit %d: %v", unitID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to dispatch command"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unit_id": unitID, "mode": "auto"})
}

// UnitStatus serves the unit's last known snapshot from cache. A missing
// entry means "unknown/offline", not an error.
func (h *Handler) UnitStatus(c *gin.Context) {
	unitID, ok := unitIDParam(c)
	if !ok {
		return
	}
	data, err := h.cache.Get(c.Request.Context(), unitID)
	if err != nil {
		h.logger.Errorf("Failed to read snapshot for unit %d: %v", unitID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read snapshot"})
		return
	}
	if data == nil {
		data, _ = json.Marshal(models.OfflineSnapshot(time.Now()))
	}
	c.Data(http.StatusOK, "application/json", data)
}

// ListTasks returns tasks newest first.
func (h *Handler) ListTasks(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	tasks, err := h.tasks.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list tasks: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tasks"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// UpdateTaskStatus moves a task through the operator workflow. Completing a
// task re-enables fault detection for that (device, type).
func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task id"})
		return
	}

	var req struct {
		Status models.TaskStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !models.ValidTaskStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	if err := h.tasks.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		if errors.Is(err, db.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		h.logger.Errorf("Failed to update task %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	h.logger.Infof("Task %d moved to %s", id, req.Status)
	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}
