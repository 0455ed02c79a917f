package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dealposter/internal/middleware"
	"github.com/dealposter/internal/model"
	"github.com/dealposter/internal/report"
	"github.com/dealposter/internal/storage"
)

const posterRoute = "/api/v1/posters/"

// ReportRunner is the part of report.Runner the API drives.
type ReportRunner interface {
	Run(ctx context.Context, triggeredBy string) (*model.Run, error)
	Command(ctx context.Context) []report.Reply
	Targets() []string
}

// RunHistory reads stored runs.
type RunHistory interface {
	FindRecent(ctx context.Context, limit int) ([]model.Run, error)
	FindByID(ctx context.Context, id string) (*model.Run, error)
	FindDeliveries(ctx context.Context, runID string) ([]model.DeliveryRecord, error)
}

// JobLister exposes the scheduler state.
type JobLister interface {
	Jobs() []model.ScheduledJob
	IsRunning() bool
}

// Handler contains all API handlers
type Handler struct {
	runner    ReportRunner
	history   RunHistory
	scheduler JobLister
	admins    *storage.AdminStore
	auth      *middleware.AuthMiddleware
	posterDir string
	command   string
	validate  *validator.Validate
}

// NewHandler creates a new API handler
func NewHandler(
	runner ReportRunner,
	history RunHistory,
	sched JobLister,
	admins *storage.AdminStore,
	auth *middleware.AuthMiddleware,
	posterDir string,
	commandName string,
) *Handler {
	return &Handler{
		runner:    runner,
		history:   history,
		scheduler: sched,
		admins:    admins,
		auth:      auth,
		posterDir: posterDir,
		command:   strings.TrimSpace(commandName),
		validate:  validator.New(),
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// CommandRequest carries the chat text that triggered the command. An empty
// body or message runs the command unconditionally.
type CommandRequest struct {
	Message string `json:"message"`
}

// ReplyMessage is one command reply as returned over HTTP.
type ReplyMessage struct {
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Login godoc
// @Summary Admin login
// @Description Authenticate the configured admin and return a JWT token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Login credentials"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 503 {object} map[string]string "Login disabled"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "a valid email and password are required")
		return
	}

	admin, err := h.admins.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, storage.ErrLoginDisabled) {
		respondError(w, http.StatusServiceUnavailable, "password login is not configured")
		return
	}
	if err != nil || admin == nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.auth.GenerateToken(admin)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, model.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      admin,
	})
}

// RunCommand godoc
// @Summary Run the on-demand report command
// @Description Fetch today's deals and render posters, returning the replies a chat user would receive
// @Tags Reports
// @Accept json
// @Produce json
// @Param request body CommandRequest false "Chat message"
// @Success 200 {object} map[string]interface{} "Replies"
// @Failure 400 {object} map[string]string "Unknown command"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /reports/run [post]
func (h *Handler) RunCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := strings.TrimSpace(req.Message); msg != "" && h.command != "" && msg != h.command {
		respondError(w, http.StatusBadRequest, "unknown command, send "+h.command)
		return
	}

	replies := h.runner.Command(r.Context())

	messages := make([]ReplyMessage, 0, len(replies))
	for _, reply := range replies {
		msg := ReplyMessage{Text: reply.Text}
		if reply.ImagePath != "" {
			msg.ImageURL = posterRoute + filepath.Base(reply.ImagePath)
		}
		messages = append(messages, msg)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"command": h.command,
		"replies": messages,
	})
}

// Broadcast godoc
// @Summary Broadcast today's report
// @Description Run the scheduled report immediately and deliver it to every target group
// @Tags Reports
// @Produce json
// @Success 200 {object} model.Run
// @Failure 400 {object} map[string]string "No targets configured"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 502 {object} model.Run "Deal fetch failed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /reports/broadcast [post]
func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	if len(h.runner.Targets()) == 0 {
		respondError(w, http.StatusBadRequest, "no target groups configured")
		return
	}

	triggeredBy := report.TriggerManual
	if claims := middleware.GetUserFromContext(r.Context()); claims != nil {
		triggeredBy = claims.UserID
	}

	// Deliveries already started must finish even if the client goes away.
	run, err := h.runner.Run(context.WithoutCancel(r.Context()), triggeredBy)
	if err != nil {
		log.Printf("Manual broadcast failed: %v", err)
		respondJSON(w, http.StatusBadGateway, run)
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// GetRuns godoc
// @Summary List recent runs
// @Tags Reports
// @Produce json
// @Param limit query int false "Max results" default(20)
// @Success 200 {object} map[string]interface{} "Runs"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /reports/runs [get]
func (h *Handler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	runs, err := h.history.FindRecent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}

// GetRun godoc
// @Summary Get a run with its deliveries
// @Tags Reports
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run and deliveries"
// @Failure 404 {object} map[string]string "Run not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /reports/runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "run ID required")
		return
	}

	run, err := h.history.FindByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch run")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}

	deliveries, err := h.history.FindDeliveries(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch deliveries")
		return
	}
	if deliveries == nil {
		deliveries = []model.DeliveryRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run":        run,
		"deliveries": deliveries,
	})
}

// GetPoster godoc
// @Summary Download a generated poster
// @Tags Reports
// @Produce png
// @Param name path string true "Poster file name"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string "Poster not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /posters/{name} [get]
func (h *Handler) GetPoster(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !validPosterName(name) {
		respondError(w, http.StatusBadRequest, "invalid poster name")
		return
	}

	path := filepath.Join(h.posterDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		respondError(w, http.StatusNotFound, "poster not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

// Only bare PNG file names inside the poster directory are served.
func validPosterName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".png")
}

// Health and status handlers

// Health godoc
// @Summary Health check
// @Description Check if the API is running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Health status"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"scheduler": h.scheduler.IsRunning(),
	})
}

// Status godoc
// @Summary System status
// @Description Scheduled report jobs, their next run and the last run
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "System status"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"scheduler_running": h.scheduler.IsRunning(),
		"jobs":              h.scheduler.Jobs(),
		"target_groups":     len(h.runner.Targets()),
	}

	if recent, err := h.history.FindRecent(r.Context(), 1); err == nil && len(recent) > 0 {
		status["last_run"] = recent[0]
	}

	respondJSON(w, http.StatusOK, status)
}
