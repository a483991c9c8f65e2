// Package handlers implements the HTTP API on top of the store, the
// authorization engine and the aggregation and story services.
package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"project-management-api/internal/apperrors"
	"project-management-api/internal/auth"
	"project-management-api/internal/middleware"
	"project-management-api/internal/realtime"
	"project-management-api/internal/stats"
	"project-management-api/internal/store"
	"project-management-api/internal/stories"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators of Handler.
type Deps struct {
	Store   *store.Store
	Tokens  *auth.Tokens
	Stats   *stats.Engine
	Stories *stories.Service
	Hub     *realtime.Hub
	Log     *logrus.Logger
}

// Handler serves every API endpoint.
type Handler struct {
	store   *store.Store
	tokens  *auth.Tokens
	stats   *stats.Engine
	stories *stories.Service
	hub     *realtime.Hub
	log     *logrus.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		store:   d.Store,
		tokens:  d.Tokens,
		stats:   d.Stats,
		stories: d.Stories,
		hub:     d.Hub,
		log:     d.Log,
	}
}

func (h *Handler) logger(c *gin.Context, op string) *logrus.Entry {
	return h.log.WithFields(logrus.Fields{
		"operation":  op,
		"request_id": middleware.RequestIDOf(c),
	})
}

// fail logs unexpected failures and writes the error response.
func (h *Handler) fail(c *gin.Context, log *logrus.Entry, err error) {
	if apperrors.KindOf(err) == apperrors.KindInternal {
		log.WithError(err).Error("request failed")
	}
	middleware.WriteError(c, err)
}

func parseID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation(fmt.Sprintf("invalid %s: %q", name, raw))
	}
	return uint(id), nil
}

func queryUint(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, invalidQuery(name, raw)
	}
	return uint(v), nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, invalidQuery(name, raw)
	}
	return v, nil
}

// page reads skip and limit from the query string.
func page(c *gin.Context) (store.Page, error) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		return store.Page{}, err
	}
	limit, err := queryInt(c, "limit", store.DefaultLimit)
	if err != nil {
		return store.Page{}, err
	}
	if limit > store.MaxLimit {
		return store.Page{}, apperrors.Validation(fmt.Sprintf("limit must not exceed %d", store.MaxLimit))
	}
	return store.Page{Skip: skip, Limit: limit}, nil
}

// bind decodes the request body into req and validates it.
func bind(c *gin.Context, req any) error {
	if err := c.ShouldBind(req); err != nil {
		return apperrors.Validation(bindMessage(err))
	}
	return nil
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body: " + err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func invalidQuery(name, value string) error {
	return apperrors.Validation(fmt.Sprintf("invalid %s: %q", name, value))
}
