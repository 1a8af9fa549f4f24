package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/forgeff/internal/application/fitjob"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/pkg/errors"
)

// FitHandler serves the fit run endpoints.
type FitHandler struct {
	svc fitjob.Service
	log logging.Logger
}

func NewFitHandler(svc fitjob.Service, log logging.Logger) *FitHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FitHandler{svc: svc, log: log.Named("fit_handler")}
}

// Submit accepts a fit request and queues it.
func (h *FitHandler) Submit(c *gin.Context) {
	var req fitjob.FitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.CodeInvalidParam, "parse fit request"))
		return
	}
	run, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, run)
}

// Get returns one fit run.
func (h *FitHandler) Get(c *gin.Context) {
	run, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// List returns fit runs, newest first.
func (h *FitHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	runs, err := h.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	if runs == nil {
		runs = []*fitjob.FitRun{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// Labels returns the parameter assignment of a molecule.
func (h *FitHandler) Labels(c *gin.Context) {
	smiles := c.Query("smiles")
	if smiles == "" {
		respondError(c, errors.Newf(errors.CodeInvalidParam, "smiles query parameter is required"))
		return
	}
	labels, err := h.svc.Labels(c.Request.Context(), smiles, c.Query("forcefield"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"smiles": smiles, "labels": labels})
}
