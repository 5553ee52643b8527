package main

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"lessonplanner"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// batchLifetime is how long an idle batch stays in memory
const batchLifetime = time.Hour

// batchJob is a practice-image batch together with what its archive needs
type batchJob struct {
	batch *lessonplanner.ImageBatch
	plan  lessonplanner.ActivityPlan
	focus string

	running  atomic.Bool
	lastUsed atomic.Int64 // unix ms
}

type batchView struct {
	ID       string                       `json:"id"`
	Focus    string                       `json:"focus_point"`
	Finished bool                         `json:"finished"`
	Items    []lessonplanner.ScenarioItem `json:"items"`
}

func (j *batchJob) view() batchView {
	return batchView{
		ID:       j.batch.ID,
		Focus:    j.focus,
		Finished: j.batch.Finished(),
		Items:    j.batch.Items(),
	}
}

func (s *Server) lookupBatch(c *gin.Context) (*batchJob, bool) {
	s.mu.RLock()
	job, exists := s.batches[c.Param("id")]
	s.mu.RUnlock()
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return nil, false
	}
	job.lastUsed.Store(s.now().UnixMilli())
	return job, true
}

// pruneBatches drops batches that are not generating and were idle past batchLifetime.
// Callers hold s.mu.
func (s *Server) pruneBatches() {
	cutoff := s.now().Add(-batchLifetime).UnixMilli()
	for id, job := range s.batches {
		if job.running.Load() || job.lastUsed.Load() > cutoff {
			continue
		}
		delete(s.batches, id)
		logrus.WithField("batch", id).Debug("Dropped idle batch")
	}
}

func (s *Server) handleCreateBatch(c *gin.Context) {
	var req struct {
		planRef
		Config lessonplanner.ScenarioConfig `json:"config"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	plan, err := s.resolvePlan(req.planRef)
	if err != nil {
		s.badOrFail(c, err)
		return
	}

	batch, err := s.generator.NewBatch(c.Request.Context(), plan, req.Config)
	if err != nil {
		s.fail(c, err)
		return
	}
	job := &batchJob{batch: batch, plan: *plan, focus: req.Config.FocusPoint}
	job.lastUsed.Store(s.now().UnixMilli())

	s.mu.Lock()
	s.pruneBatches()
	s.batches[batch.ID] = job
	s.mu.Unlock()

	c.JSON(http.StatusCreated, job.view())
}

func (s *Server) handleGetBatch(c *gin.Context) {
	job, ok := s.lookupBatch(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job.view())
}

func (s *Server) handleUpdateBatchItem(c *gin.Context) {
	job, ok := s.lookupBatch(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		s.badRequest(c, err)
		return
	}
	var req struct {
		Description string `json:"description"`
		Dialogue    string `json:"dialogue"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if err := job.batch.UpdateItem(index, req.Description, req.Dialogue); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job.view())
}

// handleRunBatch starts generation in the background; clients poll GET /api/batches/:id
func (s *Server) handleRunBatch(c *gin.Context) {
	job, ok := s.lookupBatch(c)
	if !ok {
		return
	}
	// the batch outlives the request
	updates, err := s.generator.RunBatch(context.Background(), job.batch)
	if err != nil {
		s.fail(c, err)
		return
	}
	job.running.Store(true)

	go func() {
		defer func() {
			job.lastUsed.Store(s.now().UnixMilli())
			job.running.Store(false)
		}()
		failed := 0
		for item := range updates {
			if item.Status == lessonplanner.StatusFailed {
				failed++
			}
			logrus.WithFields(logrus.Fields{"batch": job.batch.ID, "item": item.ID}).Debugf("Scene is %s", item.Status)
		}
		logrus.WithField("batch", job.batch.ID).Infof("Batch finished with %d failed scenes", failed)
	}()

	s.notify(c, "info", "Image generation started")
	c.JSON(http.StatusAccepted, job.view())
}

func (s *Server) handleBatchArchive(c *gin.Context) {
	job, ok := s.lookupBatch(c)
	if !ok {
		return
	}
	artifact, err := lessonplanner.BuildArchive(job.batch.Items(), &job.plan, job.focus)
	if err != nil {
		s.fail(c, err)
		return
	}
	sendArtifact(c, artifact)
}
