package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"lessonplanner"

	"github.com/gin-gonic/gin"
)

// planRef lets a request name a saved plan or carry an unsaved one
type planRef struct {
	PlanID string                      `json:"plan_id"`
	Plan   *lessonplanner.ActivityPlan `json:"plan"`
}

func (s *Server) resolvePlan(ref planRef) (*lessonplanner.ActivityPlan, error) {
	if ref.Plan != nil {
		return ref.Plan, nil
	}
	if ref.PlanID == "" {
		return nil, fmt.Errorf("plan or plan_id is required")
	}
	return s.library.Plan(ref.PlanID)
}

func contentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename))
}

type planView struct {
	lessonplanner.ActivityPlan
	CollectionName string `json:"collection_name"`
}

func (s *Server) viewPlan(plan lessonplanner.ActivityPlan) planView {
	return planView{ActivityPlan: plan, CollectionName: s.library.CollectionName(plan)}
}

func (s *Server) handleListPlans(c *gin.Context) {
	plans := s.library.Plans()
	views := make([]planView, 0, len(plans))
	for _, plan := range plans {
		views = append(views, s.viewPlan(plan))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) handleGetPlan(c *gin.Context) {
	plan, err := s.library.Plan(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.viewPlan(*plan))
}

func (s *Server) handleSavePlan(c *gin.Context) {
	var plan lessonplanner.ActivityPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		s.badRequest(c, err)
		return
	}
	saved, err := s.library.SavePlan(c.Request.Context(), plan)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.notify(c, "success", fmt.Sprintf("Saved %q to the library", saved.Title))
	c.JSON(http.StatusOK, s.viewPlan(*saved))
}

func (s *Server) handleGeneratePlan(c *gin.Context) {
	var req struct {
		Input     lessonplanner.UserInput `json:"input"`
		Mode      lessonplanner.Mode      `json:"mode"`
		WithImage *bool                   `json:"with_image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	var (
		plan *lessonplanner.ActivityPlan
		err  error
	)
	if req.WithImage == nil || *req.WithImage {
		plan, err = s.generator.GeneratePlanWithImage(ctx, req.Input, req.Mode)
	} else {
		plan, err = s.generator.GeneratePlan(ctx, req.Input, req.Mode)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) handleUpdatePlan(c *gin.Context) {
	var edit lessonplanner.PlanEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		s.badRequest(c, err)
		return
	}
	plan, err := s.library.UpdatePlan(c.Request.Context(), c.Param("id"), edit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.viewPlan(*plan))
}

func (s *Server) handleDeletePlan(c *gin.Context) {
	if err := s.library.DeletePlan(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handlePlanImage attaches a supplied image, or generates one from the plan's description
func (s *Server) handlePlanImage(c *gin.Context) {
	var req struct {
		ImageURL string `json:"image_url"`
	}
	// an absent body asks for a generated image
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(c, err)
		return
	}

	id := c.Param("id")
	imageURL := req.ImageURL
	if imageURL == "" {
		plan, err := s.library.Plan(id)
		if err != nil {
			s.fail(c, err)
			return
		}
		generated, ok := s.generator.GenerateImage(c.Request.Context(), plan.ImagePromptDescription)
		if !ok {
			s.notify(c, "warning", "Image generation failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "image generation failed"})
			return
		}
		imageURL = generated
	}

	plan, err := s.library.SetPlanImage(c.Request.Context(), id, imageURL)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.viewPlan(*plan))
}

func (s *Server) handleMoveToCollection(c *gin.Context) {
	var req struct {
		CollectionID string `json:"collection_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	plan, err := s.library.MoveToCollection(c.Request.Context(), c.Param("id"), req.CollectionID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.viewPlan(*plan))
}

func (s *Server) handleListCollections(c *gin.Context) {
	c.JSON(http.StatusOK, s.library.Collections())
}

func (s *Server) handleCreateCollection(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	coll, err := s.library.CreateCollection(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, coll)
}

func (s *Server) handleLibrary(c *gin.Context) {
	c.JSON(http.StatusOK, s.library.GroupByCollection())
}

func (s *Server) handleOutline(c *gin.Context) {
	var req struct {
		planRef
		Requirements string `json:"requirements"`
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
	outline, err := s.generator.GenerateOutline(c.Request.Context(), plan, req.Requirements)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, outline)
}

func (s *Server) handleDeck(c *gin.Context) {
	var req struct {
		planRef
		Config lessonplanner.DeckConfig `json:"config"`
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
	artifact, err := s.generator.BuildDeck(c.Request.Context(), plan, req.Config)
	if err != nil {
		s.fail(c, err)
		return
	}
	sendArtifact(c, artifact)
}

func (s *Server) handleExercises(c *gin.Context) {
	var req struct {
		planRef
		Config lessonplanner.ExerciseConfig `json:"config"`
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
	schema, err := s.generator.GenerateExercises(c.Request.Context(), plan, req.Config)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

// handleWorksheet renders a schema the teacher already reviewed
func (s *Server) handleWorksheet(c *gin.Context) {
	var req struct {
		Schema   *lessonplanner.ExerciseSchema `json:"schema"`
		Config   lessonplanner.ExerciseConfig  `json:"config"`
		Filename string                        `json:"filename"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	filename := req.Filename
	if filename == "" && req.Schema != nil {
		filename = req.Schema.Title
	}
	artifact, err := lessonplanner.RenderWorksheet(req.Schema, req.Config, filename, nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	sendArtifact(c, artifact)
}

// badOrFail reports typed library errors as-is and anything else as a bad request
func (s *Server) badOrFail(c *gin.Context, err error) {
	if _, ok := err.(*lessonplanner.Error); ok {
		s.fail(c, err)
		return
	}
	s.badRequest(c, err)
}
