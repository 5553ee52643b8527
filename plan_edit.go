package lessonplanner

// PlanEdit carries the fields a teacher changed in the plan editor.
// Nil fields are left untouched.
type PlanEdit struct {
	Title                  *string         `json:"title,omitempty"`
	Rationale              *string         `json:"rationale,omitempty"`
	TeachingGoals          *[]string       `json:"teaching_goals,omitempty"`
	KeyPoints              *[]string       `json:"key_points,omitempty"`
	GrammarPoints          *[]GrammarPoint `json:"grammar_points,omitempty"`
	Props                  *[]string       `json:"props,omitempty"`
	Steps                  *[]string       `json:"steps,omitempty"`
	Simulation             *string         `json:"simulation,omitempty"`
	SimulationDialogue     *string         `json:"simulation_dialogue,omitempty"`
	ImagePromptDescription *string         `json:"image_prompt_description,omitempty"`
}

// ApplyPlanEdit returns a copy of plan with the edit applied.
// ID, CreatedAt, CollectionID and ImageURL are never changed by an edit.
func ApplyPlanEdit(plan ActivityPlan, edit PlanEdit) ActivityPlan {
	out := plan
	setString(&out.Title, edit.Title)
	setString(&out.Rationale, edit.Rationale)
	setString(&out.Simulation, edit.Simulation)
	setString(&out.SimulationDialogue, edit.SimulationDialogue)
	setString(&out.ImagePromptDescription, edit.ImagePromptDescription)
	setList(&out.TeachingGoals, edit.TeachingGoals)
	setList(&out.KeyPoints, edit.KeyPoints)
	setList(&out.Props, edit.Props)
	setList(&out.Steps, edit.Steps)
	if edit.GrammarPoints != nil {
		out.GrammarPoints = append([]GrammarPoint{}, (*edit.GrammarPoints)...)
	}
	normalizePlanLists(&out)
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setList(dst *[]string, v *[]string) {
	if v != nil {
		*dst = append([]string{}, (*v)...)
	}
}
