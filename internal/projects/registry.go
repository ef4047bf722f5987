// Package projects maintains the in-memory dashboard of named
// workloads and their toggle semantics.
package projects

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/generativejunkie/antigravity-bridge/pkg/models"
)

// SecretProject is the workload whose activation fires the hidden
// trigger broadcast.
const SecretProject = "GHOST_LAYER"

// ErrNotFound is returned for actions against an unknown project id.
type ErrNotFound struct {
	ID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("project not found: %s", e.ID)
}

// Registry holds the fixed project set created at startup.
type Registry struct {
	mu       sync.Mutex
	projects []*models.Project
	jitter   func() int
}

// NewRegistry seeds the registry with the default workloads.
func NewRegistry() *Registry {
	return &Registry{
		projects: []*models.Project{
			{ID: "img01", Name: "IMAGE_MACHINE", Status: models.ProjectActive, Description: "Generative Visual Synthesis", Resonance: 98},
			{ID: "snd01", Name: "SOUND_MACHINE", Status: models.ProjectActive, Description: "Audio Reactive Matrix", Resonance: 85},
			{ID: "void01", Name: "VOID_GATEWAY", Status: models.ProjectStandby, Description: "Deep System Access", Resonance: 100},
			{ID: "gst01", Name: SecretProject, Status: models.ProjectPending, Description: "Hidden Protocol Layer", Resonance: 0},
		},
		jitter: func() int { return rand.Intn(5) - 2 },
	}
}

// SetJitter overrides the resonance fluctuation source. Test hook.
func (r *Registry) SetJitter(fn func() int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jitter = fn
}

// List returns the current projects. As a side effect, each ACTIVE
// project's resonance is nudged by a bounded random delta and clamped
// to [0,100].
func (r *Registry) List() []models.Project {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Project, len(r.projects))
	for i, p := range r.projects {
		if p.Status == models.ProjectActive {
			p.Resonance = clamp(p.Resonance + r.jitter())
		}
		out[i] = *p
	}
	return out
}

// Snapshot returns the current projects without the resonance nudge
// List applies. Used for broadcasts after a toggle.
func (r *Registry) Snapshot() []models.Project {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Project, len(r.projects))
	for i, p := range r.projects {
		out[i] = *p
	}
	return out
}

// Toggle flips the project's status: PENDING activates with resonance
// reset to 50, otherwise ACTIVE and STANDBY swap. The secret flag
// reports that the hidden-trigger project just became ACTIVE.
func (r *Registry) Toggle(id string) (models.Project, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var project *models.Project
	for _, p := range r.projects {
		if p.ID == id {
			project = p
			break
		}
	}
	if project == nil {
		return models.Project{}, false, &ErrNotFound{ID: id}
	}

	if project.Status == models.ProjectPending {
		project.Status = models.ProjectActive
		project.Resonance = 50
	} else if project.Status == models.ProjectActive {
		project.Status = models.ProjectStandby
	} else {
		project.Status = models.ProjectActive
	}

	secret := project.Name == SecretProject && project.Status == models.ProjectActive
	return *project, secret, nil
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
