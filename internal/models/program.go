package models

import "time"

// ProgramRefSource identifies where inside a program's structure a content
// unit is referenced.
type ProgramRefSource string

const (
	ProgramRefSessionStep        ProgramRefSource = "SESSION_STEP"
	ProgramRefTeachingMaterial   ProgramRefSource = "TEACHING_MATERIAL"
	ProgramRefEnrichmentMaterial ProgramRefSource = "ENRICHMENT_MATERIAL"
	ProgramRefExperience         ProgramRefSource = "EXPERIENCE"
)

// ContentProgram represents a teaching program built from VR content.
type ContentProgram struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramContentRef is a single content-unit reference inside a program's
// structure.
type ProgramContentRef struct {
	ID            string           `db:"id" json:"id"`
	ProgramID     string           `db:"program_id" json:"program_id"`
	ContentUnitID string           `db:"content_unit_id" json:"content_unit_id"`
	Source        ProgramRefSource `db:"source" json:"source"`
}

// ProgramDetail extends ContentProgram with its structural content references.
type ProgramDetail struct {
	ContentProgram
	ContentRefs []ProgramContentRef `json:"content_refs"`
}

// RequiredContentSet derives the de-duplicated union of every content unit
// the program references. Computed on demand, never stored.
func (p *ProgramDetail) RequiredContentSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.ContentRefs))
	for _, ref := range p.ContentRefs {
		if ref.ContentUnitID == "" {
			continue
		}
		set[ref.ContentUnitID] = struct{}{}
	}
	return set
}

// ProgramFilter defines filter criteria for listing programs.
type ProgramFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
