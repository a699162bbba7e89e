package domain

// Patch is a partial update for an entity of type E. Apply returns the merged
// value; fields the patch leaves unset keep their prior values.
type Patch[E any] interface {
	Apply(E) E
}

// PatchFunc adapts a plain function to Patch.
type PatchFunc[E any] func(E) E

// Apply implements Patch.
func (f PatchFunc[E]) Apply(e E) E { return f(e) }

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setSlice[T any](dst *[]T, v *[]T) {
	if v != nil {
		*dst = append([]T(nil), (*v)...)
	}
}

// OpportunityPatch is a partial Opportunity.
type OpportunityPatch struct {
	Title            *string            `json:"title,omitempty"`
	Agency           *string            `json:"agency,omitempty"`
	NoticeID         *string            `json:"noticeId,omitempty"`
	PostedDate       *string            `json:"postedDate,omitempty"`
	ResponseDeadline *string            `json:"responseDeadline,omitempty"`
	Description      *string            `json:"description,omitempty"`
	NAICSCode        *string            `json:"naicsCode,omitempty"`
	Type             *string            `json:"type,omitempty"`
	SetAside         *string            `json:"setAside,omitempty"`
	Status           *OpportunityStatus `json:"status,omitempty"`
}

// Apply implements Patch.
func (p OpportunityPatch) Apply(o Opportunity) Opportunity {
	set(&o.Title, p.Title)
	set(&o.Agency, p.Agency)
	set(&o.NoticeID, p.NoticeID)
	set(&o.PostedDate, p.PostedDate)
	set(&o.ResponseDeadline, p.ResponseDeadline)
	set(&o.Description, p.Description)
	set(&o.NAICSCode, p.NAICSCode)
	set(&o.Type, p.Type)
	set(&o.SetAside, p.SetAside)
	set(&o.Status, p.Status)
	return o
}

// DocumentPatch is a partial Document.
type DocumentPatch struct {
	OpportunityID *string       `json:"opportunityId,omitempty"`
	Name          *string       `json:"name,omitempty"`
	Type          *DocumentType `json:"type,omitempty"`
	Description   *string       `json:"description,omitempty"`
	URL           *string       `json:"url,omitempty"`
	UploadedAt    *string       `json:"uploadedAt,omitempty"`
	Size          *int64        `json:"size,omitempty"`
}

// Apply implements Patch.
func (p DocumentPatch) Apply(d Document) Document {
	set(&d.OpportunityID, p.OpportunityID)
	set(&d.Name, p.Name)
	set(&d.Type, p.Type)
	set(&d.URL, p.URL)
	set(&d.UploadedAt, p.UploadedAt)
	if p.Description != nil {
		v := *p.Description
		d.Description = &v
	}
	if p.Size != nil {
		v := *p.Size
		d.Size = &v
	}
	return d
}

// ProposalPatch is a partial Proposal.
type ProposalPatch struct {
	Title         *string         `json:"title,omitempty"`
	OpportunityID *string         `json:"opportunityId,omitempty"`
	DueDate       *string         `json:"dueDate,omitempty"`
	Status        *ProposalStatus `json:"status,omitempty"`
	Progress      *int            `json:"progress,omitempty"`
	Content       *string         `json:"content,omitempty"`
}

// Apply implements Patch.
func (p ProposalPatch) Apply(pr Proposal) Proposal {
	set(&pr.Title, p.Title)
	set(&pr.OpportunityID, p.OpportunityID)
	set(&pr.DueDate, p.DueDate)
	set(&pr.Status, p.Status)
	set(&pr.Progress, p.Progress)
	if p.Content != nil {
		v := *p.Content
		pr.Content = &v
	}
	return pr
}

// TemplatePatch is a partial Template.
type TemplatePatch struct {
	Name     *string           `json:"name,omitempty"`
	Category *TemplateCategory `json:"category,omitempty"`
	Content  *string           `json:"content,omitempty"`
	Tags     *[]string         `json:"tags,omitempty"`
}

// Apply implements Patch.
func (p TemplatePatch) Apply(t Template) Template {
	set(&t.Name, p.Name)
	set(&t.Category, p.Category)
	set(&t.Content, p.Content)
	setSlice(&t.Tags, p.Tags)
	return t
}

// PricingPatch is a partial PricingCalculation. It has no TotalPrice field:
// the total is always recomputed by the store.
type PricingPatch struct {
	OpportunityID *string      `json:"opportunityId,omitempty"`
	LaborRates    *[]LaborRate `json:"laborRates,omitempty"`
	Materials     *[]Material  `json:"materials,omitempty"`
	Overhead      *float64     `json:"overhead,omitempty"`
	Profit        *float64     `json:"profit,omitempty"`
}

// Apply implements Patch.
func (p PricingPatch) Apply(pc PricingCalculation) PricingCalculation {
	set(&pc.OpportunityID, p.OpportunityID)
	setSlice(&pc.LaborRates, p.LaborRates)
	setSlice(&pc.Materials, p.Materials)
	set(&pc.Overhead, p.Overhead)
	set(&pc.Profit, p.Profit)
	return pc
}

// SubcontractorPatch is a partial Subcontractor.
type SubcontractorPatch struct {
	Name            *string              `json:"name,omitempty"`
	Location        *string              `json:"location,omitempty"`
	Contact         *string              `json:"contact,omitempty"`
	Email           *string              `json:"email,omitempty"`
	Specialties     *[]string            `json:"specialties,omitempty"`
	Rating          *float64             `json:"rating,omitempty"`
	Status          *SubcontractorStatus `json:"status,omitempty"`
	StatusUpdatedAt *string              `json:"statusUpdatedAt,omitempty"`
	Notes           *string              `json:"notes,omitempty"`
	PastPerformance *[]string            `json:"pastPerformance,omitempty"`
	Quotes          *[]string            `json:"quotes,omitempty"`
	OpportunityID   *string              `json:"opportunityId,omitempty"`
}

// Apply implements Patch.
func (p SubcontractorPatch) Apply(s Subcontractor) Subcontractor {
	set(&s.Name, p.Name)
	set(&s.Location, p.Location)
	set(&s.Contact, p.Contact)
	set(&s.Email, p.Email)
	setSlice(&s.Specialties, p.Specialties)
	set(&s.Rating, p.Rating)
	set(&s.Status, p.Status)
	set(&s.StatusUpdatedAt, p.StatusUpdatedAt)
	setSlice(&s.PastPerformance, p.PastPerformance)
	setSlice(&s.Quotes, p.Quotes)
	if p.Notes != nil {
		v := *p.Notes
		s.Notes = &v
	}
	if p.OpportunityID != nil {
		v := *p.OpportunityID
		s.OpportunityID = &v
	}
	return s
}

// MilestonePatch is a partial Milestone.
type MilestonePatch struct {
	OpportunityID *string          `json:"opportunityId,omitempty"`
	Title         *string          `json:"title,omitempty"`
	Description   *string          `json:"description,omitempty"`
	DueDate       *string          `json:"dueDate,omitempty"`
	Status        *MilestoneStatus `json:"status,omitempty"`
	AssignedTo    *string          `json:"assignedTo,omitempty"`
}

// Apply implements Patch.
func (p MilestonePatch) Apply(m Milestone) Milestone {
	set(&m.OpportunityID, p.OpportunityID)
	set(&m.Title, p.Title)
	set(&m.Description, p.Description)
	set(&m.DueDate, p.DueDate)
	set(&m.Status, p.Status)
	if p.AssignedTo != nil {
		v := *p.AssignedTo
		m.AssignedTo = &v
	}
	return m
}
