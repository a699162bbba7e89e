// Package domain defines the persistent entities, patch types and storage
// contracts shared by every gcms store. It has no dependencies on internal
// packages.
package domain

// EntityType identifies the type of record held in a collection.
type EntityType string

// Supported entity type identifiers used for collection names and change events.
const (
	EntityOpportunity   EntityType = "opportunity"
	EntityDocument      EntityType = "document"
	EntityProposal      EntityType = "proposal"
	EntityTemplate      EntityType = "template"
	EntityPricing       EntityType = "pricing_calculation"
	EntitySubcontractor EntityType = "subcontractor"
	EntityMilestone     EntityType = "milestone"
	EntitySession       EntityType = "session"
)

// Entity is implemented by every record that lives in a collection.
type Entity interface {
	EntityID() string
}

// OpportunityStatus tracks where an opportunity sits in the capture pipeline.
type OpportunityStatus string

// Opportunity statuses.
const (
	OpportunityNew       OpportunityStatus = "new"
	OpportunityAnalyzing OpportunityStatus = "analyzing"
	OpportunityBidding   OpportunityStatus = "bidding"
	OpportunitySubmitted OpportunityStatus = "submitted"
	OpportunityWon       OpportunityStatus = "won"
	OpportunityLost      OpportunityStatus = "lost"
)

// Valid reports whether the status is one of the known values.
func (s OpportunityStatus) Valid() bool {
	switch s {
	case OpportunityNew, OpportunityAnalyzing, OpportunityBidding, OpportunitySubmitted, OpportunityWon, OpportunityLost:
		return true
	}
	return false
}

// Opportunity is a government contract opportunity. It is the root aggregate
// that documents, proposals, pricing and vendors point at by id.
type Opportunity struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Agency           string            `json:"agency"`
	NoticeID         string            `json:"noticeId"`
	PostedDate       string            `json:"postedDate"`
	ResponseDeadline string            `json:"responseDeadline"`
	Description      string            `json:"description"`
	NAICSCode        string            `json:"naicsCode"`
	Type             string            `json:"type"`
	SetAside         string            `json:"setAside"`
	Status           OpportunityStatus `json:"status"`
}

// EntityID implements Entity.
func (o Opportunity) EntityID() string { return o.ID }

// DocumentType classifies a document attached to an opportunity.
type DocumentType string

// Document types.
const (
	DocumentRFP        DocumentType = "rfp"
	DocumentAmendment  DocumentType = "amendment"
	DocumentQuestion   DocumentType = "question"
	DocumentAttachment DocumentType = "attachment"
	DocumentProposal   DocumentType = "proposal"
	DocumentOther      DocumentType = "other"
)

// Valid reports whether the type is one of the known values.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentRFP, DocumentAmendment, DocumentQuestion, DocumentAttachment, DocumentProposal, DocumentOther:
		return true
	}
	return false
}

// Document is a file reference weakly attached to an opportunity. Removing the
// opportunity does not remove its documents.
type Document struct {
	ID            string       `json:"id"`
	OpportunityID string       `json:"opportunityId"`
	Name          string       `json:"name"`
	Type          DocumentType `json:"type"`
	Description   *string      `json:"description,omitempty"`
	URL           string       `json:"url"`
	UploadedAt    string       `json:"uploadedAt"`
	Size          *int64       `json:"size,omitempty"`
}

// EntityID implements Entity.
func (d Document) EntityID() string { return d.ID }

// ProposalStatus tracks proposal progress.
type ProposalStatus string

// Proposal statuses.
const (
	ProposalDraft     ProposalStatus = "draft"
	ProposalInReview  ProposalStatus = "in_review"
	ProposalSubmitted ProposalStatus = "submitted"
	ProposalWon       ProposalStatus = "won"
	ProposalLost      ProposalStatus = "lost"
)

// Valid reports whether the status is one of the known values.
func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalDraft, ProposalInReview, ProposalSubmitted, ProposalWon, ProposalLost:
		return true
	}
	return false
}

// Proposal is a response being prepared for an opportunity. An empty
// OpportunityID means the proposal is not linked yet.
type Proposal struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	OpportunityID string         `json:"opportunityId"`
	DueDate       string         `json:"dueDate"`
	Status        ProposalStatus `json:"status"`
	Progress      int            `json:"progress"`
	Content       *string        `json:"content,omitempty"`
}

// EntityID implements Entity.
func (p Proposal) EntityID() string { return p.ID }

// TemplateCategory groups reusable templates.
type TemplateCategory string

// Template categories.
const (
	CategoryPastPerformance TemplateCategory = "past_performance"
	CategoryTechnical       TemplateCategory = "technical"
	CategoryPricing         TemplateCategory = "pricing"
	CategoryQuoteRequest    TemplateCategory = "quote_request"
)

// Valid reports whether the category is one of the known values.
func (c TemplateCategory) Valid() bool {
	switch c {
	case CategoryPastPerformance, CategoryTechnical, CategoryPricing, CategoryQuoteRequest:
		return true
	}
	return false
}

// Template is a reusable markdown document body.
type Template struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Category TemplateCategory `json:"category"`
	Content  string           `json:"content"`
	Tags     []string         `json:"tags"`
}

// EntityID implements Entity.
func (t Template) EntityID() string { return t.ID }

// LaborRate is a single labor line of a pricing calculation.
type LaborRate struct {
	Role  string  `json:"role"`
	Rate  float64 `json:"rate"`
	Hours float64 `json:"hours"`
}

// Material is a single material line of a pricing calculation.
type Material struct {
	Item      string  `json:"item"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// PricingCalculation holds the line items of a price build-up. TotalPrice is
// derived: stores overwrite it on every write.
type PricingCalculation struct {
	ID            string      `json:"id"`
	OpportunityID string      `json:"opportunityId"`
	LaborRates    []LaborRate `json:"laborRates"`
	Materials     []Material  `json:"materials"`
	Overhead      float64     `json:"overhead"`
	Profit        float64     `json:"profit"`
	TotalPrice    float64     `json:"totalPrice"`
}

// EntityID implements Entity.
func (p PricingCalculation) EntityID() string { return p.ID }

// SubcontractorStatus tracks vendor outreach.
type SubcontractorStatus string

// Subcontractor statuses.
const (
	SubcontractorNew             SubcontractorStatus = "new"
	SubcontractorContacted       SubcontractorStatus = "contacted"
	SubcontractorWaitingResponse SubcontractorStatus = "waiting_response"
	SubcontractorQuoted          SubcontractorStatus = "quoted"
	SubcontractorApproved        SubcontractorStatus = "approved"
	SubcontractorRejected        SubcontractorStatus = "rejected"
)

// Valid reports whether the status is one of the known values.
func (s SubcontractorStatus) Valid() bool {
	switch s {
	case SubcontractorNew, SubcontractorContacted, SubcontractorWaitingResponse, SubcontractorQuoted, SubcontractorApproved, SubcontractorRejected:
		return true
	}
	return false
}

// Subcontractor is a vendor that may team on an opportunity.
type Subcontractor struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Location        string              `json:"location"`
	Contact         string              `json:"contact"`
	Email           string              `json:"email"`
	Specialties     []string            `json:"specialties"`
	Rating          float64             `json:"rating"`
	Status          SubcontractorStatus `json:"status"`
	StatusUpdatedAt string              `json:"statusUpdatedAt"`
	Notes           *string             `json:"notes,omitempty"`
	PastPerformance []string            `json:"pastPerformance"`
	Quotes          []string            `json:"quotes,omitempty"`
	OpportunityID   *string             `json:"opportunityId,omitempty"`
}

// EntityID implements Entity.
func (s Subcontractor) EntityID() string { return s.ID }

// MilestoneStatus tracks milestone completion.
type MilestoneStatus string

// Milestone statuses.
const (
	MilestonePending   MilestoneStatus = "pending"
	MilestoneCompleted MilestoneStatus = "completed"
	MilestoneOverdue   MilestoneStatus = "overdue"
)

// Valid reports whether the status is one of the known values.
func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestonePending, MilestoneCompleted, MilestoneOverdue:
		return true
	}
	return false
}

// Milestone is a dated checkpoint on an opportunity.
type Milestone struct {
	ID            string          `json:"id"`
	OpportunityID string          `json:"opportunityId"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	DueDate       string          `json:"dueDate"`
	Status        MilestoneStatus `json:"status"`
	AssignedTo    *string         `json:"assignedTo,omitempty"`
}

// EntityID implements Entity.
func (m Milestone) EntityID() string { return m.ID }

// Role is the access level of an authenticated user.
type Role string

// User roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is the identity returned by the auth collaborator.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Role    Role   `json:"role"`
}

// Session is the singleton authentication state.
type Session struct {
	User            *User   `json:"user"`
	IsAuthenticated bool    `json:"isAuthenticated"`
	Token           *string `json:"token"`
}
