package dto

// ImportForm is the multipart form accompanying an uploaded file.
type ImportForm struct {
	Strategy string `form:"strategy" binding:"required,oneof=use_mine use_theirs merge manual_review"`
	DryRun   bool   `form:"dryRun"`
}

// ResolveReviewRequest resolves one parked conflict.
type ResolveReviewRequest struct {
	ReviewID string `json:"review_id" binding:"required"`
	Strategy string `json:"strategy" binding:"required,oneof=use_mine use_theirs merge"`
}

// UpdateOutcomeStatusRequest moves an outcome through the approval workflow.
type UpdateOutcomeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=DRAFT SUBMITTED APPROVED REJECTED NCI"`
}
