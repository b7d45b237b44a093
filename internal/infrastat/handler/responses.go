package handler

import (
	"time"

	"infrastat/internal/infrastat/models"
	"infrastat/internal/infrastat/service"
)

// BatchResponse is the HTTP shape of a declaration batch.
type BatchResponse struct {
	ID          string    `json:"id"`
	FlowType    string    `json:"flow_type"`
	RefPeriod   string    `json:"reference_period"`
	Status      string    `json:"status"`
	TotalValue  float64   `json:"total_value"`
	TotalWeight float64   `json:"total_weight"`
	LineCount   int       `json:"line_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FindingResponse is the HTTP shape of one validation finding.
type FindingResponse struct {
	Code     string            `json:"code"`
	Severity string            `json:"severity"`
	Message  string            `json:"message"`
	LineSeq  int               `json:"line_seq,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}

// IngestResponse is the HTTP response for POST /infrastat/batches/ingest.
type IngestResponse struct {
	Batch                BatchResponse     `json:"batch"`
	LinesIngested        int               `json:"lines_ingested"`
	LinesSkipped         int               `json:"lines_skipped"`
	ValidationErrorCount int               `json:"validation_error_count"`
	DurationMS           int64             `json:"duration_ms"`
	Warnings             []string          `json:"warnings,omitempty"`
	Findings             []FindingResponse `json:"findings,omitempty"`
}

// SubmissionResponse is the HTTP shape of one submission log entry.
type SubmissionResponse struct {
	ID          string    `json:"id"`
	Channel     string    `json:"channel"`
	PayloadHash string    `json:"payload_hash"`
	Reference   string    `json:"reference,omitempty"`
	Status      string    `json:"status"`
	Success     bool      `json:"success"`
	DryRun      bool      `json:"dry_run"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubmitResponse is the HTTP response for POST
// /infrastat/batches/{batchID}/submit. Payload carries the generated
// document on dry runs only; Confirmation carries the receipt document.
type SubmitResponse struct {
	Batch        BatchResponse      `json:"batch"`
	Submission   SubmissionResponse `json:"submission"`
	Payload      string             `json:"payload,omitempty"`
	Confirmation string             `json:"confirmation_xml,omitempty"`
}

// BatchDetailResponse is the HTTP response for GET /infrastat/batches/{batchID}.
type BatchDetailResponse struct {
	Batch       BatchResponse            `json:"batch"`
	Lines       []models.DeclarationLine `json:"lines"`
	Findings    []FindingResponse        `json:"findings"`
	Submissions []SubmissionResponse     `json:"submissions"`
}

// ListResponse is the HTTP response for GET /infrastat/batches.
type ListResponse struct {
	Batches []BatchResponse `json:"batches"`
}

func fromBatch(b models.DeclarationBatch) BatchResponse {
	return BatchResponse{
		ID:          b.ID.String(),
		FlowType:    string(b.FlowType),
		RefPeriod:   string(b.RefPeriod),
		Status:      string(b.Status),
		TotalValue:  b.TotalValue,
		TotalWeight: b.TotalWeight,
		LineCount:   b.LineCount,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func fromFindings(findings []models.ValidationError) []FindingResponse {
	out := make([]FindingResponse, 0, len(findings))
	for _, f := range findings {
		out = append(out, FindingResponse{
			Code:     string(f.Code),
			Severity: string(f.Severity),
			Message:  f.Message,
			LineSeq:  f.LineSeq,
			Details:  f.Details,
		})
	}
	return out
}

func fromSubmission(l models.SubmissionLog) SubmissionResponse {
	return SubmissionResponse{
		ID:          l.ID.String(),
		Channel:     l.Channel,
		PayloadHash: l.PayloadHash,
		Reference:   l.Reference,
		Status:      string(l.Status),
		Success:     l.Success,
		DryRun:      l.DryRun,
		Error:       l.Error,
		CreatedAt:   l.CreatedAt,
	}
}

func fromSubmissions(logs []models.SubmissionLog) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, fromSubmission(l))
	}
	return out
}

// FromIngestResult converts a service ingest result to the HTTP response.
func FromIngestResult(result *service.IngestResult) *IngestResponse {
	return &IngestResponse{
		Batch:                fromBatch(result.Batch),
		LinesIngested:        result.LinesIngested,
		LinesSkipped:         result.LinesSkipped,
		ValidationErrorCount: len(result.Findings),
		DurationMS:           result.Duration.Milliseconds(),
		Warnings:             result.Warnings,
		Findings:             fromFindings(result.Findings),
	}
}

// FromSubmitResult converts a service submit result to the HTTP response.
func FromSubmitResult(result *service.SubmitResult) *SubmitResponse {
	resp := &SubmitResponse{
		Batch:        fromBatch(result.Batch),
		Submission:   fromSubmission(result.Log),
		Confirmation: string(result.Confirmation),
	}
	if result.Log.DryRun {
		resp.Payload = string(result.Payload)
	}
	return resp
}

// FromBatchDetail converts a service batch detail to the HTTP response.
func FromBatchDetail(detail *service.BatchDetail) *BatchDetailResponse {
	return &BatchDetailResponse{
		Batch:       fromBatch(detail.Batch),
		Lines:       detail.Lines,
		Findings:    fromFindings(detail.Findings),
		Submissions: fromSubmissions(detail.Submissions),
	}
}
