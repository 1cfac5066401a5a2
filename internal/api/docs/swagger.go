package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// PunchResponseDoc represents the punch decision returned to the kiosk
type PunchResponseDoc struct {
	Accepted       bool    `json:"accepted" example:"true"`
	Direction      string  `json:"direction" example:"in"`
	Reason         string  `json:"reason,omitempty" example:"too_soon_to_punch_out"`
	Message        string  `json:"message,omitempty" example:"Already punched in - too soon to punch out"`
	RetryInSeconds int64   `json:"retry_in_seconds,omitempty" example:"19800"`
	Confidence     float64 `json:"confidence" example:"0.97"`
	LogID          string  `json:"log_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Timestamp      string  `json:"timestamp,omitempty" example:"2025-06-02T08:00:00Z"`
}

// RecognizeResponseDoc represents a recognition-only result
type RecognizeResponseDoc struct {
	Recognized bool    `json:"recognized" example:"true"`
	Confidence float64 `json:"confidence" example:"0.97"`
	Distance   float64 `json:"distance" example:"0.03"`
}

// LivenessVerdictDoc represents a standalone liveness assessment
type LivenessVerdictDoc struct {
	Passed          bool     `json:"passed" example:"true"`
	Indeterminate   bool     `json:"indeterminate" example:"false"`
	FailedSignals   []string `json:"failed_signals,omitempty" example:"[\"blink\"]"`
	FramesEvaluated int      `json:"frames_evaluated" example:"3"`
}

// EmployeeResponseDoc represents an employee record
type EmployeeResponseDoc struct {
	ID         string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	EmployeeID string `json:"employee_id" example:"E001"`
	Name       string `json:"name" example:"Alice Souza"`
	IsActive   bool   `json:"is_active" example:"true"`
	CreatedAt  string `json:"created_at" example:"2025-06-02T08:00:00Z"`
}

// TodayStatsDoc represents the dashboard counters
type TodayStatsDoc struct {
	TotalEmployees int `json:"total_employees" example:"42"`
	PresentToday   int `json:"present_today" example:"37"`
	PunchedIn      int `json:"punched_in" example:"30"`
	PunchedOut     int `json:"punched_out" example:"7"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Ponto Attendance API",
		Version:     "v1.0.0",
		Description: "Biometric verification and attendance decision engine: face matching, liveness fusion and the punch-in/punch-out ledger",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	auth := endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}})
	jsonIn := endpoint.WithConsume([]mime.MIME{mime.JSON})
	jsonOut := endpoint.WithProduce([]mime.MIME{mime.JSON})
	commonErrors := endpoint.WithErrors([]response.Response{
		response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
		response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
		response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
	})

	endpoints := []*endpoint.EndPoint{
		endpoint.New(
			endpoint.POST,
			"/attendance/punch",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Verify a frame burst and commit a punch"),
			endpoint.WithDescription("Matches the burst against enrolled templates, fuses liveness signals and commits a day-scoped punch when everything passes. Rejections are returned in the body, not as errors."),
			jsonIn, jsonOut,
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PunchResponseDoc{}, "200", "Decision produced"),
			}),
			commonErrors,
			auth,
		),
		endpoint.New(
			endpoint.POST,
			"/attendance/recognize",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Identify a face without punching"),
			jsonIn, jsonOut,
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognizeResponseDoc{}, "200", "Recognition completed"),
			}),
			commonErrors,
			auth,
		),
		endpoint.New(
			endpoint.POST,
			"/attendance/liveness",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Assess liveness of a frame burst"),
			jsonIn, jsonOut,
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LivenessVerdictDoc{}, "200", "Verdict produced"),
			}),
			commonErrors,
			auth,
		),
		endpoint.New(
			endpoint.GET,
			"/attendance/history",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Query the punch ledger"),
			jsonOut,
			endpoint.WithParams(
				parameter.StrParam("employee_id", parameter.Query, parameter.WithDescription("Filter by employee UUID")),
				parameter.StrParam("from", parameter.Query, parameter.WithDescription("RFC3339 lower bound (inclusive)")),
				parameter.StrParam("to", parameter.Query, parameter.WithDescription("RFC3339 upper bound (exclusive)")),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Page size (default 100, max 500)")),
				parameter.IntParam("offset", parameter.Query, parameter.WithDescription("Page offset")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "200", "Logs returned"),
			}),
			commonErrors,
			auth,
		),
		endpoint.New(
			endpoint.GET,
			"/attendance/today/{employee_id}",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Today's punches and status for one employee"),
			jsonOut,
			endpoint.WithParams(
				parameter.StrParam("employee_id", parameter.Path, parameter.WithDescription("Employee UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "200", "Status returned"),
			}),
			commonErrors,
			auth,
		),
		endpoint.New(
			endpoint.GET,
			"/attendance/stats/today",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Dashboard counters for the current day"),
			jsonOut,
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(TodayStatsDoc{}, "200", "Stats returned"),
			}),
			commonErrors,
			auth,
		),
		endpoint.New(
			endpoint.POST,
			"/employees",
			endpoint.WithTags("Employees"),
			endpoint.WithSummary("Register an employee record"),
			jsonIn, jsonOut,
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmployeeResponseDoc{}, "201", "Employee created"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "EMPLOYEE_ALREADY_EXISTS", Message: "Employee with this employee_id already exists"}, "409", "Conflict"),
			}),
			auth,
		),
		endpoint.New(
			endpoint.GET,
			"/employees",
			endpoint.WithTags("Employees"),
			endpoint.WithSummary("List employees"),
			jsonOut,
			endpoint.WithParams(
				parameter.StrParam("active", parameter.Query, parameter.WithDescription("Only active employees when true")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "200", "Employees returned"),
			}),
			commonErrors,
			auth,
		),
		endpoint.New(
			endpoint.GET,
			"/employees/{id}",
			endpoint.WithTags("Employees"),
			endpoint.WithSummary("Fetch one employee"),
			jsonOut,
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Employee UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmployeeResponseDoc{}, "200", "Employee returned"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "EMPLOYEE_NOT_FOUND", Message: "Employee not found"}, "404", "Not Found"),
			}),
			auth,
		),
		endpoint.New(
			endpoint.DELETE,
			"/employees/{id}",
			endpoint.WithTags("Employees"),
			endpoint.WithSummary("Deactivate an employee"),
			jsonOut,
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Employee UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "204", "Employee deactivated"),
			}),
			commonErrors,
			auth,
		),
		endpoint.New(
			endpoint.POST,
			"/employees/{id}/faces",
			endpoint.WithTags("Employees"),
			endpoint.WithSummary("Enroll face templates"),
			endpoint.WithDescription("Replaces the employee's template set with one template per labeled frame. Enrollment is all-or-nothing."),
			jsonIn, jsonOut,
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Employee UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "201", "Templates enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in any usable frame"}, "422", "Unprocessable Entity"),
			}),
			auth,
		),
		endpoint.New(
			endpoint.DELETE,
			"/employees/{id}/faces",
			endpoint.WithTags("Employees"),
			endpoint.WithSummary("Purge an employee's biometric data"),
			jsonOut,
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Employee UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "204", "Templates removed"),
			}),
			commonErrors,
			auth,
		),
	}

	sw.AddEndpoints(endpoints)
	return sw
}
