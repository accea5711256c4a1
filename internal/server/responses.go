package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

// TimeLayout is the wire format for every timestamp the API emits.
const TimeLayout = "2006-01-02 15:04:05"

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type EnterRequest struct {
	Plate string `json:"plate"`
}

type EnterResponse struct {
	SlotID    int    `json:"slotId"`
	EnteredAt string `json:"enteredAt"`
}

type ExitRequest struct {
	Plate string `json:"plate"`
}

type ExitResponse struct {
	EnteredAt       string  `json:"enteredAt"`
	ExitedAt        string  `json:"exitedAt"`
	DurationMinutes int     `json:"durationMinutes"`
	Fare            float64 `json:"fare"`
	BalanceBefore   float64 `json:"balanceBefore"`
	BalanceAfter    float64 `json:"balanceAfter"`
}

type InsufficientFundsResponse struct {
	Message       string  `json:"message"`
	BalanceBefore float64 `json:"balanceBefore"`
	Fare          float64 `json:"fare"`
	Shortfall     float64 `json:"shortfall"`
}

type StatusResponse struct {
	Slots map[int]*string `json:"slots"`
}

type TagScanRequest struct {
	Tag  string `json:"tag"`
	Mode string `json:"mode"`
}

// TagScanResponse is the terse two-line payload the gate display renders.
type TagScanResponse struct {
	Status string `json:"status"`
	Line1  string `json:"line1"`
	Line2  string `json:"line2"`
}

type LastScanResponse struct {
	Tag       string `json:"tag,omitempty"`
	Mode      string `json:"mode,omitempty"`
	ScannedAt string `json:"scannedAt,omitempty"`
	Message   string `json:"message,omitempty"`
}

type RegisterUserRequest struct {
	Name           string  `json:"name"`
	DocumentType   string  `json:"documentType"`
	DocumentNumber string  `json:"documentNumber"`
	InitialBalance float64 `json:"initialBalance"`
}

type RegisterUserResponse struct {
	Message string `json:"message"`
	UserID  int    `json:"userId"`
}

type UserResponse struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	DocumentType   string  `json:"documentType"`
	DocumentNumber string  `json:"documentNumber"`
	Balance        float64 `json:"balance"`
}

type UserDetailResponse struct {
	UserResponse
	Vehicles []VehicleResponse `json:"vehicles"`
}

type RegisterVehicleRequest struct {
	Plate          string `json:"plate"`
	VehicleClass   string `json:"vehicleClass"`
	DocumentNumber string `json:"documentNumber"`
}

type RegisterVehicleResponse struct {
	Message string `json:"message"`
	Plate   string `json:"plate"`
	Owner   string `json:"owner"`
	Tag     string `json:"tag"`
}

type VehicleResponse struct {
	Plate          string `json:"plate"`
	VehicleClass   string `json:"vehicleClass"`
	Owner          string `json:"owner"`
	DocumentNumber string `json:"documentNumber"`
	Tag            string `json:"tag"`
}

type RateResponse struct {
	VehicleClass  string  `json:"vehicleClass"`
	RatePerMinute float64 `json:"ratePerMinute"`
}

type RechargeRequest struct {
	DocumentNumber string  `json:"documentNumber"`
	Amount         float64 `json:"amount"`
}

type RechargeResponse struct {
	Message       string  `json:"message"`
	BalanceBefore float64 `json:"balanceBefore"`
	Amount        float64 `json:"amount"`
	BalanceAfter  float64 `json:"balanceAfter"`
	Reference     string  `json:"reference"`
}

type RechargeRecord struct {
	ID             int     `json:"id"`
	User           string  `json:"user"`
	DocumentNumber string  `json:"documentNumber"`
	BalanceBefore  float64 `json:"balanceBefore"`
	Amount         float64 `json:"amount"`
	BalanceAfter   float64 `json:"balanceAfter"`
	Reference      string  `json:"reference"`
	At             string  `json:"at"`
}

type UserRechargesResponse struct {
	UserID    int              `json:"userId"`
	Name      string           `json:"name"`
	Recharges []RechargeRecord `json:"recharges"`
}

type SessionRecord struct {
	ID              string   `json:"id"`
	Plate           string   `json:"plate"`
	Owner           string   `json:"owner"`
	SlotID          int      `json:"slotId"`
	EnteredAt       string   `json:"enteredAt"`
	ExitedAt        *string  `json:"exitedAt"`
	DurationMinutes *int     `json:"durationMinutes"`
	Fare            *float64 `json:"fare"`
}

type PaymentReportRow struct {
	Plate           string  `json:"plate"`
	VehicleClass    string  `json:"vehicleClass"`
	Owner           string  `json:"owner"`
	DurationMinutes int     `json:"durationMinutes"`
	Fare            float64 `json:"fare"`
	EnteredAt       string  `json:"enteredAt"`
	ExitedAt        string  `json:"exitedAt"`
}

type PaymentReportResponse struct {
	Records      []PaymentReportRow `json:"records"`
	TotalRecords int                `json:"totalRecords"`
	TotalRevenue float64            `json:"totalRevenue"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}
