package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"parqueadero/internal/fleet"
	"parqueadero/internal/logging"
	"parqueadero/internal/parking"
	"parqueadero/internal/scan"
)

// Occupancy is what the handlers need from the coordinator; satisfied by both
// the plain and the instrumented one.
type Occupancy interface {
	Enter(ctx context.Context, v parking.VehicleRef, at time.Time) (parking.EnterReceipt, error)
	Exit(ctx context.Context, v parking.VehicleRef, at time.Time) (parking.ExitReceipt, error)
	Status(ctx context.Context) map[int]*string
}

type Handler struct {
	serviceName string
	fleet       *fleet.Registry
	occupancy   Occupancy
	sessions    *parking.SessionLedger
	scans       *scan.Correlator
	now         func() time.Time
}

func NewHandler(serviceName string, registry *fleet.Registry, occupancy Occupancy, sessions *parking.SessionLedger, scans *scan.Correlator) *Handler {
	return &Handler{
		serviceName: serviceName,
		fleet:       registry,
		occupancy:   occupancy,
		sessions:    sessions,
		scans:       scans,
		now:         time.Now,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) Enter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EnterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Plate == "" {
		WriteError(w, http.StatusBadRequest, "plate is required")
		return
	}

	vehicle, ok := h.fleet.VehicleByPlate(req.Plate)
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("vehicle with plate %s is not registered", req.Plate))
		return
	}

	receipt, err := h.occupancy.Enter(ctx, vehicle.Ref(), h.now())
	if err != nil {
		switch {
		case errors.Is(err, parking.ErrAlreadyInside):
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("vehicle %s is already inside", req.Plate))
		case errors.Is(err, parking.ErrNoSlotAvailable):
			WriteError(w, http.StatusBadRequest, "no slot available for this vehicle class")
		default:
			logging.Error(ctx).Err(err).Str("plate", req.Plate).Msg("enter transaction failed")
			WriteError(w, http.StatusServiceUnavailable, "service unavailable")
		}
		return
	}

	WriteJSON(w, http.StatusOK, EnterResponse{
		SlotID:    receipt.SlotID,
		EnteredAt: receipt.EnteredAt.Format(TimeLayout),
	})
}

func (h *Handler) Exit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ExitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Plate == "" {
		WriteError(w, http.StatusBadRequest, "plate is required")
		return
	}

	vehicle, ok := h.fleet.VehicleByPlate(req.Plate)
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("vehicle with plate %s is not registered", req.Plate))
		return
	}

	receipt, err := h.occupancy.Exit(ctx, vehicle.Ref(), h.now())
	if err != nil {
		var insufficient *parking.InsufficientFundsError
		switch {
		case errors.Is(err, parking.ErrNotInside):
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("vehicle %s is not inside", req.Plate))
		case errors.As(err, &insufficient):
			WriteJSON(w, http.StatusBadRequest, InsufficientFundsResponse{
				Message:       "insufficient funds, recharge and retry",
				BalanceBefore: insufficient.Balance,
				Fare:          insufficient.Required,
				Shortfall:     insufficient.Shortfall(),
			})
		default:
			logging.Error(ctx).Err(err).Str("plate", req.Plate).Msg("exit transaction failed")
			WriteError(w, http.StatusServiceUnavailable, "service unavailable")
		}
		return
	}

	WriteJSON(w, http.StatusOK, ExitResponse{
		EnteredAt:       receipt.EnteredAt.Format(TimeLayout),
		ExitedAt:        receipt.ExitedAt.Format(TimeLayout),
		DurationMinutes: receipt.DurationMinutes,
		Fare:            receipt.Fare,
		BalanceBefore:   receipt.BalanceBefore,
		BalanceAfter:    receipt.BalanceAfter,
	})
}

func (h *Handler) LotStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, StatusResponse{Slots: h.occupancy.Status(r.Context())})
}

func (h *Handler) TagScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TagScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Tag == "" {
		WriteError(w, http.StatusBadRequest, "tag is required")
		return
	}
	mode, err := scan.ParseMode(req.Mode)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "mode must be one of ASSIGN, IN, OUT")
		return
	}

	h.scans.Post(req.Tag, mode, h.now())

	if mode == scan.ModeAssign {
		WriteJSON(w, http.StatusOK, TagScanResponse{Status: "OK", Line1: "Tag ready", Line2: req.Tag})
		return
	}

	event, ok := h.scans.TryClaim()
	if !ok {
		WriteJSON(w, http.StatusOK, TagScanResponse{Status: "NO", Line1: "Scan expired", Line2: "Try again"})
		return
	}

	vehicle, ok := h.fleet.VehicleByTag(event.Tag)
	if !ok {
		WriteJSON(w, http.StatusOK, TagScanResponse{Status: "NO", Line1: "Access denied", Line2: "Tag not registered"})
		return
	}

	switch event.Mode {
	case scan.ModeIn:
		h.scanEnter(ctx, w, vehicle, event.At)
	case scan.ModeOut:
		h.scanExit(ctx, w, vehicle, event.At)
	}
}

func (h *Handler) scanEnter(ctx context.Context, w http.ResponseWriter, vehicle fleet.Vehicle, at time.Time) {
	receipt, err := h.occupancy.Enter(ctx, vehicle.Ref(), at)
	if err != nil {
		switch {
		case errors.Is(err, parking.ErrAlreadyInside):
			WriteJSON(w, http.StatusOK, TagScanResponse{Status: "NO", Line1: "Already inside", Line2: "Use exit"})
		case errors.Is(err, parking.ErrNoSlotAvailable):
			WriteJSON(w, http.StatusOK, TagScanResponse{Status: "NO", Line1: "No slots", Line2: "available"})
		default:
			logging.Error(ctx).Err(err).Str("plate", vehicle.Plate).Msg("scan enter failed")
			WriteError(w, http.StatusServiceUnavailable, "service unavailable")
		}
		return
	}

	WriteJSON(w, http.StatusOK, TagScanResponse{
		Status: "OK_IN",
		Line1:  "Welcome",
		Line2:  fmt.Sprintf("%s - Slot %d", truncate(vehicle.OwnerName, 16), receipt.SlotID),
	})
}

func (h *Handler) scanExit(ctx context.Context, w http.ResponseWriter, vehicle fleet.Vehicle, at time.Time) {
	_, err := h.occupancy.Exit(ctx, vehicle.Ref(), at)
	if err != nil {
		var insufficient *parking.InsufficientFundsError
		switch {
		case errors.Is(err, parking.ErrNotInside):
			WriteJSON(w, http.StatusOK, TagScanResponse{Status: "NO", Line1: "Not inside", Line2: "Use entry"})
		case errors.As(err, &insufficient):
			WriteJSON(w, http.StatusOK, TagScanResponse{Status: "NO", Line1: "Insufficient funds", Line2: ""})
		default:
			logging.Error(ctx).Err(err).Str("plate", vehicle.Plate).Msg("scan exit failed")
			WriteError(w, http.StatusServiceUnavailable, "service unavailable")
		}
		return
	}

	WriteJSON(w, http.StatusOK, TagScanResponse{
		Status: "OK_OUT",
		Line1:  "Goodbye",
		Line2:  truncate(vehicle.OwnerName, 16),
	})
}

func (h *Handler) LastScan(w http.ResponseWriter, r *http.Request) {
	event, ok := h.scans.Peek()
	if !ok {
		WriteJSON(w, http.StatusOK, LastScanResponse{Message: "no scan yet"})
		return
	}
	WriteJSON(w, http.StatusOK, LastScanResponse{
		Tag:       event.Tag,
		Mode:      string(event.Mode),
		ScannedAt: event.At.Format(TimeLayout),
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
