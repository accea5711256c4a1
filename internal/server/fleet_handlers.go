package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"parqueadero/internal/fleet"
	"parqueadero/internal/logging"
	"parqueadero/internal/parking"
	"parqueadero/internal/scan"
)

func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.fleet.RegisterUser(req.Name, fleet.DocumentType(req.DocumentType), req.DocumentNumber, req.InitialBalance)
	if err != nil {
		h.writeFleetError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, RegisterUserResponse{
		Message: fmt.Sprintf("user %s registered successfully", user.Name),
		UserID:  user.ID,
	})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users := h.fleet.Users()
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, h.userResponse(u))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) UserDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, ok := h.fleet.UserByID(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "user not found")
		return
	}

	vehicles := h.fleet.VehiclesOf(user.DocumentNumber)
	detail := UserDetailResponse{
		UserResponse: h.userResponse(user),
		Vehicles:     make([]VehicleResponse, 0, len(vehicles)),
	}
	for _, v := range vehicles {
		detail.Vehicles = append(detail.Vehicles, vehicleResponse(v))
	}
	WriteJSON(w, http.StatusOK, detail)
}

// RegisterVehicle binds the plate to the pending ASSIGN tag scan. The scan is
// consumed only after the registration succeeds, so a rejected request does
// not force a rescan.
func (h *Handler) RegisterVehicle(w http.ResponseWriter, r *http.Request) {
	var req RegisterVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pending, ok := h.scans.Peek()
	if !ok || pending.Mode != scan.ModeAssign {
		WriteError(w, http.StatusBadRequest, "no pending tag scan, scan the tag first")
		return
	}

	vehicle, err := h.fleet.RegisterVehicle(req.Plate, parking.VehicleClass(req.VehicleClass), req.DocumentNumber, pending.Tag)
	if err != nil {
		h.writeFleetError(w, r, err)
		return
	}

	h.scans.ClaimAssign()

	WriteJSON(w, http.StatusCreated, RegisterVehicleResponse{
		Message: fmt.Sprintf("vehicle %s registered successfully", vehicle.Plate),
		Plate:   vehicle.Plate,
		Owner:   vehicle.OwnerName,
		Tag:     vehicle.Tag,
	})
}

func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles := h.fleet.Vehicles()
	out := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, vehicleResponse(v))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	rates := h.fleet.Rates()
	out := make([]RateResponse, 0, len(rates))
	for _, entry := range rates {
		out = append(out, RateResponse{
			VehicleClass:  string(entry.Class),
			RatePerMinute: entry.Rate,
		})
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Recharge(w http.ResponseWriter, r *http.Request) {
	var req RechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentNumber == "" {
		WriteError(w, http.StatusBadRequest, "document number is required")
		return
	}

	rec, err := h.fleet.Recharge(req.DocumentNumber, req.Amount, h.now())
	if err != nil {
		h.writeFleetError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, RechargeResponse{
		Message:       fmt.Sprintf("recharge applied for %s", rec.UserName),
		BalanceBefore: rec.BalanceBefore,
		Amount:        rec.Amount,
		BalanceAfter:  rec.BalanceAfter,
		Reference:     rec.Reference,
	})
}

func (h *Handler) UserRecharges(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, ok := h.fleet.UserByID(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "user not found")
		return
	}

	recharges, err := h.fleet.RechargesOf(id)
	if err != nil {
		h.writeFleetError(w, r, err)
		return
	}

	out := UserRechargesResponse{
		UserID:    user.ID,
		Name:      user.Name,
		Recharges: make([]RechargeRecord, 0, len(recharges)),
	}
	for _, rec := range recharges {
		out.Recharges = append(out.Recharges, rechargeRecord(rec))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ListRecharges(w http.ResponseWriter, r *http.Request) {
	recharges := h.fleet.Recharges()
	out := make([]RechargeRecord, 0, len(recharges))
	for _, rec := range recharges {
		out = append(out, rechargeRecord(rec))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.History()
	out := make([]SessionRecord, 0, len(sessions))
	for _, sess := range sessions {
		record := SessionRecord{
			ID:        sess.ID,
			Plate:     sess.Plate,
			SlotID:    sess.SlotID,
			EnteredAt: sess.EnteredAt.Format(TimeLayout),
		}
		if vehicle, ok := h.fleet.VehicleByPlate(sess.Plate); ok {
			record.Owner = vehicle.OwnerName
		}
		if !sess.Open() {
			exited := sess.ExitedAt.Format(TimeLayout)
			minutes := sess.DurationMinutes
			fare := sess.Fare
			record.ExitedAt = &exited
			record.DurationMinutes = &minutes
			record.Fare = &fare
		}
		out = append(out, record)
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) PaymentsReport(w http.ResponseWriter, r *http.Request) {
	var (
		from, to time.Time
		err      error
	)
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			WriteError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			WriteError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		// Inclusive upper bound on the entry date.
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	class := r.URL.Query().Get("vehicleClass")

	report := PaymentReportResponse{Records: []PaymentReportRow{}}
	for _, sess := range h.sessions.History() {
		if sess.Open() {
			continue
		}
		if !from.IsZero() && sess.EnteredAt.Before(from) {
			continue
		}
		if !to.IsZero() && sess.EnteredAt.After(to) {
			continue
		}
		if class != "" && string(sess.Class) != class {
			continue
		}

		row := PaymentReportRow{
			Plate:           sess.Plate,
			VehicleClass:    string(sess.Class),
			DurationMinutes: sess.DurationMinutes,
			Fare:            sess.Fare,
			EnteredAt:       sess.EnteredAt.Format(TimeLayout),
			ExitedAt:        sess.ExitedAt.Format(TimeLayout),
		}
		if vehicle, ok := h.fleet.VehicleByPlate(sess.Plate); ok {
			row.Owner = vehicle.OwnerName
		}
		report.Records = append(report.Records, row)
		report.TotalRevenue = parking.Round2(report.TotalRevenue + sess.Fare)
	}
	report.TotalRecords = len(report.Records)

	WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) userResponse(u fleet.User) UserResponse {
	balance, err := h.fleet.Balance(u.DocumentNumber)
	if err != nil {
		balance = 0
	}
	return UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		DocumentType:   string(u.DocumentType),
		DocumentNumber: u.DocumentNumber,
		Balance:        balance,
	}
}

func vehicleResponse(v fleet.Vehicle) VehicleResponse {
	return VehicleResponse{
		Plate:          v.Plate,
		VehicleClass:   string(v.Class),
		Owner:          v.OwnerName,
		DocumentNumber: v.OwnerDocument,
		Tag:            v.Tag,
	}
}

func rechargeRecord(rec fleet.Recharge) RechargeRecord {
	return RechargeRecord{
		ID:             rec.ID,
		User:           rec.UserName,
		DocumentNumber: rec.Document,
		BalanceBefore:  rec.BalanceBefore,
		Amount:         rec.Amount,
		BalanceAfter:   rec.BalanceAfter,
		Reference:      rec.Reference,
		At:             rec.At.Format(TimeLayout),
	}
}

func (h *Handler) writeFleetError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *fleet.ValidationError
	switch {
	case errors.As(err, &validation):
		WriteError(w, http.StatusBadRequest, validation.Msg)
	case errors.Is(err, fleet.ErrDuplicateUser):
		WriteError(w, http.StatusBadRequest, "document number already registered")
	case errors.Is(err, fleet.ErrDuplicatePlate):
		WriteError(w, http.StatusBadRequest, "plate already registered")
	case errors.Is(err, fleet.ErrTagInUse):
		WriteError(w, http.StatusBadRequest, "tag already assigned to another vehicle")
	case errors.Is(err, fleet.ErrUserNotFound):
		WriteError(w, http.StatusNotFound, "user not found")
	default:
		logging.Error(r.Context()).Err(err).Msg("fleet operation failed")
		WriteError(w, http.StatusServiceUnavailable, "service unavailable")
	}
}
