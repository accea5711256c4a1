// Package fleet holds the registration-side collaborators around the parking
// kernel: users and their documents, vehicles and their tags, the rate table
// and the recharge history. All handlers here are simple request/response
// stores with no cross-entity ordering to protect.
package fleet

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"parqueadero/internal/parking"
)

// DocumentType is the identity document kind a user registers with.
type DocumentType string

const (
	DocCC  DocumentType = "CC"  // national ID, 8-10 digits
	DocTI  DocumentType = "TI"  // identity card, 10 digits
	DocPAS DocumentType = "PAS" // passport, 2 letters + 6 digits
	DocNIT DocumentType = "NIT" // tax ID, 9 digits, dash, 1 digit
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrDuplicateUser   = errors.New("document number already registered")
	ErrDuplicatePlate  = errors.New("plate already registered")
	ErrTagInUse        = errors.New("tag already assigned to another vehicle")
)

// ValidationError is a request-shape problem the caller can fix.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

var (
	namePattern      = regexp.MustCompile(`^[A-Za-zÁÉÍÓÚáéíóúÑñ\s]+$`)
	ccPattern        = regexp.MustCompile(`^\d{8,10}$`)
	tiPattern        = regexp.MustCompile(`^\d{10}$`)
	pasPattern       = regexp.MustCompile(`^[A-Za-z]{2}\d{6}$`)
	nitPattern       = regexp.MustCompile(`^\d{9}-\d$`)
	carPlatePattern  = regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)
	motoPlatePattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{2}[A-Z]$`)
)

// User is a registered account holder. The balance itself lives in the
// account ledger, keyed by the document number.
type User struct {
	ID             int
	Name           string
	DocumentType   DocumentType
	DocumentNumber string
}

// Vehicle binds a plate to its owner, class and hardware tag.
type Vehicle struct {
	Plate         string
	Class         parking.VehicleClass
	OwnerDocument string
	OwnerName     string
	Tag           string
}

// Recharge is one balance top-up.
type Recharge struct {
	ID            int
	UserID        int
	Document      string
	UserName      string
	BalanceBefore float64
	Amount        float64
	BalanceAfter  float64
	Reference     string
	At            time.Time
}

// Registry owns users, vehicles, rates and recharges.
type Registry struct {
	mu sync.RWMutex

	accounts   *parking.AccountLedger
	minBalance float64

	nextUserID int
	users      []*User
	byDocument map[string]*User

	vehicles []*Vehicle
	byPlate  map[string]*Vehicle
	byTag    map[string]*Vehicle

	rates map[parking.VehicleClass]float64

	nextRechargeID int
	recharges      []Recharge
}

func NewRegistry(ledger *parking.AccountLedger, rates map[parking.VehicleClass]float64, minInitialBalance float64) *Registry {
	r := &Registry{
		accounts:   ledger,
		minBalance: minInitialBalance,
		byDocument: make(map[string]*User),
		byPlate:    make(map[string]*Vehicle),
		byTag:      make(map[string]*Vehicle),
		rates:      make(map[parking.VehicleClass]float64),
	}
	for class, rate := range rates {
		r.rates[class] = rate
	}
	return r
}

// RegisterUser validates and creates a user plus their prepaid account.
func (r *Registry) RegisterUser(name string, docType DocumentType, docNumber string, initialBalance float64) (User, error) {
	if name == "" || docNumber == "" {
		return User{}, invalid("name and document number are required")
	}
	if !namePattern.MatchString(name) {
		return User{}, invalid("name may only contain letters and spaces")
	}
	if initialBalance < r.minBalance {
		return User{}, invalid("initial balance may not be below %.2f", r.minBalance)
	}
	if err := validateDocument(docType, docNumber); err != nil {
		return User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byDocument[docNumber]; ok {
		return User{}, ErrDuplicateUser
	}

	r.nextUserID++
	user := &User{
		ID:             r.nextUserID,
		Name:           name,
		DocumentType:   docType,
		DocumentNumber: docNumber,
	}
	if err := r.accounts.Open(docNumber, initialBalance); err != nil {
		r.nextUserID--
		return User{}, err
	}
	r.users = append(r.users, user)
	r.byDocument[docNumber] = user
	return *user, nil
}

func validateDocument(docType DocumentType, number string) error {
	switch docType {
	case DocCC:
		if !ccPattern.MatchString(number) {
			return invalid("CC must be 8 to 10 digits")
		}
	case DocTI:
		if !tiPattern.MatchString(number) {
			return invalid("TI must be 10 digits")
		}
	case DocPAS:
		if !pasPattern.MatchString(number) {
			return invalid("PAS must be 2 letters followed by 6 digits")
		}
	case DocNIT:
		if !nitPattern.MatchString(number) {
			return invalid("NIT must be 9 digits, a dash and 1 digit (e.g. 123456789-0)")
		}
	default:
		return invalid("document type must be one of CC, TI, PAS, NIT")
	}
	return nil
}

// RegisterVehicle validates and creates a vehicle bound to an owner and tag.
func (r *Registry) RegisterVehicle(plate string, class parking.VehicleClass, ownerDocument, tag string) (Vehicle, error) {
	if plate == "" || ownerDocument == "" {
		return Vehicle{}, invalid("plate and owner document are required")
	}
	if tag == "" {
		return Vehicle{}, invalid("a scanned tag is required")
	}
	switch class {
	case parking.ClassCar:
		if !carPlatePattern.MatchString(plate) {
			return Vehicle{}, invalid("invalid plate, car format is ABC123")
		}
	case parking.ClassMotorcycle:
		if !motoPlatePattern.MatchString(plate) {
			return Vehicle{}, invalid("invalid plate, motorcycle format is ABC12D")
		}
	default:
		return Vehicle{}, invalid("unsupported vehicle class %q", class)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.byDocument[ownerDocument]
	if !ok {
		return Vehicle{}, ErrUserNotFound
	}
	if _, ok := r.byPlate[plate]; ok {
		return Vehicle{}, ErrDuplicatePlate
	}
	if _, ok := r.byTag[tag]; ok {
		return Vehicle{}, ErrTagInUse
	}

	vehicle := &Vehicle{
		Plate:         plate,
		Class:         class,
		OwnerDocument: owner.DocumentNumber,
		OwnerName:     owner.Name,
		Tag:           tag,
	}
	r.vehicles = append(r.vehicles, vehicle)
	r.byPlate[plate] = vehicle
	r.byTag[tag] = vehicle
	return *vehicle, nil
}

// VehicleByPlate resolves a plate to its vehicle.
func (r *Registry) VehicleByPlate(plate string) (Vehicle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byPlate[plate]
	if !ok {
		return Vehicle{}, false
	}
	return *v, true
}

// VehicleByTag resolves a hardware tag to its vehicle.
func (r *Registry) VehicleByTag(tag string) (Vehicle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byTag[tag]
	if !ok {
		return Vehicle{}, false
	}
	return *v, true
}

// Ref builds the kernel's resolved identity for a vehicle.
func (v Vehicle) Ref() parking.VehicleRef {
	return parking.VehicleRef{
		Plate:     v.Plate,
		Class:     v.Class,
		AccountID: v.OwnerDocument,
		OwnerName: v.OwnerName,
	}
}

// Vehicles lists every registered vehicle in registration order.
func (r *Registry) Vehicles() []Vehicle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Vehicle, len(r.vehicles))
	for i, v := range r.vehicles {
		out[i] = *v
	}
	return out
}

// Users lists every registered user in registration order.
func (r *Registry) Users() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, len(r.users))
	for i, u := range r.users {
		out[i] = *u
	}
	return out
}

// UserByID looks a user up by numeric identity.
func (r *Registry) UserByID(id int) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ID == id {
			return *u, true
		}
	}
	return User{}, false
}

// VehiclesOf lists a user's vehicles.
func (r *Registry) VehiclesOf(document string) []Vehicle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Vehicle
	for _, v := range r.vehicles {
		if v.OwnerDocument == document {
			out = append(out, *v)
		}
	}
	return out
}

// PerMinuteRate implements parking.RateTable.
func (r *Registry) PerMinuteRate(class parking.VehicleClass) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rate, ok := r.rates[class]
	return rate, ok
}

// RateEntry is one row of the rate table listing.
type RateEntry struct {
	Class parking.VehicleClass
	Rate  float64
}

// Rates lists the rate table, ordered by class.
func (r *Registry) Rates() []RateEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RateEntry, 0, len(r.rates))
	for class, rate := range r.rates {
		out = append(out, RateEntry{Class: class, Rate: rate})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}

// Recharge credits a user's account and records the movement with an
// auto-generated reference.
func (r *Registry) Recharge(document string, amount float64, at time.Time) (Recharge, error) {
	if amount <= 0 {
		return Recharge{}, invalid("recharge amount must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byDocument[document]
	if !ok {
		return Recharge{}, ErrUserNotFound
	}

	before, after, err := r.accounts.Credit(document, amount)
	if err != nil {
		return Recharge{}, err
	}

	r.nextRechargeID++
	rec := Recharge{
		ID:            r.nextRechargeID,
		UserID:        user.ID,
		Document:      user.DocumentNumber,
		UserName:      user.Name,
		BalanceBefore: before,
		Amount:        parking.Round2(amount),
		BalanceAfter:  after,
		Reference:     fmt.Sprintf("REC-%s-%s", at.Format("20060102-150405"), user.DocumentNumber),
		At:            at,
	}
	r.recharges = append(r.recharges, rec)
	return rec, nil
}

// RechargesOf lists a user's recharges, newest first.
func (r *Registry) RechargesOf(userID int) ([]Recharge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := false
	for _, u := range r.users {
		if u.ID == userID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrUserNotFound
	}

	var out []Recharge
	for i := len(r.recharges) - 1; i >= 0; i-- {
		if r.recharges[i].UserID == userID {
			out = append(out, r.recharges[i])
		}
	}
	return out, nil
}

// Recharges lists every recharge, newest first.
func (r *Registry) Recharges() []Recharge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Recharge, 0, len(r.recharges))
	for i := len(r.recharges) - 1; i >= 0; i-- {
		out = append(out, r.recharges[i])
	}
	return out
}

// Balance reports a user's current balance.
func (r *Registry) Balance(document string) (float64, error) {
	return r.accounts.Balance(document)
}
