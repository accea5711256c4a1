package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parqueadero/internal/parking"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(parking.NewAccountLedger(), map[parking.VehicleClass]float64{
		parking.ClassCar:        100,
		parking.ClassMotorcycle: 50,
	}, 5000)
}

func TestRegisterUserValidation(t *testing.T) {
	tests := []struct {
		name      string
		userName  string
		docType   DocumentType
		docNumber string
		balance   float64
		wantErr   string
	}{
		{"valid CC", "Ana Maria", DocCC, "12345678", 5000, ""},
		{"valid CC ten digits", "Luis", DocCC, "1234567890", 5000, ""},
		{"valid TI", "Sofia", DocTI, "1029384756", 5000, ""},
		{"valid PAS", "Jorge", DocPAS, "AB123456", 5000, ""},
		{"valid NIT", "Empresa", DocNIT, "123456789-0", 5000, ""},
		{"missing name", "", DocCC, "12345678", 5000, "name and document number are required"},
		{"name with digits", "Ana1", DocCC, "12345678", 5000, "name may only contain letters and spaces"},
		{"CC too short", "Ana", DocCC, "1234567", 5000, "CC must be 8 to 10 digits"},
		{"TI wrong length", "Ana", DocTI, "123", 5000, "TI must be 10 digits"},
		{"PAS bad shape", "Ana", DocPAS, "A1234567", 5000, "PAS must be 2 letters followed by 6 digits"},
		{"NIT without dash", "Ana", DocNIT, "1234567890", 5000, "NIT must be 9 digits, a dash and 1 digit (e.g. 123456789-0)"},
		{"unknown document type", "Ana", DocumentType("DNI"), "12345678", 5000, "document type must be one of CC, TI, PAS, NIT"},
		{"balance below minimum", "Ana", DocCC, "12345678", 4999, "initial balance may not be below 5000.00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRegistry(t)
			user, err := r.RegisterUser(tc.userName, tc.docType, tc.docNumber, tc.balance)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 1, user.ID)
				balance, err := r.Balance(tc.docNumber)
				require.NoError(t, err)
				assert.Equal(t, tc.balance, balance)
			} else {
				require.Error(t, err)
				assert.Equal(t, tc.wantErr, err.Error())
			}
		})
	}
}

func TestRegisterUserDuplicateDocument(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.RegisterUser("Ana", DocCC, "12345678", 5000)
	require.NoError(t, err)

	_, err = r.RegisterUser("Otra Ana", DocCC, "12345678", 5000)
	assert.ErrorIs(t, err, ErrDuplicateUser)
	assert.Len(t, r.Users(), 1)
}

func TestRegisterVehicle(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.RegisterUser("Ana", DocCC, "12345678", 5000)
	require.NoError(t, err)

	vehicle, err := r.RegisterVehicle("ABC123", parking.ClassCar, "12345678", "TAG1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", vehicle.OwnerName)
	assert.Equal(t, "TAG1", vehicle.Tag)

	got, ok := r.VehicleByPlate("ABC123")
	require.True(t, ok)
	assert.Equal(t, parking.ClassCar, got.Class)

	got, ok = r.VehicleByTag("TAG1")
	require.True(t, ok)
	assert.Equal(t, "ABC123", got.Plate)

	ref := got.Ref()
	assert.Equal(t, "ABC123", ref.Plate)
	assert.Equal(t, "12345678", ref.AccountID)
}

func TestRegisterVehicleValidation(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.RegisterUser("Ana", DocCC, "12345678", 5000)
	require.NoError(t, err)

	_, err = r.RegisterVehicle("AB123", parking.ClassCar, "12345678", "TAG1")
	assert.EqualError(t, err, "invalid plate, car format is ABC123")

	_, err = r.RegisterVehicle("ABC123", parking.ClassMotorcycle, "12345678", "TAG1")
	assert.EqualError(t, err, "invalid plate, motorcycle format is ABC12D")

	_, err = r.RegisterVehicle("ABC12D", parking.VehicleClass("truck"), "12345678", "TAG1")
	assert.EqualError(t, err, `unsupported vehicle class "truck"`)

	_, err = r.RegisterVehicle("ABC123", parking.ClassCar, "99999999", "TAG1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = r.RegisterVehicle("ABC123", parking.ClassCar, "12345678", "")
	assert.EqualError(t, err, "a scanned tag is required")
}

func TestRegisterVehicleDuplicates(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.RegisterUser("Ana", DocCC, "12345678", 5000)
	require.NoError(t, err)

	_, err = r.RegisterVehicle("ABC123", parking.ClassCar, "12345678", "TAG1")
	require.NoError(t, err)

	_, err = r.RegisterVehicle("ABC123", parking.ClassCar, "12345678", "TAG2")
	assert.ErrorIs(t, err, ErrDuplicatePlate)

	_, err = r.RegisterVehicle("XYZ789", parking.ClassCar, "12345678", "TAG1")
	assert.ErrorIs(t, err, ErrTagInUse)
}

func TestRates(t *testing.T) {
	r := newTestRegistry(t)

	rate, ok := r.PerMinuteRate(parking.ClassCar)
	require.True(t, ok)
	assert.Equal(t, 100.0, rate)

	_, ok = r.PerMinuteRate(parking.VehicleClass("truck"))
	assert.False(t, ok)

	rates := r.Rates()
	require.Len(t, rates, 2)
	assert.Equal(t, parking.ClassCar, rates[0].Class)
	assert.Equal(t, parking.ClassMotorcycle, rates[1].Class)
}

func TestRecharge(t *testing.T) {
	r := newTestRegistry(t)
	user, err := r.RegisterUser("Ana", DocCC, "12345678", 5000)
	require.NoError(t, err)

	at := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	rec, err := r.Recharge("12345678", 200, at)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, rec.BalanceBefore)
	assert.Equal(t, 5200.0, rec.BalanceAfter)
	assert.Equal(t, "REC-20260901-103000-12345678", rec.Reference)

	balance, err := r.Balance("12345678")
	require.NoError(t, err)
	assert.Equal(t, 5200.0, balance)

	_, err = r.Recharge("12345678", 0, at)
	assert.EqualError(t, err, "recharge amount must be positive")

	_, err = r.Recharge("99999999", 100, at)
	assert.ErrorIs(t, err, ErrUserNotFound)

	history, err := r.RechargesOf(user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, rec.Reference, history[0].Reference)

	all := r.Recharges()
	require.Len(t, all, 1)

	_, err = r.RechargesOf(42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserLookups(t *testing.T) {
	r := newTestRegistry(t)
	user, err := r.RegisterUser("Ana", DocCC, "12345678", 5000)
	require.NoError(t, err)
	_, err = r.RegisterVehicle("ABC123", parking.ClassCar, "12345678", "TAG1")
	require.NoError(t, err)
	_, err = r.RegisterVehicle("ABC12D", parking.ClassMotorcycle, "12345678", "TAG2")
	require.NoError(t, err)

	got, ok := r.UserByID(user.ID)
	require.True(t, ok)
	assert.Equal(t, "Ana", got.Name)

	_, ok = r.UserByID(99)
	assert.False(t, ok)

	vehicles := r.VehiclesOf("12345678")
	assert.Len(t, vehicles, 2)
	assert.Len(t, r.Vehicles(), 2)
}
