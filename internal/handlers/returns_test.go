package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"maintenance_center/internal/lifecycle"
	"maintenance_center/internal/models"
	"maintenance_center/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewReturnPackage(t *testing.T) {
	returns := &mockReturns{plan: lifecycle.ReturnPlan{
		Groups:     []lifecycle.BranchGroup{{BranchID: "b-1", BranchName: "Downtown", MachineIDs: []string{"m-1"}}},
		Ineligible: []string{"m-2"},
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, ReturnPackages: returns})

	w := doRequest(r, http.MethodPost, "/api/v1/return-packages/preview", `{"machineIds":["m-1","m-2"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Ready bool                 `json:"ready"`
		Plan  lifecycle.ReturnPlan `json:"plan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.False(t, out.Ready)
	assert.Equal(t, []string{"m-2"}, out.Plan.Ineligible)
	assert.Equal(t, []string{"m-1", "m-2"}, returns.lastInput.MachineIDs)
}

func TestCreateReturnPackage(t *testing.T) {
	returns := &mockReturns{orders: []models.ReturnOrder{
		{ID: "ro-1", Branch: models.Ref{ID: "b-1"}, MachineIDs: []string{"m-1"}},
		{ID: "ro-2", Branch: models.Ref{ID: "b-2"}, MachineIDs: []string{"m-3"}},
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, ReturnPackages: returns})

	w := doRequest(r, http.MethodPost, "/api/v1/return-packages",
		`{"machineIds":["m-1","m-3"],"driverName":"Sam","driverPhone":"+1 555 0100"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out struct {
		Count  int                  `json:"count"`
		Orders []models.ReturnOrder `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "Sam", returns.lastInput.DriverName)
}

func TestCreateReturnPackage_Errors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"empty selection", lifecycle.ErrEmptySelection, http.StatusBadRequest},
		{"ineligible", fmt.Errorf("%w: m-2 is NEW", lifecycle.ErrActionNotAllowed), http.StatusConflict},
		{"busy", service.ErrMutationInFlight, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			returns := &mockReturns{err: tc.err}
			r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, ReturnPackages: returns})

			w := doRequest(r, http.MethodPost, "/api/v1/return-packages", `{"machineIds":["m-2"]}`)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}
