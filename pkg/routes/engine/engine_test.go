package engine

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	service "github.com/Ramsey-B/enygma/internal/services/engine"
	"github.com/Ramsey-B/enygma/pkg/chain"
	"github.com/Ramsey-B/enygma/pkg/metrics"
	"github.com/Ramsey-B/enygma/pkg/middleware"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/Ramsey-B/enygma/pkg/persistence"
	"github.com/Ramsey-B/enygma/pkg/pipeline"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	t *testing.T
	e *echo.Echo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	store, err := persistence.NewFileStore(filepath.Join(t.TempDir(), "states"), logger)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	svc := service.NewService(logger,
		service.WithStore(store),
		service.WithMetrics(metrics.New(registry)),
	)

	containerID := "engine-test-" + uuid.NewString()
	_, err = NewContainer(containerID, svc, logger)
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	e.Use(middleware.Container(containerID))
	Register(e.Group("/api/v1"))
	RegisterMetrics(e, registry)

	return &testAPI{t: t, e: e}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestEngineAPI_PresetAndProcess(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/presets/"+strings.ReplaceAll(chain.PresetCaesar, " ", "%20")+"/load", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decode[chain.State](t, rec)
	assert.Equal(t, chain.PresetCaesar, state.ActivePreset)

	rec = api.do(http.MethodPost, "/process/message", map[string]any{"text": "HELLO"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[pipeline.MessageResult](t, rec)
	assert.Equal(t, "KHOOR", result.Output)
	assert.Len(t, result.History, 5)

	rec = api.do(http.MethodPost, "/process/character", map[string]any{"symbol": "A"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "D", decode[pipeline.CharacterResult](t, rec).Result)

	rec = api.do(http.MethodPost, "/process/character", map[string]any{"symbol": "AB"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/process/reset", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestEngineAPI_UnknownPreset(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/presets/Nope/load", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[middleware.ErrorResponse](t, rec)
	assert.Equal(t, "not_found", body.Meta["code"])
}

func TestEngineAPI_ModuleEditing(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/chain/modules", map[string]any{"type": "shifter"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	module := decode[models.ModuleConfig](t, rec)
	assert.Equal(t, models.ShifterPayload{Shift: 3}, module.Payload)

	rec = api.do(http.MethodPut, "/chain/modules/"+module.ID, map[string]any{"shift": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.ShifterPayload{Shift: 1}, decode[models.ModuleConfig](t, rec).Payload)

	rec = api.do(http.MethodPut, "/chain/modules/"+module.ID, map[string]any{"keyword": "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPut, "/chain/modules/"+module.ID+"/enabled", map[string]any{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.ModuleConfig](t, rec).Enabled)

	rec = api.do(http.MethodPut, "/chain/modules/"+module.ID+"/enabled", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/chain", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[chain.State](t, rec)
	require.Len(t, state.Modules, 1)
	assert.Equal(t, chain.CustomPreset, state.ActivePreset)

	rec = api.do(http.MethodDelete, "/chain/modules/"+module.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, "/chain/modules/"+module.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEngineAPI_Ordering(t *testing.T) {
	api := newTestAPI(t)
	first := decode[models.ModuleConfig](t, api.do(http.MethodPost, "/chain/modules", map[string]any{"type": "shifter"}))
	second := decode[models.ModuleConfig](t, api.do(http.MethodPost, "/chain/modules", map[string]any{"type": "vigenere"}))

	rec := api.do(http.MethodPost, "/chain/modules/"+second.ID+"/move", map[string]any{"direction": "up"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decode[chain.State](t, rec)
	assert.Equal(t, second.ID, state.Modules[0].ID)

	rec = api.do(http.MethodPost, "/chain/modules/"+second.ID+"/move", map[string]any{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/chain/reorder", map[string]any{"from": 1, "to": 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state = decode[chain.State](t, rec)
	assert.Equal(t, first.ID, state.Modules[0].ID)

	rec = api.do(http.MethodPut, "/chain/character-set", map[string]any{"characterSet": "full"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "full", string(decode[chain.State](t, rec).CharacterSet))
}

func TestEngineAPI_PlugboardAndRotors(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/presets/Enigma/load", nil).Code)

	rec := api.do(http.MethodPost, "/chain/modules/enigma-plugboard/plugboard/pairs", map[string]any{"from": "A", "to": "B"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	board := decode[models.ModuleConfig](t, rec).Payload.(models.PlugboardPayload)
	assert.Equal(t, map[string]string{"A": "B", "B": "A"}, board.Mapping)

	rec = api.do(http.MethodDelete, "/chain/modules/enigma-plugboard/plugboard/pairs/B", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[models.ModuleConfig](t, rec).Payload.(models.PlugboardPayload).Mapping)

	rec = api.do(http.MethodPut, "/chain/modules/enigma-rotors/rotors/0", map[string]any{"rotor": "IV", "ringSetting": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotors := decode[models.ModuleConfig](t, rec).Payload.(models.RotorSetPayload)
	assert.Equal(t, models.RotorIV, rotors.RotorSettings[0].Rotor)
	assert.Equal(t, 2, rotors.RotorSettings[0].RingSetting)

	rec = api.do(http.MethodPut, "/chain/modules/enigma-rotors/rotors/0", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/chain/modules/enigma-rotors/rotors", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[models.ModuleConfig](t, rec).Payload.(models.RotorSetPayload).RotorSettings, 4)

	rec = api.do(http.MethodDelete, "/chain/modules/enigma-rotors/rotors/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[models.ModuleConfig](t, rec).Payload.(models.RotorSetPayload).RotorSettings, 3)

	api.do(http.MethodPost, "/process/character", map[string]any{"symbol": "A"})
	rec = api.do(http.MethodGet, "/chain/modules/enigma-rotors/rotors/positions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	positions := decode[RotorPositionsResponse](t, rec)
	assert.Equal(t, []int{2, 0, 1}, positions.Positions)

	rec = api.do(http.MethodGet, "/chain/modules/enigma-reflector/rotors/positions", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEngineAPI_Presets(t *testing.T) {
	api := newTestAPI(t)
	api.do(http.MethodPost, "/chain/modules", map[string]any{"type": "shifter"})

	rec := api.do(http.MethodPost, "/presets", map[string]any{"name": "Mine"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/presets", nil)
	presets := decode[PresetsResponse](t, rec)
	assert.Equal(t, "Mine", presets.ActivePreset)
	assert.Contains(t, presets.Presets, "Mine")

	rec = api.do(http.MethodPost, "/presets", map[string]any{"name": "Enigma"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodDelete, "/presets/Enigma", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodDelete, "/presets/Mine", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestEngineAPI_SavedConfigurations(t *testing.T) {
	api := newTestAPI(t)
	api.do(http.MethodPost, "/presets/Enigma/load", nil)
	api.do(http.MethodPost, "/process/message", map[string]any{"text": "HELLO"})

	rec := api.do(http.MethodPost, "/saved", map[string]any{"name": "field"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/saved", nil)
	assert.Equal(t, []string{"field"}, decode[[]string](t, rec))

	rec = api.do(http.MethodGet, "/saved/field/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "cipher-field.json")
	exported := rec.Body.String()

	api.do(http.MethodPost, "/presets/Caesar%20Cipher/load", nil)
	rec = api.do(http.MethodPost, "/saved/field/load", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loaded := decode[persistence.SavedConfiguration](t, rec)
	assert.Equal(t, chain.PresetEnigma, loaded.State.ActivePresetName)
	assert.Equal(t, "HELLO", loaded.State.Messages.Input)

	rec = api.do(http.MethodPost, "/saved/import", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "field", decode[persistence.SavedConfiguration](t, rec).Name)

	rec = api.do(http.MethodPost, "/saved/import", `{"name":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(http.MethodDelete, "/saved/field", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodPost, "/saved/field/load", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEngineAPI_Metrics(t *testing.T) {
	api := newTestAPI(t)
	api.do(http.MethodPost, "/process/message", map[string]any{"text": "A"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "messages_total")
}

func TestHandlers_ServiceUnavailableWithoutRegistration(t *testing.T) {
	containerID := "engine-empty-" + uuid.NewString()
	_, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{ID: containerID})
	require.NoError(t, err)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Container(containerID))
	Register(e.Group("/api/v1"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/chain", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestImport_RejectsOversizedBody(t *testing.T) {
	api := newTestAPI(t)

	body := `{"name":"big","padding":"` + strings.Repeat("x", persistence.MaxImportSize) + `"}`
	rec := api.do(http.MethodPost, "/saved/import", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
