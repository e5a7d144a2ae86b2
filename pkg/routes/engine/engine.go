// Package engine exposes the cipher engine over HTTP.
package engine

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/internal/services/engine"
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/chain"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/Ramsey-B/enygma/pkg/persistence"
	"github.com/Ramsey-B/enygma/pkg/tracing"
	"github.com/Ramsey-B/enygma/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register registers the chain, preset, processing and saved configuration
// routes. Handlers resolve the engine service from the request's container.
func Register(g *echo.Group) {
	g.GET("/chain", GetChain)
	g.POST("/chain/modules", AddModule)
	g.GET("/chain/modules/:id", GetModule)
	g.PUT("/chain/modules/:id", UpdateModule)
	g.DELETE("/chain/modules/:id", RemoveModule)
	g.POST("/chain/modules/:id/move", MoveModule)
	g.PUT("/chain/modules/:id/enabled", SetEnabled)
	g.POST("/chain/reorder", ReorderModule)
	g.PUT("/chain/character-set", SetCharacterSet)

	g.POST("/chain/modules/:id/plugboard/pairs", ConnectPair)
	g.DELETE("/chain/modules/:id/plugboard/pairs", ResetPlugboard)
	g.DELETE("/chain/modules/:id/plugboard/pairs/:symbol", DisconnectSymbol)

	g.POST("/chain/modules/:id/rotors", AddRotor)
	g.PUT("/chain/modules/:id/rotors/:slot", UpdateRotor)
	g.DELETE("/chain/modules/:id/rotors/:slot", RemoveRotor)
	g.GET("/chain/modules/:id/rotors/positions", RotorPositions)

	g.GET("/presets", ListPresets)
	g.POST("/presets", SavePreset)
	g.POST("/presets/:name/load", LoadPreset)
	g.DELETE("/presets/:name", DeletePreset)

	g.POST("/process/message", ProcessMessage)
	g.POST("/process/character", ProcessCharacter)
	g.POST("/process/reset", ResetState)

	g.GET("/saved", ListSaved)
	g.POST("/saved", Save)
	g.POST("/saved/import", Import)
	g.GET("/saved/:name/export", Export)
	g.POST("/saved/:name/load", Load)
	g.DELETE("/saved/:name", DeleteSaved)
}

// RegisterMetrics serves the prometheus metrics of gatherer on /metrics.
func RegisterMetrics(e *echo.Echo, gatherer prometheus.Gatherer) {
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

type ModuleRequest struct {
	ID string `param:"id" validate:"required"`
}

type AddModuleRequest struct {
	Type models.ModuleKind `json:"type" validate:"required"`
}

type MoveModuleRequest struct {
	ID        string          `param:"id" validate:"required"`
	Direction chain.Direction `json:"direction" validate:"required,oneof=up down"`
}

type SetEnabledRequest struct {
	ID      string `param:"id" validate:"required"`
	Enabled *bool  `json:"enabled" validate:"required"`
}

type ReorderRequest struct {
	From *int `json:"from" validate:"required,min=0"`
	To   *int `json:"to" validate:"required,min=0"`
}

type CharacterSetRequest struct {
	CharacterSet alphabet.CharacterSet `json:"characterSet" validate:"required"`
}

type PairRequest struct {
	ID   string `param:"id" validate:"required"`
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

type SymbolRequest struct {
	ID     string `param:"id" validate:"required"`
	Symbol string `param:"symbol" validate:"required"`
}

type RotorSlotRequest struct {
	ID          string            `param:"id" validate:"required"`
	Slot        int               `param:"slot" validate:"min=0"`
	Rotor       *models.RotorType `json:"rotor"`
	RingSetting *int              `json:"ringSetting"`
}

type NameRequest struct {
	Name string `param:"name" json:"name" validate:"required"`
}

type MessageRequest struct {
	Text string `json:"text"`
}

type CharacterRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

type RotorPositionsResponse struct {
	ModuleID  string `json:"moduleId"`
	Positions []int  `json:"positions"`
}

type PresetsResponse struct {
	ActivePreset string   `json:"activePresetName"`
	Presets      []string `json:"presets"`
}

// GetChain handles GET /chain
func GetChain(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.GetChain")
	defer span.End()

	_, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	return c.JSON(http.StatusOK, service.State())
}

// AddModule handles POST /chain/modules
func AddModule(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.AddModule")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[AddModuleRequest](c)
	if err != nil {
		return err
	}

	module, err := service.AddModule(ctx, req.Type)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, module)
}

// GetModule handles GET /chain/modules/:id
func GetModule(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.GetModule")
	defer span.End()

	_, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	module, err := service.Module(c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, module)
}

// UpdateModule handles PUT /chain/modules/:id. The body uses the module wire
// shape; "id" and "type" may be omitted.
func UpdateModule(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.UpdateModule")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	id := c.Param("id")
	existing, err := service.Module(id)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "request body must be a module object")
	}
	fields["id"], _ = json.Marshal(id)
	if _, ok := fields["type"]; !ok {
		fields["type"], _ = json.Marshal(existing.Kind)
	}

	normalized, err := json.Marshal(fields)
	if err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}

	var module models.ModuleConfig
	if err := json.Unmarshal(normalized, &module); err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}
	if module.Payload == nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "module settings are missing or the type is unknown")
	}

	if err := service.UpdateModule(ctx, id, module.Payload); err != nil {
		return err
	}

	updated, err := service.Module(id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// RemoveModule handles DELETE /chain/modules/:id
func RemoveModule(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.RemoveModule")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[ModuleRequest](c)
	if err != nil {
		return err
	}

	if err := service.RemoveModule(ctx, req.ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// MoveModule handles POST /chain/modules/:id/move
func MoveModule(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.MoveModule")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[MoveModuleRequest](c)
	if err != nil {
		return err
	}

	if err := service.MoveModule(ctx, req.ID, req.Direction); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, service.State())
}

// SetEnabled handles PUT /chain/modules/:id/enabled
func SetEnabled(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.SetEnabled")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[SetEnabledRequest](c)
	if err != nil {
		return err
	}

	if err := service.SetEnabled(ctx, req.ID, *req.Enabled); err != nil {
		return err
	}

	return moduleResponse(c, service, req.ID)
}

// ReorderModule handles POST /chain/reorder
func ReorderModule(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.ReorderModule")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[ReorderRequest](c)
	if err != nil {
		return err
	}

	if err := service.ReorderModule(ctx, *req.From, *req.To); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, service.State())
}

// SetCharacterSet handles PUT /chain/character-set
func SetCharacterSet(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.SetCharacterSet")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[CharacterSetRequest](c)
	if err != nil {
		return err
	}

	if err := service.SetCharacterSet(ctx, req.CharacterSet); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, service.State())
}

// ConnectPair handles POST /chain/modules/:id/plugboard/pairs
func ConnectPair(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.ConnectPair")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[PairRequest](c)
	if err != nil {
		return err
	}

	if err := service.ConnectPlugboardPair(ctx, req.ID, req.From, req.To); err != nil {
		return err
	}

	return moduleResponse(c, service, req.ID)
}

// DisconnectSymbol handles DELETE /chain/modules/:id/plugboard/pairs/:symbol
func DisconnectSymbol(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.DisconnectSymbol")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[SymbolRequest](c)
	if err != nil {
		return err
	}

	if err := service.DisconnectPlugboardSymbol(ctx, req.ID, req.Symbol); err != nil {
		return err
	}

	return moduleResponse(c, service, req.ID)
}

// ResetPlugboard handles DELETE /chain/modules/:id/plugboard/pairs
func ResetPlugboard(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.ResetPlugboard")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[ModuleRequest](c)
	if err != nil {
		return err
	}

	if err := service.ResetPlugboard(ctx, req.ID); err != nil {
		return err
	}

	return moduleResponse(c, service, req.ID)
}

// AddRotor handles POST /chain/modules/:id/rotors
func AddRotor(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.AddRotor")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[ModuleRequest](c)
	if err != nil {
		return err
	}

	if err := service.AddRotor(ctx, req.ID); err != nil {
		return err
	}

	return moduleResponse(c, service, req.ID)
}

// UpdateRotor handles PUT /chain/modules/:id/rotors/:slot
func UpdateRotor(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.UpdateRotor")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[RotorSlotRequest](c)
	if err != nil {
		return err
	}
	if req.Rotor == nil && req.RingSetting == nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "one of rotor or ringSetting is required")
	}

	if req.Rotor != nil {
		if err := service.SetRotorType(ctx, req.ID, req.Slot, *req.Rotor); err != nil {
			return err
		}
	}
	if req.RingSetting != nil {
		if err := service.SetRingSetting(ctx, req.ID, req.Slot, *req.RingSetting); err != nil {
			return err
		}
	}

	return moduleResponse(c, service, req.ID)
}

// RemoveRotor handles DELETE /chain/modules/:id/rotors/:slot
func RemoveRotor(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.RemoveRotor")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[RotorSlotRequest](c)
	if err != nil {
		return err
	}

	if err := service.RemoveRotor(ctx, req.ID, req.Slot); err != nil {
		return err
	}

	return moduleResponse(c, service, req.ID)
}

// RotorPositions handles GET /chain/modules/:id/rotors/positions
func RotorPositions(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.RotorPositions")
	defer span.End()

	_, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	id := c.Param("id")
	positions, err := service.RotorPositions(id)
	if err != nil {
		return err
	}
	if positions == nil {
		positions = []int{}
	}

	return c.JSON(http.StatusOK, RotorPositionsResponse{ModuleID: id, Positions: positions})
}

// ListPresets handles GET /presets
func ListPresets(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.ListPresets")
	defer span.End()

	_, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	return c.JSON(http.StatusOK, PresetsResponse{
		ActivePreset: service.State().ActivePreset,
		Presets:      service.PresetNames(),
	})
}

// SavePreset handles POST /presets
func SavePreset(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.SavePreset")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[NameRequest](c)
	if err != nil {
		return err
	}

	if err := service.SavePreset(ctx, req.Name); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, service.State())
}

// LoadPreset handles POST /presets/:name/load
func LoadPreset(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.LoadPreset")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[NameRequest](c)
	if err != nil {
		return err
	}

	if err := service.LoadPreset(ctx, req.Name); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, service.State())
}

// DeletePreset handles DELETE /presets/:name
func DeletePreset(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.DeletePreset")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[NameRequest](c)
	if err != nil {
		return err
	}

	if err := service.DeletePreset(ctx, req.Name); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// ProcessMessage handles POST /process/message
func ProcessMessage(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.ProcessMessage")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[MessageRequest](c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, service.ProcessMessage(ctx, req.Text))
}

// ProcessCharacter handles POST /process/character
func ProcessCharacter(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.ProcessCharacter")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[CharacterRequest](c)
	if err != nil {
		return err
	}
	if utf8.RuneCountInString(req.Symbol) != 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "symbol must be exactly one character")
	}

	symbol, _ := utf8.DecodeRuneInString(req.Symbol)
	return c.JSON(http.StatusOK, service.ProcessCharacter(ctx, symbol))
}

// ResetState handles POST /process/reset
func ResetState(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.ResetState")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	service.ResetState(ctx)
	return c.NoContent(http.StatusNoContent)
}

// ListSaved handles GET /saved
func ListSaved(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.ListSaved")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	names, err := service.ListSaved(ctx)
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}

	return c.JSON(http.StatusOK, names)
}

// Save handles POST /saved
func Save(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.Save")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[NameRequest](c)
	if err != nil {
		return err
	}

	cfg, err := service.Save(ctx, req.Name)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, cfg)
}

// Load handles POST /saved/:name/load
func Load(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.Load")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[NameRequest](c)
	if err != nil {
		return err
	}

	cfg, err := service.Load(ctx, req.Name)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, cfg)
}

// DeleteSaved handles DELETE /saved/:name
func DeleteSaved(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.DeleteSaved")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	req, err := utils.BindRequest[NameRequest](c)
	if err != nil {
		return err
	}

	if err := service.DeleteSaved(ctx, req.Name); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// Export handles GET /saved/:name/export. The current state is offered as a
// download named after :name.
func Export(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.Export")
	defer span.End()

	_, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	name := c.Param("name")
	var buf bytes.Buffer
	if err := service.Export(&buf, name); err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+persistence.ExportFileName(name)+`"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, buf.Bytes())
}

// Import handles POST /saved/import
func Import(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "engine.Import")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*engine.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	cfg, err := service.Import(ctx, c.Request().Body)
	if err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithField("name", cfg.Name).Info("Imported configuration")
	}

	return c.JSON(http.StatusOK, cfg)
}

func moduleResponse(c echo.Context, service *engine.Service, id string) error {
	module, err := service.Module(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, module)
}
