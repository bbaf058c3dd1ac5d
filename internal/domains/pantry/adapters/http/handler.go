package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/http/mapper"
	pantrytypes "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application/types"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
	apierrors "github.com/Apurer/pantry-partner-api/internal/shared/errors"
)

const (
	// PartnerHeader identifies the calling partner.
	PartnerHeader = "X-Partner-ID"
	// ItemsPath lists priced pantry items.
	ItemsPath = "/v1/pantry/items"
	// SnapshotPath addresses a single snapshot.
	SnapshotPath = "/v1/pantry/snapshots/:snapshotId"
)

// Config carries the transport settings of the pantry API.
type Config struct {
	// PublicBaseURL prefixes navigation links; empty keeps them relative.
	PublicBaseURL string
	Bounds        mapper.PageBounds
	// Logger receives errors that map to a 500.
	Logger *slog.Logger
}

// PantryAPI wires HTTP transport with the pantry service.
type PantryAPI struct {
	service   ports.Service
	cfg       Config
	responder *apierrors.ChainedResponder
}

// NewPantryAPI creates a PantryAPI backed by the provided service.
func NewPantryAPI(service ports.Service, cfg Config) *PantryAPI {
	return &PantryAPI{service: service, cfg: cfg, responder: NewResponder("", cfg.Logger)}
}

// RegisterRoutes mounts the pantry endpoints.
func (api *PantryAPI) RegisterRoutes(r gin.IRoutes) {
	r.GET(ItemsPath, api.ListItems)
	r.DELETE(SnapshotPath, api.DeleteSnapshot)
}

// Get /v1/pantry/items
// Lists priced pantry items, fresh or from a snapshot
func (api *PantryAPI) ListItems(c *gin.Context) {
	partnerID, ok := api.partnerID(c)
	if !ok {
		return
	}
	query, fields := mapper.BindListItemsQuery(c.Request.URL.Query())
	if len(fields) > 0 {
		api.responder.ValidationFailed(c, fields)
		return
	}
	input, fields := mapper.ToFetchInput(query, partnerID, api.linkBase(), api.cfg.Bounds)
	if len(fields) > 0 {
		api.responder.ValidationFailed(c, fields)
		return
	}
	page, err := api.service.Fetch(c.Request.Context(), input)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Delete /v1/pantry/snapshots/:snapshotId
// Deletes a partner's snapshot
func (api *PantryAPI) DeleteSnapshot(c *gin.Context) {
	partnerID, ok := api.partnerID(c)
	if !ok {
		return
	}
	input := pantrytypes.SnapshotIdentifier{PartnerID: partnerID, SnapshotID: c.Param("snapshotId")}
	if err := api.service.DeleteSnapshot(c.Request.Context(), input); err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *PantryAPI) partnerID(c *gin.Context) (string, bool) {
	partnerID := strings.TrimSpace(c.GetHeader(PartnerHeader))
	if partnerID == "" {
		api.responder.Respond(c, apierrors.ErrUnauthorized.WithDetail(PartnerHeader+" header is required"))
		return "", false
	}
	return partnerID, true
}

func (api *PantryAPI) linkBase() string {
	return strings.TrimRight(api.cfg.PublicBaseURL, "/") + ItemsPath
}
