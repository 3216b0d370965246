package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"

	"drips/internal/models"
	"drips/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// RaffleAPI is the part of services.RaffleService the HTTP layer serves.
type RaffleAPI interface {
	GetRaffleDetails(ctx context.Context, id string) (*models.RaffleDetails, error)
	QueryRaffles(ctx context.Context, opts models.RaffleQueryOptions) (*models.RaffleQueryResult, error)
	GetRafflesByCreator(ctx context.Context, address string, opts models.RaffleQueryOptions) (*models.RaffleQueryResult, error)
	SearchRaffles(ctx context.Context, term string, opts models.RaffleQueryOptions) (*models.RaffleQueryResult, error)
	GetRafflableNFTs(ctx context.Context, address string, opts models.GetRafflableNFTsOptions) (*models.RafflableNFTsResult, error)
	GetNFTMetadata(ctx context.Context, id string) (*models.NFTMetadata, error)
	PlanCreateRaffle(ctx context.Context, params models.CreateRaffleParams) (*models.MoveCall, error)
	PlanJoinRaffle(ctx context.Context, raffleID string) (*models.MoveCall, error)
	PlanSelectWinner(ctx context.Context, raffleID, operatorCapID string) (*models.MoveCall, error)
}

// HTTPHandler holds the dependencies for the HTTP handlers, like the raffle service.
type HTTPHandler struct {
	service RaffleAPI
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service RaffleAPI) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/raffles", h.ListRaffles)
	router.GET("/raffles/search", h.SearchRaffles)
	router.GET("/raffles/export.csv", h.ExportRafflesCSV)
	router.GET("/raffles/:id", h.GetRaffle)
	router.POST("/raffles/:id/plans/join", h.PlanJoin)
	router.POST("/raffles/:id/plans/select-winner", h.PlanSelectWinner)
	router.POST("/plans/create", h.PlanCreate)
	router.GET("/creators/:address/raffles", h.ListCreatorRaffles)
	router.GET("/owners/:address/nfts", h.ListOwnerNFTs)
	router.GET("/nfts/:id", h.GetNFT)
}

// errorStatus maps the service error classes onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, services.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) fail(c *gin.Context, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Warningf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		logger.Infof("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// queryOptions reads limit, cursor, details and status.
func queryOptions(c *gin.Context) (models.RaffleQueryOptions, bool) {
	var opts models.RaffleQueryOptions
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			badRequest(c, "Invalid limit")
			return opts, false
		}
		opts.Limit = limit
	}
	opts.Cursor = c.Query("cursor")

	details, ok := boolQuery(c, "details")
	if !ok {
		return opts, false
	}
	opts.IncludeDetails = details

	switch status := models.StatusFilter(c.Query("status")); status {
	case "", models.StatusAll, models.StatusActive, models.StatusEnded:
		opts.Status = status
	default:
		badRequest(c, "Invalid status, expected all, active or ended")
		return opts, false
	}
	return opts, true
}

func boolQuery(c *gin.Context, key string) (bool, bool) {
	v := c.Query(key)
	if v == "" {
		return false, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		badRequest(c, "Invalid "+key)
		return false, false
	}
	return b, true
}

// ListRaffles handles discovery queries.
func (h *HTTPHandler) ListRaffles(c *gin.Context) {
	opts, ok := queryOptions(c)
	if !ok {
		return
	}
	res, err := h.service.QueryRaffles(c.Request.Context(), opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SearchRaffles matches prize metadata against the q parameter.
func (h *HTTPHandler) SearchRaffles(c *gin.Context) {
	opts, ok := queryOptions(c)
	if !ok {
		return
	}
	res, err := h.service.SearchRaffles(c.Request.Context(), c.Query("q"), opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetRaffle returns the current state of one raffle.
func (h *HTTPHandler) GetRaffle(c *gin.Context) {
	d, err := h.service.GetRaffleDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListCreatorRaffles lists raffles operated by an address.
func (h *HTTPHandler) ListCreatorRaffles(c *gin.Context) {
	opts, ok := queryOptions(c)
	if !ok {
		return
	}
	res, err := h.service.GetRafflesByCreator(c.Request.Context(), c.Param("address"), opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListOwnerNFTs classifies the objects an address owns.
func (h *HTTPHandler) ListOwnerNFTs(c *gin.Context) {
	var opts models.GetRafflableNFTsOptions
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			badRequest(c, "Invalid limit")
			return
		}
		opts.Limit = limit
	}
	opts.Cursor = c.Query("cursor")
	var ok bool
	if opts.IncludeMetadata, ok = boolQuery(c, "metadata"); !ok {
		return
	}
	if opts.OnlyCompatible, ok = boolQuery(c, "compatible"); !ok {
		return
	}

	res, err := h.service.GetRafflableNFTs(c.Request.Context(), c.Param("address"), opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetNFT returns an object's display metadata.
func (h *HTTPHandler) GetNFT(c *gin.Context) {
	meta, err := h.service.GetNFTMetadata(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if meta == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "nft " + c.Param("id") + " not found"})
		return
	}
	c.JSON(http.StatusOK, meta)
}

// PlanCreate returns the move call creating a raffle from a JSON body.
func (h *HTTPHandler) PlanCreate(c *gin.Context) {
	var params models.CreateRaffleParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, "Invalid create request: "+err.Error())
		return
	}
	call, err := h.service.PlanCreateRaffle(c.Request.Context(), params)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// PlanJoin returns the move call joining a raffle.
func (h *HTTPHandler) PlanJoin(c *gin.Context) {
	call, err := h.service.PlanJoinRaffle(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

type selectWinnerRequest struct {
	OperatorCapID string `json:"operatorCapId" binding:"required"`
}

// PlanSelectWinner returns the move call drawing a raffle's winner.
func (h *HTTPHandler) PlanSelectWinner(c *gin.Context) {
	var req selectWinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "operatorCapId is required")
		return
	}
	call, err := h.service.PlanSelectWinner(c.Request.Context(), c.Param("id"), req.OperatorCapID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// ExportRafflesCSV handles the request to download one discovery page as a CSV file.
func (h *HTTPHandler) ExportRafflesCSV(c *gin.Context) {
	opts, ok := queryOptions(c)
	if !ok {
		return
	}
	opts.IncludeDetails = true
	res, err := h.service.QueryRaffles(c.Request.Context(), opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=raffles.csv")

	// Add BOM to ensure UTF-8 compatibility in Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)

	// Write header
	if err := w.Write([]string{"raffle_id", "status", "prize", "balance", "participants", "deadline", "winner"}); err != nil {
		logger.Infof("Error writing CSV header: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
		return
	}

	// Write data
	for _, r := range res.Raffles {
		prize := r.PrizeItemID
		if r.NFTMetadata != nil {
			prize = r.NFTMetadata.Name
		}
		row := []string{
			r.ID,
			services.StatusDescription(r.Status),
			prize,
			r.FormattedBalance,
			strconv.FormatUint(r.ParticipantsCount, 10),
			r.FormattedDeadline,
			r.WinnerAddress,
		}
		if err := w.Write(row); err != nil {
			logger.Infof("Error writing CSV row: %v", err)
			c.String(http.StatusInternalServerError, "Error writing CSV")
			return
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		logger.Infof("Error flushing CSV writer: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
	}
}
