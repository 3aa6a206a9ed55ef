// Package grpc provides the Connect price service. Messages are plain Go
// structs carried by JSONCodec.
package grpc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/seunghun2/daedaesonson/internal/export"
	"github.com/seunghun2/daedaesonson/internal/ingest"
	"github.com/seunghun2/daedaesonson/internal/observability"
	"github.com/seunghun2/daedaesonson/internal/pricing"
	"github.com/seunghun2/daedaesonson/internal/storage"
)

// PriceServiceName is the fully-qualified service name.
const PriceServiceName = "daedaesonson.price.v1.PriceService"

// Procedure paths, relative to the server root.
const (
	ProcedureProcessFacility   = "/" + PriceServiceName + "/ProcessFacility"
	ProcedureGetPriceTable     = "/" + PriceServiceName + "/GetPriceTable"
	ProcedureGetRepresentative = "/" + PriceServiceName + "/GetRepresentative"
	ProcedureListPriceTables   = "/" + PriceServiceName + "/ListPriceTables"
)

// Backend is the subset of the service layer the RPC surface needs.
type Backend interface {
	Process(ctx context.Context, req ingest.FacilityRequest) (*ingest.FacilityResult, error)
	Table(ctx context.Context, facilityID string) (*pricing.FacilityPriceTable, error)
	Tables(ctx context.Context) ([]storage.TableSummary, error)
}

// ProcessFacilityRequest carries inline documents for one facility. A nil
// Structured uses the stored structured rows; an empty one uses none.
type ProcessFacilityRequest struct {
	FacilityID   string                   `json:"facility_id"`
	FacilityName string                   `json:"facility_name,omitempty"`
	Institution  string                   `json:"institution,omitempty"`
	Documents    []ingest.DocumentPayload `json:"documents"`
	Structured   []ingest.StructuredRow   `json:"structured"`
}

// ProcessFacilityResponse is the stored table plus the run report.
type ProcessFacilityResponse struct {
	Document export.Document `json:"document"`
	Report   ingest.Report   `json:"report"`
	Warnings []string        `json:"warnings,omitempty"`
}

// FacilityRequest names one facility.
type FacilityRequest struct {
	FacilityID string `json:"facility_id"`
}

// RepresentativeResponse is the representative summary of one facility.
type RepresentativeResponse struct {
	FacilityID     string         `json:"facility_id"`
	Representative export.Summary `json:"representative"`
}

// ListPriceTablesRequest is empty.
type ListPriceTablesRequest struct{}

// ListPriceTablesResponse lists every stored table.
type ListPriceTablesResponse struct {
	Tables []storage.TableSummary `json:"tables"`
}

// PriceService implements the Connect price service.
type PriceService struct {
	logger  *observability.Logger
	backend Backend
}

// NewPriceService creates a new price service.
func NewPriceService(logger *observability.Logger, backend Backend) *PriceService {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &PriceService{logger: logger, backend: backend}
}

// NewPriceServiceHandler builds an HTTP handler serving every procedure and
// returns the path prefix to mount it on.
func NewPriceServiceHandler(svc *PriceService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ProcedureProcessFacility, connect.NewUnaryHandler(ProcedureProcessFacility, svc.ProcessFacility, opts...))
	mux.Handle(ProcedureGetPriceTable, connect.NewUnaryHandler(ProcedureGetPriceTable, svc.GetPriceTable, opts...))
	mux.Handle(ProcedureGetRepresentative, connect.NewUnaryHandler(ProcedureGetRepresentative, svc.GetRepresentative, opts...))
	mux.Handle(ProcedureListPriceTables, connect.NewUnaryHandler(ProcedureListPriceTables, svc.ListPriceTables, opts...))
	return "/" + PriceServiceName + "/", mux
}

// ProcessFacility runs the pipeline for one facility and stores the table.
func (s *PriceService) ProcessFacility(ctx context.Context, req *connect.Request[ProcessFacilityRequest]) (*connect.Response[ProcessFacilityResponse], error) {
	msg := req.Msg
	if strings.TrimSpace(msg.FacilityID) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, ingest.ErrMissingFacilityID)
	}

	facilityReq, err := ingest.PayloadRequest(msg.FacilityID, msg.FacilityName, msg.Institution, msg.Documents, msg.Structured)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	result, err := s.backend.Process(ctx, facilityReq)
	if err != nil {
		s.logger.Error().Err(err).Str("facility_id", msg.FacilityID).Msg("ProcessFacility failed")
		return nil, toConnectError(err)
	}

	doc, err := document(result.Table)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&ProcessFacilityResponse{
		Document: doc,
		Report:   result.Report,
		Warnings: result.Warnings,
	}), nil
}

// GetPriceTable returns the stored table of a facility.
func (s *PriceService) GetPriceTable(ctx context.Context, req *connect.Request[FacilityRequest]) (*connect.Response[export.Document], error) {
	table, err := s.table(ctx, req.Msg.FacilityID)
	if err != nil {
		return nil, err
	}
	doc, err := document(table)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&doc), nil
}

// GetRepresentative returns the representative summary of a facility.
func (s *PriceService) GetRepresentative(ctx context.Context, req *connect.Request[FacilityRequest]) (*connect.Response[RepresentativeResponse], error) {
	table, err := s.table(ctx, req.Msg.FacilityID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&RepresentativeResponse{
		FacilityID:     table.FacilityID,
		Representative: export.NewSummary(table),
	}), nil
}

// ListPriceTables lists every stored table.
func (s *PriceService) ListPriceTables(ctx context.Context, _ *connect.Request[ListPriceTablesRequest]) (*connect.Response[ListPriceTablesResponse], error) {
	tables, err := s.backend.Tables(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	if tables == nil {
		tables = []storage.TableSummary{}
	}
	return connect.NewResponse(&ListPriceTablesResponse{Tables: tables}), nil
}

func (s *PriceService) table(ctx context.Context, facilityID string) (*pricing.FacilityPriceTable, error) {
	if strings.TrimSpace(facilityID) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, ingest.ErrMissingFacilityID)
	}
	table, err := s.backend.Table(ctx, facilityID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return table, nil
}

func document(table *pricing.FacilityPriceTable) (export.Document, error) {
	prices, err := export.MarshalPriceTable(table)
	if err != nil {
		return export.Document{}, err
	}
	return export.Document{
		FacilityID:     table.FacilityID,
		Prices:         prices,
		Representative: export.NewSummary(table),
	}, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ingest.ErrMissingFacilityID), errors.Is(err, ingest.ErrUnsupportedDocument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// PriceServiceClient calls the price service over Connect.
type PriceServiceClient struct {
	processFacility   *connect.Client[ProcessFacilityRequest, ProcessFacilityResponse]
	getPriceTable     *connect.Client[FacilityRequest, export.Document]
	getRepresentative *connect.Client[FacilityRequest, RepresentativeResponse]
	listPriceTables   *connect.Client[ListPriceTablesRequest, ListPriceTablesResponse]
}

// NewPriceServiceClient creates a client for the service at baseURL.
func NewPriceServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PriceServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &PriceServiceClient{
		processFacility:   connect.NewClient[ProcessFacilityRequest, ProcessFacilityResponse](httpClient, baseURL+ProcedureProcessFacility, opts...),
		getPriceTable:     connect.NewClient[FacilityRequest, export.Document](httpClient, baseURL+ProcedureGetPriceTable, opts...),
		getRepresentative: connect.NewClient[FacilityRequest, RepresentativeResponse](httpClient, baseURL+ProcedureGetRepresentative, opts...),
		listPriceTables:   connect.NewClient[ListPriceTablesRequest, ListPriceTablesResponse](httpClient, baseURL+ProcedureListPriceTables, opts...),
	}
}

// ProcessFacility calls ProcessFacility.
func (c *PriceServiceClient) ProcessFacility(ctx context.Context, req *ProcessFacilityRequest) (*ProcessFacilityResponse, error) {
	resp, err := c.processFacility.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// GetPriceTable calls GetPriceTable.
func (c *PriceServiceClient) GetPriceTable(ctx context.Context, facilityID string) (*export.Document, error) {
	resp, err := c.getPriceTable.CallUnary(ctx, connect.NewRequest(&FacilityRequest{FacilityID: facilityID}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// GetRepresentative calls GetRepresentative.
func (c *PriceServiceClient) GetRepresentative(ctx context.Context, facilityID string) (*RepresentativeResponse, error) {
	resp, err := c.getRepresentative.CallUnary(ctx, connect.NewRequest(&FacilityRequest{FacilityID: facilityID}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// ListPriceTables calls ListPriceTables.
func (c *PriceServiceClient) ListPriceTables(ctx context.Context) ([]storage.TableSummary, error) {
	resp, err := c.listPriceTables.CallUnary(ctx, connect.NewRequest(&ListPriceTablesRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Tables, nil
}
