// Package mcpserver exposes the search pipeline as MCP tools. It is a thin
// adapter: it decodes tool arguments, calls the orchestrator and renders the
// result or error payload as JSON text. Protocol framing belongs to the SDK.
package mcpserver

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"peakstay_mcp/internal/adapters/observability"
	"peakstay_mcp/internal/app"
	"peakstay_mcp/internal/domain"
)

type Server struct {
	svc      *app.SearchService
	mcp      *server.MCPServer
	clientID string
	log      zerolog.Logger
}

// New builds the MCP server and registers the tools. On stdio there is no
// peer address, so the client id is the configured API key or "local".
func New(svc *app.SearchService, apiKey string, log zerolog.Logger) *Server {
	id := apiKey
	if id == "" {
		id = "local"
	}
	s := &Server{
		svc:      svc,
		mcp:      server.NewMCPServer("peakstay-mcp", "1.0.0"),
		clientID: id,
		log:      log,
	}
	s.registerTools()
	return s
}

// ServeStdio blocks, serving the MCP session over stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info().Msg("MCP server listening on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	search := mcp.NewTool("search_accommodations",
		mcp.WithDescription("Search vacation accommodations (chalets, apartments, hotels) in ski resorts and alpine destinations. Provide exactly one location selector."),
		mcp.WithString("location", mcp.Description("Free-text location, e.g. a resort, city or region name")),
		mcp.WithString("accommodation_ids", mcp.Description("Comma-separated accommodation ids")),
		mcp.WithNumber("resort_id", mcp.Description("Resort id from resolve_location")),
		mcp.WithNumber("city_id", mcp.Description("City id from resolve_location")),
		mcp.WithNumber("lat", mcp.Description("Latitude for a geo search")),
		mcp.WithNumber("lon", mcp.Description("Longitude for a geo search")),
		mcp.WithNumber("radius_km", mcp.Description("Geo search radius in kilometres")),
		mcp.WithString("arrival", mcp.Required(), mcp.Description("Arrival date, YYYY-MM-DD")),
		mcp.WithString("departure", mcp.Description("Departure date, YYYY-MM-DD; alternative to nights")),
		mcp.WithNumber("nights", mcp.Description("Number of nights; alternative to departure")),
		mcp.WithString("ages", mcp.Description("Comma-separated ages of all occupants, e.g. \"30,28,5\"")),
		mcp.WithNumber("persons", mcp.Description("Person count; alternative to ages, all assumed adult")),
		mcp.WithString("currency", mcp.Description("ISO 4217 currency code, default EUR")),
		mcp.WithString("lang", mcp.Description("Language code, default en")),
		mcp.WithNumber("limit", mcp.Description("Maximum results, 1-100")),
		mcp.WithNumber("page", mcp.Description("Page number, default 1")),
	)
	s.mcp.AddTool(search, s.handleSearch)

	resolve := mcp.NewTool("resolve_location",
		mcp.WithDescription("Resolve a free-text location name to ranked reference entities (ski areas, resorts, cities, regions, countries) with confidence scores."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Location name to resolve")),
	)
	s.mcp.AddTool(resolve, s.handleResolve)
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := domain.SearchParams{
		Location:         req.GetString("location", ""),
		AccommodationIDs: parseIDList(req.GetString("accommodation_ids", "")),
		ResortID:         int64(req.GetInt("resort_id", 0)),
		CityID:           int64(req.GetInt("city_id", 0)),
		Arrival:          req.GetString("arrival", ""),
		Departure:        req.GetString("departure", ""),
		Nights:           req.GetInt("nights", 0),
		Ages:             parseAges(req.GetString("ages", "")),
		Persons:          req.GetInt("persons", 0),
		Currency:         req.GetString("currency", ""),
		Lang:             req.GetString("lang", ""),
		Limit:            req.GetInt("limit", 0),
		Page:             req.GetInt("page", 0),
	}
	if lat, lon := req.GetFloat("lat", 0), req.GetFloat("lon", 0); lat != 0 || lon != 0 {
		p.Geo = &domain.GeoSelector{Lat: lat, Lon: lon, RadiusKm: req.GetFloat("radius_km", 10)}
	}

	res, err := s.svc.Search(ctx, s.clientID, p)
	if err != nil {
		return s.errorResult("search_accommodations", err), nil
	}
	observability.ObserveTool("search_accommodations", "ok")
	return jsonResult(res), nil
}

func (s *Server) handleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matches, err := s.svc.ResolveLocation(ctx, s.clientID, req.GetString("query", ""))
	if err != nil {
		return s.errorResult("resolve_location", err), nil
	}
	observability.ObserveTool("resolve_location", "ok")
	return jsonResult(map[string]any{"matches": matches}), nil
}

// errorResult renders a failure as a normal tool response carrying the error
// payload. Tool calls never fail at the protocol level.
func (s *Server) errorResult(tool string, err error) *mcp.CallToolResult {
	observability.ObserveTool(tool, "error")
	if serr, ok := err.(*domain.SearchError); ok {
		return jsonResult(serr)
	}
	s.log.Error().Err(err).Str("tool", tool).Msg("unclassified error reached the MCP surface")
	return jsonResult(domain.NewError(domain.ErrUpstreamUnavailable, "internal error"))
}

func jsonResult(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("failed to encode result")
	}
	return mcp.NewToolResultText(string(b))
}

func parseAges(s string) []int {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func parseIDList(s string) []int64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(s, ",") {
		if n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}
