package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// RouteStep is one hop of a resolved inter-area route.
type RouteStep struct {
	AreaID       string `json:"area_id"`
	ConnectionID string `json:"connection_id,omitempty"`
}

// RouteInstruction is one turn-by-turn projection of a RouteStep.
type RouteInstruction struct {
	Kind           string  `json:"kind"`
	AreaID         string  `json:"area_id"`
	ConnectionID   string  `json:"connection_id,omitempty"`
	ConnectionKind string  `json:"connection_kind,omitempty"`
	Distance       float64 `json:"distance"`
}

// RouteResult is the decoded response of a Route query.
type RouteResult struct {
	Steps        []RouteStep        `json:"steps"`
	Instructions []RouteInstruction `json:"instructions"`
}

// RouteLimits expresses which vertical-transport modes a Route query
// may use, mirroring router.Limits.
type RouteLimits struct {
	AllowElevator  bool
	AllowStairs    bool
	AllowEscalator bool
}

// Route queries the inter-area router (C9) for a path between start
// and end within entityID.
func (c *Client) Route(ctx context.Context, entityID, start, end string, limits RouteLimits) (RouteResult, error) {
	path := fmt.Sprintf("/api/entities/%s/route?%s",
		url.PathEscape(entityID),
		url.Values{
			"start":           {start},
			"end":             {end},
			"allow_elevator":  {strconv.FormatBool(limits.AllowElevator)},
			"allow_stairs":    {strconv.FormatBool(limits.AllowStairs)},
			"allow_escalator": {strconv.FormatBool(limits.AllowEscalator)},
		}.Encode())

	var resp RouteResult
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return RouteResult{}, err
	}
	return resp, nil
}

// PathWaypoint is one point of a resolved intra-area path.
type PathWaypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PathInstruction is one turn-by-turn projection of a PathWaypoint.
type PathInstruction struct {
	Kind     string  `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Distance float64 `json:"distance"`
}

// PathResult is the decoded response of a Path query.
type PathResult struct {
	Waypoints    []PathWaypoint    `json:"waypoints"`
	Instructions []PathInstruction `json:"instructions"`
}

// Path queries the intra-area pathfinder (C10) for a route between two
// points within areaID, itself scoped under entityID.
func (c *Client) Path(ctx context.Context, entityID, areaID string, startX, startY, endX, endY float64) (PathResult, error) {
	path := fmt.Sprintf("/api/entities/%s/areas/%s/path?%s",
		url.PathEscape(entityID), url.PathEscape(areaID),
		url.Values{
			"start_x": {strconv.FormatFloat(startX, 'f', -1, 64)},
			"start_y": {strconv.FormatFloat(startY, 'f', -1, 64)},
			"end_x":   {strconv.FormatFloat(endX, 'f', -1, 64)},
			"end_y":   {strconv.FormatFloat(endY, 'f', -1, 64)},
		}.Encode())

	var resp PathResult
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return PathResult{}, err
	}
	return resp, nil
}
