package api

import (
	"github.com/labstack/echo/v4"

	"taskboard/domain"
)

// connectionIDHeader carries the websocket connection id on mutation calls
// so they can be attributed to a live user.
const connectionIDHeader = "X-Connection-ID"

// resolveAttribution matches a mutation request to an online user. The
// mutation and the connection travel on separate channels with no atomicity
// between them, so resolution is best effort: a missing or stale id degrades
// to the Unknown User identity and never fails the request. It is not an
// authorization mechanism.
func resolveAttribution(c echo.Context, presence Presence) domain.Attribution {
	connID := c.Request().Header.Get(connectionIDHeader)
	if connID == "" {
		return domain.UnknownUser()
	}
	u, ok := presence.Get(connID)
	if !ok {
		return domain.UnknownUser()
	}
	return domain.Attribution{By: u.Username, Color: u.Color}
}
