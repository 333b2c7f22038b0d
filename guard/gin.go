package guard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pgcportal/portal/permission"
	"github.com/pgcportal/portal/session"
)

// GinDecisionKey is the gin context key holding the render Decision.
const GinDecisionKey = "portal.guard.decision"

// GinMiddleware is Middleware for gin routers. Unmatched paths pass through
// unguarded, as with Middleware.
func GinMiddleware(table *Table, resolver *permission.Resolver, state func(c *gin.Context) session.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		route, ok := table.Match(c.Request.URL.Path)
		if !ok {
			c.Next()
			return
		}

		var st session.State
		if state != nil {
			st = state(c)
		}
		d := Evaluate(st, route, c.Request.URL.RequestURI(), resolver)

		switch d.Outcome {
		case OutcomeRender:
			c.Set(GinDecisionKey, d)
			c.Next()
		case OutcomeRedirect:
			c.Redirect(http.StatusFound, d.Location)
			c.Abort()
		default:
			status, body := denial(d)
			c.AbortWithStatusJSON(status, body)
		}
	}
}
