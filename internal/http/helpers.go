package http

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/session"
)

// contextKeyCSRFToken is the Gin context key the CSRF middleware stores the
// per-request token under.
const contextKeyCSRFToken = "csrf_token"

// parseIDParam extracts and validates an unsigned integer ID from URL
// parameters. Returns 0, false after responding when the value is invalid.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid %s", paramName)
		return 0, false
	}
	return uint(id), true
}

// csrfField returns the hidden input carrying the CSRF token, or an empty
// string when CSRF protection is not installed.
func csrfField(c *gin.Context) template.HTML {
	token, exists := c.Get(contextKeyCSRFToken)
	if !exists {
		return ""
	}
	t, ok := token.(string)
	if !ok || t == "" {
		return ""
	}
	return template.HTML(`<input type="hidden" name="gorilla.csrf.Token" value="` + template.HTMLEscapeString(t) + `">`)
}

// render renders an HTML template, injecting the CSRF form field so every
// page can embed forms without threading the token through each handler.
func render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["CSRFField"] = csrfField(c)
	c.HTML(status, name, data)
}

// flash stores a one-shot message when a session manager is configured.
func flash(sessions *session.Manager, c *gin.Context, message string) {
	if sessions == nil {
		return
	}
	sessions.Flash(c.Request, message)
}

// popFlash returns and clears the pending flash message, if any.
func popFlash(sessions *session.Manager, c *gin.Context) string {
	if sessions == nil {
		return ""
	}
	return sessions.PopFlash(c.Request)
}
