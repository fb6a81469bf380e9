// api/middleware/audit.go
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dev-mohitbeniwal/gatekeeper/api/audit"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

// maxAuditBody bounds how much of a request or response body is buffered
// for the audit record.
const maxAuditBody = 1 << 20

var hexObjectID = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// AuditRecorder persists one audit entry and never fails the request.
type AuditRecorder interface {
	Record(ctx context.Context, input audit.RecordInput)
}

type auditRoute struct {
	action       string
	resourceType string
	sensitive    bool
}

// AuditRoutes holds per-route audit settings keyed by method and route
// pattern. AuditTrail reads them before any route handler runs, so a request
// rejected by an earlier middleware is still audited the same way.
type AuditRoutes struct {
	mu     sync.RWMutex
	routes map[string]auditRoute
}

func NewAuditRoutes() *AuditRoutes {
	return &AuditRoutes{routes: make(map[string]auditRoute)}
}

// SensitiveRead marks the GET route at relativePath under group as audited
// under action.
func (a *AuditRoutes) SensitiveRead(group *gin.RouterGroup, relativePath, action string) {
	a.set(http.MethodGet, group, relativePath, auditRoute{action: action, sensitive: true})
}

// Meta overrides the inferred action and resource type of a route. Empty
// values keep the inferred ones.
func (a *AuditRoutes) Meta(group *gin.RouterGroup, method, relativePath, action, resourceType string) {
	a.set(method, group, relativePath, auditRoute{action: action, resourceType: resourceType})
}

func (a *AuditRoutes) set(method string, group *gin.RouterGroup, relativePath string, route auditRoute) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[method+" "+path.Join(group.BasePath(), relativePath)] = route
}

func (a *AuditRoutes) lookup(method, fullPath string) auditRoute {
	if a == nil || fullPath == "" {
		return auditRoute{}
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.routes[method+" "+fullPath]
}

type bodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	if room := maxAuditBody - w.body.Len(); room > 0 {
		if len(b) > room {
			w.body.Write(b[:room])
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// AuditTrail writes exactly one audit record for every mutating request and
// every read registered through routes.SensitiveRead, whatever the outcome.
// A panicking handler is recorded as a failure before the panic continues.
func AuditTrail(recorder AuditRecorder, apiPrefix string, routes *AuditRoutes) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		route := routes.lookup(method, c.FullPath())
		mutating := isMutating(method)
		if !mutating && !route.sensitive {
			c.Next()
			return
		}

		var payload interface{}
		if mutating {
			payload = readRequestPayload(c)
		}

		writer := &bodyWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		defer func() {
			if r := recover(); r != nil {
				input := buildAuditInput(c, apiPrefix, route, payload, writer.body.Bytes())
				input.Status = audit.StatusFail
				input.ErrorMessage = fmt.Sprintf("panic: %v", r)
				recorder.Record(c.Request.Context(), input)
				panic(r)
			}
		}()

		c.Next()

		recorder.Record(c.Request.Context(), buildAuditInput(c, apiPrefix, route, payload, writer.body.Bytes()))
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type replayBody struct {
	io.Reader
	io.Closer
}

// readRequestPayload decodes the JSON request body for the audit record and
// hands the handler the complete body. Bodies larger than maxAuditBody are
// passed through untouched and recorded without a payload.
func readRequestPayload(c *gin.Context) interface{} {
	body := c.Request.Body
	if body == nil || body == http.NoBody {
		return nil
	}
	head, err := io.ReadAll(io.LimitReader(body, maxAuditBody+1))
	c.Request.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(head), body), Closer: body}
	if err != nil || len(head) == 0 || len(head) > maxAuditBody {
		return nil
	}
	var payload interface{}
	if err := json.Unmarshal(head, &payload); err != nil {
		return nil
	}
	return payload
}

func buildAuditInput(c *gin.Context, apiPrefix string, route auditRoute, payload interface{}, response []byte) audit.RecordInput {
	resourceType, pathID := inferResource(c.Request.URL.Path, apiPrefix)
	if route.resourceType != "" {
		resourceType = route.resourceType
	}
	action := route.action
	if action == "" {
		action = inferAction(c.Request.Method)
	}

	status := c.Writer.Status()
	input := audit.RecordInput{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   pathID,
		Status:       audit.StatusSuccess,
		Method:       c.Request.Method,
		Path:         c.Request.URL.Path,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		RequestID:    GetRequestID(c),
		Payload:      payload,
	}
	if input.ResourceID == "" {
		input.ResourceID = responseID(response)
	}
	if actor, ok := model.ActorFromContext(c.Request.Context()); ok {
		input.ActorID = actor.ID
		input.ActorEmail = actor.Email
	}
	if tc, ok := model.TenantFromContext(c.Request.Context()); ok {
		input.TenantID = tc.ID
	}
	if status >= http.StatusBadRequest {
		input.Status = audit.StatusFail
		input.ErrorMessage = errorMessage(c, response, status)
	}
	return input
}

func inferAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	case http.MethodGet:
		return "read"
	}
	return strings.ToLower(method)
}

// inferResource takes the first path segment after apiPrefix as the resource
// type and the second, when identifier shaped, as the resource id.
func inferResource(path, apiPrefix string) (resourceType, resourceID string) {
	rest := strings.TrimPrefix(path, strings.TrimRight(apiPrefix, "/"))
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", ""
	}
	resourceType = singular(segments[0])
	if len(segments) > 1 && isIdentifier(segments[1]) {
		resourceID = segments[1]
	}
	return resourceType, resourceID
}

func singular(word string) string {
	switch {
	case strings.HasSuffix(word, "ies"):
		return strings.TrimSuffix(word, "ies") + "y"
	case strings.HasSuffix(word, "ss"):
		return word
	case strings.HasSuffix(word, "s"):
		return strings.TrimSuffix(word, "s")
	}
	return word
}

func isIdentifier(segment string) bool {
	if _, err := uuid.Parse(segment); err == nil {
		return true
	}
	if hexObjectID.MatchString(segment) {
		return true
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return segment != ""
}

func responseID(response []byte) string {
	var body struct {
		ID interface{} `json:"id"`
	}
	if len(response) == 0 || json.Unmarshal(response, &body) != nil || body.ID == nil {
		return ""
	}
	switch id := body.ID.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	}
	return ""
}

func errorMessage(c *gin.Context, response []byte, status int) string {
	if last := c.Errors.Last(); last != nil {
		return last.Error()
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(response, &body) == nil && body.Error != "" {
		return body.Error
	}
	return http.StatusText(status)
}
