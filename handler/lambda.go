package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"gemini-chat/internal/domain"
	"gemini-chat/internal/middleware"
	"gemini-chat/internal/usecase"
)

// Handle serves API Gateway proxy events.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	cid := correlationID(header(req.Headers, correlationHeader))
	path := strings.TrimRight(req.Path, "/")

	var res result
	switch {
	case req.HTTPMethod == http.MethodOptions:
		res = result{status: http.StatusNoContent}
	case path == ChatPath && req.HTTPMethod == http.MethodPost:
		body := []byte(req.Body)
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				res = errorResult(http.StatusBadRequest, usecase.ErrorInvalidInput)
				break
			}
			body = decoded
		}
		if len(body) > maxBodyBytes {
			res = errorResult(http.StatusRequestEntityTooLarge, usecase.ErrorInvalidInput)
			break
		}
		res = h.chat(ctx, cid, body)
	case path == HealthPath && req.HTTPMethod == http.MethodGet:
		res = h.health()
	case path == ChatPath || path == HealthPath:
		res = errorResult(http.StatusMethodNotAllowed, usecase.ErrorInvalidInput)
	default:
		res = result{status: http.StatusNotFound, body: domain.ChatResponse{Status: domain.StatusError, Error: "NOT_FOUND"}}
	}
	return h.proxyResponse(cid, header(req.Headers, "Origin"), res), nil
}

func (h *Handler) proxyResponse(cid, origin string, res result) events.APIGatewayProxyResponse {
	headers := map[string]string{correlationHeader: cid}
	if allowOrigin := h.allowOrigin(origin); allowOrigin != "" {
		headers["Access-Control-Allow-Origin"] = allowOrigin
		headers["Access-Control-Allow-Methods"] = "GET, POST, OPTIONS"
		headers["Access-Control-Allow-Headers"] = "Content-Type, X-Correlation-Id"
		headers["Access-Control-Expose-Headers"] = "X-Correlation-Id"
		if allowOrigin != "*" {
			headers["Vary"] = "Origin"
		}
	}
	if res.body == nil {
		return events.APIGatewayProxyResponse{StatusCode: res.status, Headers: headers}
	}
	raw, err := json.Marshal(res.body)
	if err != nil {
		h.logger.Error("failed to encode response", "err", err, "correlation_id", cid)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Headers: headers}
	}
	headers["Content-Type"] = "application/json"
	return events.APIGatewayProxyResponse{
		StatusCode: res.status,
		Headers:    headers,
		Body:       string(raw),
	}
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed. A "*" allow-list answers every request.
func (h *Handler) allowOrigin(origin string) string {
	for _, o := range h.allowedOrigins {
		if o == "*" {
			return "*"
		}
	}
	if origin != "" && middleware.OriginAllowed(h.allowedOrigins, origin) {
		return origin
	}
	return ""
}

// header looks name up case-insensitively; API Gateway preserves client casing.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
