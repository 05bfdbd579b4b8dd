// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package empstats

import (
	_ "embed"
	"net/http"
)

// openAPIDocument describes every /api route.
//
//go:embed openapi.json
var openAPIDocument []byte

// docsPage renders openAPIDocument with Swagger UI.
const docsPage = `<!DOCTYPE html>
<html>
<head>
<title>Employee Statistics API</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>SwaggerUIBundle({url: "/openapi.json", dom_id: "#swagger-ui"});</script>
</body>
</html>
`

// handleGetOpenAPI handles GET /openapi.json requests.
func (h *Handler) handleGetOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(openAPIDocument); err != nil {
		h.logger.Errorf("write openapi document: %s", err)
	}
}

// handleGetDocs handles GET /docs requests.
func (h *Handler) handleGetDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(docsPage)); err != nil {
		h.logger.Errorf("write docs page: %s", err)
	}
}
