package http

import (
	_ "embed"
	"net/http"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIDocument []byte

func loadOpenAPIDocument() (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(openAPIDocument, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing embedded openapi document")
	}
	return doc, nil
}

// DocsHandler serves the API description as JSON.
func (h *Handler) DocsHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := loadOpenAPIDocument()
	if err != nil {
		h.log.Error("Failed to load API docs", "error", err)
		h.sendErrorResponse(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.sendJSON(w, http.StatusOK, doc)
}
