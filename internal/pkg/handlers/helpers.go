package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	oaerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/runtime/middleware/header"
	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/camera"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/netatmo"
)

// For request body validation routines
var formats strfmt.Registry

func init() {
	// Default validators
	formats = strfmt.NewFormats()
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Header.Get("Content-Type") != "" {
		value, _ := header.ParseValueAndParams(r.Header, "Content-Type")
		if value != "application/json" {
			return fmt.Errorf("expected JSON request, got %s", value)
		}
	}

	// 100kb max body
	reader := http.MaxBytesReader(w, r.Body, 100*1024)
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must only contain a single JSON object")
	}

	return nil
}

func sendJSONResponse(w http.ResponseWriter, r *http.Request, status int, d interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	if err := enc.Encode(d); err != nil {
		logging.Logger(r.Context()).WithError(err).Error("sending json response")
	}
}

// statusOf maps an error from the directory or the vendor API to an HTTP
// status code
func statusOf(err error) int {
	var apiErr *netatmo.APIError
	var valErr oaerrors.Error

	switch {
	case errors.Is(err, camera.ErrNoDevice):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.As(err, &valErr):
		if valErr.Code() >= 400 && valErr.Code() < 500 {
			return int(valErr.Code())
		}
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

func sendErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)

	resp := errorResponse{Error: err.Error()}
	var apiErr *netatmo.APIError
	if errors.As(err, &apiErr) {
		resp.Code = apiErr.Code
	}

	entry := logging.Logger(r.Context()).WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}

	sendJSONResponse(w, r, status, resp)
}
