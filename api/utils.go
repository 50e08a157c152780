package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"AcevalImport/internal/constants"
	"AcevalImport/internal/pipeline"
	"AcevalImport/internal/snapshot"
	"AcevalImport/internal/upload"
)

// Error response helper
func RespondWithError(w http.ResponseWriter, status int, errMsg string) {
	log.Println("[ERROR]", errMsg)
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   errMsg,
	})
}

// RespondWithPayload sends a consistent JSON response and includes an arbitrary payload
func RespondWithPayload(w http.ResponseWriter, success bool, errMsg string, payload interface{}) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	resp := map[string]interface{}{"success": success}
	if !success && errMsg != "" {
		resp["error"] = errMsg
		log.Println("[ERROR] RespondWithPayload", errMsg)
	}
	if payload != nil {
		resp["rows"] = payload
	}
	json.NewEncoder(w).Encode(resp)
}

// RespondWithStageError maps pipeline, upload and snapshot failures onto a
// status code. The message always carries the row, parameter or path at fault.
func RespondWithStageError(w http.ResponseWriter, err error) {
	var verr *pipeline.ValidationError
	var rerr *requestError
	switch {
	case errors.As(err, &verr), errors.As(err, &rerr), errors.Is(err, upload.ErrUnsupportedType):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, snapshot.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, err.Error())
	default:
		RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

// LogInfo logs an informational message (wrapper for consistent logging)
func LogInfo(msg string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[INFO] "+msg, args...)
	} else {
		log.Println("[INFO]", msg)
	}
}

// LogError logs an error message (wrapper for consistent logging)
func LogError(msg string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[ERROR] "+msg, args...)
	} else {
		log.Println("[ERROR]", msg)
	}
}
