// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"fmt"
	"net/http"
)

// ResultKind classifies the outcome of a proxied request.
type ResultKind int

const (
	// ResultOK carries the backend's 200 response verbatim.
	ResultOK ResultKind = iota

	// ResultBadRequest is the backend rejecting the request (400).
	ResultBadRequest

	// ResultNotFound is a domain resolution miss or a backend 404.
	ResultNotFound

	// ResultConflict is a backend 409.
	ResultConflict

	// ResultBackendError is a backend 500. The backend's own body is
	// never returned to the instance.
	ResultBackendError
)

// Client-facing explanations.
const (
	explanationBadRequest    = "The server could not comply with the request since it is either malformed or otherwise incorrect."
	explanationNotFound      = "The resource could not be found."
	explanationConflict      = "There was a conflict when trying to complete your request."
	explanationBackendError  = "Remote metadata server experienced an internal server error."
	explanationUnknownError  = "An unknown error has occurred. Please try your request again."
	plainTextContentType     = "text/plain; charset=UTF-8"
	defaultBinaryContentType = "application/octet-stream"
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultBadRequest:
		return "bad_request"
	case ResultNotFound:
		return "not_found"
	case ResultConflict:
		return "conflict"
	case ResultBackendError:
		return "backend_error"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// Result is the client-facing outcome of a proxied request.
// ContentType, ContentEncoding and Body are only meaningful for ResultOK.
type Result struct {
	Kind        ResultKind
	ContentType string

	// ContentEncoding is the backend's Content-Encoding, passed through
	// with the undecoded body.
	ContentEncoding string

	Body []byte
}

// StatusCode returns the HTTP status written for the result.
func (r Result) StatusCode() int {
	switch r.Kind {
	case ResultOK:
		return http.StatusOK
	case ResultBadRequest:
		return http.StatusBadRequest
	case ResultNotFound:
		return http.StatusNotFound
	case ResultConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// UnexpectedStatusError reports a backend status outside the statuses
// the proxy translates.
type UnexpectedStatusError struct {
	StatusCode int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected response code: %d", e.StatusCode)
}

// translateStatus maps a backend status to a result kind.
func translateStatus(statusCode int) (ResultKind, error) {
	switch statusCode {
	case http.StatusOK:
		return ResultOK, nil
	case http.StatusBadRequest:
		return ResultBadRequest, nil
	case http.StatusNotFound:
		return ResultNotFound, nil
	case http.StatusConflict:
		return ResultConflict, nil
	case http.StatusInternalServerError:
		return ResultBackendError, nil
	default:
		return 0, &UnexpectedStatusError{StatusCode: statusCode}
	}
}

// write sends the result to the client.
func (r Result) write(w http.ResponseWriter) error {
	switch r.Kind {
	case ResultOK:
		contentType := r.ContentType
		if contentType == "" {
			contentType = defaultBinaryContentType
		}
		w.Header().Set("Content-Type", contentType)
		if r.ContentEncoding != "" {
			w.Header().Set("Content-Encoding", r.ContentEncoding)
		}
		w.WriteHeader(http.StatusOK)
		_, err := w.Write(r.Body)
		return err
	case ResultBadRequest:
		return writeError(w, http.StatusBadRequest, explanationBadRequest)
	case ResultNotFound:
		return writeError(w, http.StatusNotFound, explanationNotFound)
	case ResultConflict:
		return writeError(w, http.StatusConflict, explanationConflict)
	default:
		return writeError(w, http.StatusInternalServerError, explanationBackendError)
	}
}

// writeError writes a plain-text error page: the status line, then the
// explanation.
func writeError(w http.ResponseWriter, statusCode int, explanation string) error {
	w.Header().Set("Content-Type", plainTextContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	_, err := fmt.Fprintf(w, "%d %s\n\n%s\n\n", statusCode, http.StatusText(statusCode), explanation)
	return err
}
