package dropbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// APIError is the envelope Dropbox returns with 401, 403 and 409 responses.
type APIError struct {
	Route       string
	StatusCode  int
	Summary     string
	UserMessage *LocalizedText
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Dropbox API error %d on %s: %s", e.StatusCode, e.Route, e.Summary)
}

// RouteError carries the decoded error union E of a failed route.
type RouteError[E any] struct {
	*APIError
	Reason E
}

func (e *RouteError[E]) Unwrap() error { return e.APIError }

// Lookup returns the LookupError inside Reason, if the union has one.
func (e *RouteError[E]) Lookup() *LookupError {
	if l, ok := any(&e.Reason).(interface{ lookup() *LookupError }); ok {
		return l.lookup()
	}
	return nil
}

type (
	AuthAPIError               = RouteError[AuthError]
	AccessAPIError             = RouteError[AccessError]
	GetMetadataAPIError        = RouteError[GetMetadataError]
	CreateFolderAPIError       = RouteError[CreateFolderError]
	ListFolderAPIError         = RouteError[ListFolderError]
	ListFolderContinueAPIError = RouteError[ListFolderContinueError]
	ListFolderLongpollAPIError = RouteError[ListFolderLongpollError]
	UploadAPIError             = RouteError[UploadError]
	DeleteAPIError             = RouteError[DeleteError]
	DownloadAPIError           = RouteError[DownloadError]
	VoidAPIError               = RouteError[Tagged]
)

// decodeRouteError builds a RouteError from a Dropbox error envelope. A body
// that is not an envelope still yields an error carrying the raw text, and a
// reason this client cannot decode leaves Reason zero.
func decodeRouteError[E any](route string, status int, body []byte) error {
	var env struct {
		Summary     string          `json:"error_summary"`
		Error       json.RawMessage `json:"error"`
		UserMessage *LocalizedText  `json:"user_message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return &APIError{Route: route, StatusCode: status, Summary: string(body)}
	}

	re := &RouteError[E]{
		APIError: &APIError{
			Route:       route,
			StatusCode:  status,
			Summary:     env.Summary,
			UserMessage: env.UserMessage,
		},
	}
	if len(env.Error) > 0 {
		if err := json.Unmarshal(env.Error, &re.Reason); err != nil {
			var zero E
			re.Reason = zero
		}
	}
	return re
}

// BadInputError is returned for HTTP 400, where Dropbox answers in plain text.
type BadInputError struct {
	Route   string
	Message string
}

func (e *BadInputError) Error() string {
	return fmt.Sprintf("Dropbox rejected the request to %s: %s", e.Route, e.Message)
}

// RateLimitError is returned once retries are exhausted on HTTP 429.
type RateLimitError struct {
	Route      string
	Reason     Tagged
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by Dropbox on %s (%s), retry after %s", e.Route, e.Reason.Tag, e.RetryAfter)
}

// RateLimit reasons.
const (
	RateLimitTooManyRequests        = "too_many_requests"
	RateLimitTooManyWriteOperations = "too_many_write_operations"
)

// ServerError is returned once retries are exhausted on HTTP 5xx.
type ServerError struct {
	Route      string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("Dropbox server error %d on %s: %s", e.StatusCode, e.Route, e.Body)
}

// IsNotFound reports whether err is a route error whose lookup failed with not_found.
func IsNotFound(err error) bool {
	var l interface{ Lookup() *LookupError }
	if !errors.As(err, &l) {
		return false
	}
	le := l.Lookup()
	return le != nil && le.Tag == LookupErrorNotFound
}

// AuthError is the reason of a 401.
type AuthError struct {
	Tag           string
	RequiredScope string
}

// AuthError tags.
const (
	AuthErrorInvalidAccessToken = "invalid_access_token"
	AuthErrorInvalidSelectUser  = "invalid_select_user"
	AuthErrorInvalidSelectAdmin = "invalid_select_admin"
	AuthErrorUserSuspended      = "user_suspended"
	AuthErrorExpiredAccessToken = "expired_access_token"
	AuthErrorMissingScope       = "missing_scope"
	AuthErrorRouteAccessDenied  = "route_access_denied"
)

func (u *AuthError) UnmarshalJSON(b []byte) error {
	tag, err := decodeTag(b)
	if err != nil {
		return err
	}
	*u = AuthError{Tag: tag}
	if tag == AuthErrorMissingScope {
		var scope struct {
			RequiredScope string `json:"required_scope"`
		}
		if err := decodeInline(b, &scope); err != nil {
			return err
		}
		u.RequiredScope = scope.RequiredScope
	}
	return nil
}

// AccessError is the reason of a 403.
type AccessError struct {
	Tag                string  `json:".tag"`
	InvalidAccountType *Tagged `json:"invalid_account_type,omitempty"`
	PaperAccessDenied  *Tagged `json:"paper_access_denied,omitempty"`
}

// LookupError explains why a path could not be resolved.
type LookupError struct {
	Tag           string  `json:".tag"`
	MalformedPath *string `json:"malformed_path,omitempty"`
}

// LookupError tags.
const (
	LookupErrorMalformedPath          = "malformed_path"
	LookupErrorNotFound               = "not_found"
	LookupErrorNotFile                = "not_file"
	LookupErrorNotFolder              = "not_folder"
	LookupErrorRestrictedContent      = "restricted_content"
	LookupErrorUnsupportedContentType = "unsupported_content_type"
	LookupErrorLocked                 = "locked"
)

// WriteConflictError names what is in the way of a write.
type WriteConflictError struct {
	Tag string `json:".tag"`
}

// WriteConflictError tags.
const (
	WriteConflictFile         = "file"
	WriteConflictFolder       = "folder"
	WriteConflictFileAncestor = "file_ancestor"
)

// WriteError explains why a write was refused.
type WriteError struct {
	Tag           string              `json:".tag"`
	MalformedPath *string             `json:"malformed_path,omitempty"`
	Conflict      *WriteConflictError `json:"conflict,omitempty"`
}

// WriteError tags.
const (
	WriteErrorMalformedPath          = "malformed_path"
	WriteErrorConflict               = "conflict"
	WriteErrorNoWritePermission      = "no_write_permission"
	WriteErrorInsufficientSpace      = "insufficient_space"
	WriteErrorDisallowedName         = "disallowed_name"
	WriteErrorTeamFolder             = "team_folder"
	WriteErrorOperationSuppressed    = "operation_suppressed"
	WriteErrorTooManyWriteOperations = "too_many_write_operations"
)

// TemplateError is a property template failure.
type TemplateError struct {
	Tag              string `json:".tag"`
	TemplateNotFound string `json:"template_not_found,omitempty"`
}

// InvalidPropertyGroupError is a property group validation failure.
type InvalidPropertyGroupError struct {
	Tag              string `json:".tag"`
	TemplateNotFound string `json:"template_not_found,omitempty"`
}

// GetMetadataError is the reason of a files/get_metadata failure.
type GetMetadataError struct {
	Tag  string       `json:".tag"`
	Path *LookupError `json:"path,omitempty"`
}

func (u *GetMetadataError) lookup() *LookupError { return u.Path }

// CreateFolderError is the reason of a files/create_folder_v2 failure.
type CreateFolderError struct {
	Tag  string      `json:".tag"`
	Path *WriteError `json:"path,omitempty"`
}

// ListFolderError is the reason of a files/list_folder failure.
type ListFolderError struct {
	Tag           string         `json:".tag"`
	Path          *LookupError   `json:"path,omitempty"`
	TemplateError *TemplateError `json:"template_error,omitempty"`
}

func (u *ListFolderError) lookup() *LookupError { return u.Path }

// ListFolderContinueError is the reason of a files/list_folder/continue failure.
// Tag "reset" means the cursor is no longer valid and listing must restart.
type ListFolderContinueError struct {
	Tag  string       `json:".tag"`
	Path *LookupError `json:"path,omitempty"`
}

func (u *ListFolderContinueError) lookup() *LookupError { return u.Path }

// ListFolderContinueErrorReset is the tag of an expired cursor.
const ListFolderContinueErrorReset = "reset"

// ListFolderLongpollError is the reason of a files/list_folder/longpoll failure.
type ListFolderLongpollError struct {
	Tag string `json:".tag"`
}

// UploadWriteFailed wraps the write failure of an upload.
type UploadWriteFailed struct {
	Reason          WriteError `json:"reason"`
	UploadSessionID SessionID  `json:"upload_session_id"`
}

// UploadError is the reason of a files/upload failure.
type UploadError struct {
	Tag             string
	Path            *UploadWriteFailed
	PropertiesError *InvalidPropertyGroupError
}

// UploadError tags.
const (
	UploadErrorPath                   = "path"
	UploadErrorPropertiesError        = "properties_error"
	UploadErrorPayloadTooLarge        = "payload_too_large"
	UploadErrorContentHashMismatch    = "content_hash_mismatch"
	UploadErrorEncryptionNotSupported = "encryption_not_supported"
)

func (u *UploadError) UnmarshalJSON(b []byte) error {
	tag, err := decodeTag(b)
	if err != nil {
		return err
	}
	*u = UploadError{Tag: tag}
	switch tag {
	case UploadErrorPath:
		u.Path = &UploadWriteFailed{}
		return decodeInline(b, u.Path)
	case UploadErrorPropertiesError:
		var w struct {
			PropertiesError *InvalidPropertyGroupError `json:"properties_error"`
		}
		if err := decodeInline(b, &w); err != nil {
			return err
		}
		u.PropertiesError = w.PropertiesError
	}
	return nil
}

// DeleteError is the reason of a files/delete failure.
type DeleteError struct {
	Tag        string       `json:".tag"`
	PathLookup *LookupError `json:"path_lookup,omitempty"`
	PathWrite  *WriteError  `json:"path_write,omitempty"`
}

func (u *DeleteError) lookup() *LookupError { return u.PathLookup }

// DownloadError is the reason of a files/download failure.
type DownloadError struct {
	Tag  string       `json:".tag"`
	Path *LookupError `json:"path,omitempty"`
}

func (u *DownloadError) lookup() *LookupError { return u.Path }
